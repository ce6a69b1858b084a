package event

// sysEventType marks a payload as a system notice rather than a chat message.
const sysEventType = 255

// messageSubTypes enumerates the platform's message kinds in declaration
// order. Reverse lookup takes the first member whose value matches.
var messageSubTypes = []struct {
	name  string
	value int
}{
	{"text", 1},
	{"image", 2},
	{"video", 3},
	{"file", 4},
	{"audio", 8},
	{"kmarkdown", 9},
	{"card", 10},
	{"sys", sysEventType},
}

// subTypeName reverse-looks-up a numeric message kind.
func subTypeName(value int) (string, bool) {
	for _, st := range messageSubTypes {
		if st.value == value {
			return st.name, true
		}
	}
	return "", false
}
