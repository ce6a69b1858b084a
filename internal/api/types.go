package api

// GatewayResponse from GET gateway/index.
type GatewayResponse struct {
	URL string `json:"url"`
}

// User represents a KOOK user from GET user/me.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	IdentifyNum    string `json:"identify_num"`
	Online         bool   `json:"online"`
	Bot            bool   `json:"bot"`
	Avatar         string `json:"avatar"`
	MobileVerified bool   `json:"mobile_verified"`
}
