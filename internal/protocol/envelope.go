package protocol

import (
	"encoding/json"
	"fmt"
)

// Signal is the integer tag identifying an envelope's semantic kind.
type Signal int

// Signal codes from the KOOK gateway protocol. Exact values are part of the wire
// protocol and must not change.
const (
	SignalEvent     Signal = 0
	SignalHello     Signal = 1
	SignalPing      Signal = 2
	SignalPong      Signal = 3
	SignalResume    Signal = 5
	SignalReconnect Signal = 6
	SignalResumeAck Signal = 7
)

// Hello inner codes.
const (
	helloCodeOK               = 0
	helloCodeTokenInvalid     = 40101
	helloCodeTokenVerifyFail  = 40102
	helloCodeSessionExpired   = 40103
)

// Envelope is the wire unit {s, d, sn}.
type Envelope struct {
	Signal Signal          `json:"s"`
	Data   json.RawMessage `json:"d,omitempty"`
	SN     int64           `json:"sn,omitempty"`
}

// heartbeat is the outbound ping envelope {"s":2,"sn":n}.
type heartbeat struct {
	Signal Signal `json:"s"`
	SN     int64  `json:"sn"`
}

// HeartbeatFrame encodes the outbound heartbeat carrying the latest sequence
// number the client has seen.
func HeartbeatFrame(sn int64) []byte {
	data, err := json.Marshal(heartbeat{Signal: SignalPing, SN: sn})
	if err != nil {
		// A struct of two ints cannot fail to marshal.
		panic(fmt.Sprintf("marshal heartbeat: %v", err))
	}
	return data
}
