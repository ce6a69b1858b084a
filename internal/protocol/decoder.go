package protocol

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zhixinliu/kook-bridge/internal/sequence"
)

// ErrReconnectRequired signals that the current connection has expired and a
// full reconnect cycle (fresh gateway URL, sequence reset) is needed.
var ErrReconnectRequired = errors.New("gateway requested reconnect")

// CredentialError is fatal for the session's token: the gateway rejected the
// credential during handshake. Sessions must not retry with the same token.
type CredentialError struct {
	Code int
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("gateway rejected credential (code %d)", e.Code)
}

// DecodeError reports a frame that could not be decoded at the envelope
// level (bad compression, bad JSON). The session treats it like transport
// corruption and reconnects.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame (%s): %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FrameKind tags the decoder's output variant.
type FrameKind int

const (
	// FrameIgnore carries nothing: unknown signals, resume acks, and
	// self-authored events decode to it.
	FrameIgnore FrameKind = iota
	// FrameHello is a successful handshake; Payload holds the hello data.
	FrameHello
	// FramePong is a heartbeat acknowledgment.
	FramePong
	// FrameEvent is an EVENT envelope; Payload holds the inner event data.
	FrameEvent
)

// Frame is the decoded form of one wire envelope.
type Frame struct {
	Kind    FrameKind
	Signal  Signal
	SN      int64
	Payload map[string]any
}

// Decoder turns raw websocket frames into Frame variants. One decoder serves
// one session; compression is selected once per session from configuration.
type Decoder struct {
	compress bool
	store    *sequence.Store
	logger   *slog.Logger
}

// NewDecoder creates a frame decoder. The store receives the sequence number
// of every EVENT frame, keyed by the bound identity hint passed to Decode.
func NewDecoder(compress bool, store *sequence.Store, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Decoder{
		compress: compress,
		store:    store,
		logger:   logger,
	}
}

// Decode decompresses and parses one raw frame. selfID is the session's bound
// identity, or "" before the handshake completes; it keys sequence recording
// and suppresses self-authored events.
func (d *Decoder) Decode(raw []byte, selfID string) (Frame, error) {
	if d.compress {
		var err error
		raw, err = inflate(raw)
		if err != nil {
			return Frame{}, &DecodeError{Stage: "decompress", Err: err}
		}
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Frame{}, &DecodeError{Stage: "envelope", Err: err}
	}

	switch env.Signal {
	case SignalHello:
		return d.decodeHello(env)

	case SignalPong:
		return Frame{Kind: FramePong, Signal: env.Signal}, nil

	case SignalEvent:
		return d.decodeEvent(env, selfID)

	case SignalReconnect:
		return Frame{}, ErrReconnectRequired

	case SignalResumeAck:
		// Resume is never requested by this protocol variant; on session
		// loss the client reconnects from scratch.
		return Frame{Kind: FrameIgnore, Signal: env.Signal}, nil

	default:
		return Frame{Kind: FrameIgnore, Signal: env.Signal}, nil
	}
}

func (d *Decoder) decodeHello(env Envelope) (Frame, error) {
	var payload map[string]any
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return Frame{}, &DecodeError{Stage: "hello", Err: err}
	}

	code, _ := intField(payload["code"])
	switch code {
	case helloCodeOK:
		return Frame{Kind: FrameHello, Signal: env.Signal, Payload: payload}, nil
	case helloCodeSessionExpired:
		return Frame{}, ErrReconnectRequired
	case helloCodeTokenInvalid, helloCodeTokenVerifyFail:
		return Frame{}, &CredentialError{Code: code}
	default:
		return Frame{}, &DecodeError{Stage: "hello", Err: fmt.Errorf("unexpected hello code %d", code)}
	}
}

func (d *Decoder) decodeEvent(env Envelope, selfID string) (Frame, error) {
	// Record the sequence number before anything can reject the frame: the
	// heartbeat must acknowledge every received EVENT.
	d.store.Set(selfID, env.SN)

	var payload map[string]any
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return Frame{}, &DecodeError{Stage: "event", Err: err}
	}

	// Suppress the bot's own messages to prevent feedback loops.
	if selfID != "" {
		if author, _ := payload["author_id"].(string); author == selfID {
			return Frame{Kind: FrameIgnore, Signal: env.Signal, SN: env.SN}, nil
		}
	}

	return Frame{Kind: FrameEvent, Signal: env.Signal, SN: env.SN, Payload: payload}, nil
}

// inflate decompresses a whole-frame zlib payload.
func inflate(raw []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// intField extracts an integer from a decoded JSON value.
func intField(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}
