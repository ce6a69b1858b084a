package connection

import (
	"context"
	"errors"
	"time"

	"github.com/zhixinliu/kook-bridge/internal/api"
	"github.com/zhixinliu/kook-bridge/internal/event"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrConnectionClosed = errors.New("connection closed")
)

// Message wraps raw frame data with a receive timestamp.
type Message struct {
	Data       []byte    // Raw frame bytes from the websocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// GatewayAPI is the REST surface a session consumes.
type GatewayAPI interface {
	// Gateway fetches a fresh session-specific websocket URL.
	Gateway(ctx context.Context, compress bool) (string, error)

	// Me resolves the bot identity owning the credential.
	Me(ctx context.Context) (*api.User, error)
}

// Handler receives session lifecycle notifications and resolved events.
// OnEvent calls are fire-and-forget: each runs in its own goroutine and must
// not assume ordering relative to other events.
type Handler interface {
	OnBound(s *Session)
	OnUnbound(s *Session)
	OnEvent(s *Session, ev event.Event)
}

// ClientConfig configures a websocket client.
type ClientConfig struct {
	URL              string        // Gateway URL from gateway/index
	Token            string        // Bot token for the Authorization header
	HandshakeTimeout time.Duration // Dial timeout
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// SessionConfig configures one credential's session.
type SessionConfig struct {
	Compress          bool          // Whole-frame zlib compression
	ReconnectInterval time.Duration // Fixed backoff between reconnect cycles
	HeartbeatInterval time.Duration // Heartbeat period once bound
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	BufferSize        int
}

// DefaultSessionConfig returns the platform's documented timings.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ReconnectInterval: 3 * time.Second,
		HeartbeatInterval: 26 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      5 * time.Second,
		BufferSize:        1000,
	}
}

// ManagerConfig configures the connection manager.
type ManagerConfig struct {
	BaseURL    string        // REST API base URL
	APITimeout time.Duration // REST request timeout
	MaxRetries int           // REST retry budget
	Tokens     []string      // One session per token
	Session    SessionConfig
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	Sessions      int // Configured sessions
	BoundSessions int // Sessions with a live bound connection
}
