package config

import "time"

// BridgeConfig is the root configuration for a bridge instance.
type BridgeConfig struct {
	Bots       []BotConfig      `yaml:"bots"`
	API        APIConfig        `yaml:"api"`
	Connection ConnectionConfig `yaml:"connection"`
}

// BotConfig identifies a single bot credential.
type BotConfig struct {
	Token string `yaml:"token"`
}

// APIConfig holds KOOK REST API settings.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// ConnectionConfig holds gateway connection settings.
type ConnectionConfig struct {
	Compress          bool          `yaml:"compress"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	BufferSize        int           `yaml:"buffer_size"`
}
