package config

const (
	// DefaultTimeoutMs is the default per-request timeout.
	DefaultTimeoutMs = 30000
	// DefaultMaxRedirects is how many redirects a request follows.
	DefaultMaxRedirects = 10
	// DefaultNoticeTTLMs is how long status notices stay visible.
	DefaultNoticeTTLMs = 3000
	// DefaultListen is the address `hitdesk serve` binds.
	DefaultListen = "127.0.0.1:7878"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:         DefaultTimeoutMs,
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    DefaultMaxRedirects,
		ValidateSSL:     BoolPtr(true),
		NoticeTTL:       DefaultNoticeTTLMs,
		Listen:          DefaultListen,
		Watch:           BoolPtr(true),
		NoColor:         BoolPtr(false),
	}
}
