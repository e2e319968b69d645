package convert

import "go.uber.org/zap"

type config struct {
	logger         *zap.Logger
	v3             bool
	arenaLimit     int
	dotReplacement byte
}

func defaultConfig() config {
	return config{
		logger: zap.NewNop(),
		v3:     true,
	}
}

// Option configures a Session.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithV3Records selects null-terminated names and the newer record ids.
func WithV3Records(v3 bool) Option {
	return optionFunc(func(c *config) {
		c.v3 = v3
	})
}

// WithArenaLimit caps each output buffer at limit bytes. Zero means no cap.
func WithArenaLimit(limit int) Option {
	return optionFunc(func(c *config) {
		c.arenaLimit = limit
	})
}

// WithDotReplacement replaces '.' in global data symbol names.
func WithDotReplacement(r byte) Option {
	return optionFunc(func(c *config) {
		c.dotReplacement = r
	})
}
