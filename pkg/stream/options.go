package stream

import (
	"go.uber.org/zap"

	"github.com/mohamedkhairy/stock-indicators/pkg/logger"
)

// DefaultMaxCacheSize bounds every hub cache unless WithMaxCacheSize says otherwise
const DefaultMaxCacheSize = 100_000

type options struct {
	maxCacheSize int
	logger       *zap.Logger
	name         string
}

// Option configures a hub at construction time
type Option func(*options)

// WithMaxCacheSize bounds the number of retained entries
func WithMaxCacheSize(n int) Option {
	return func(o *options) {
		o.maxCacheSize = n
	}
}

// WithLogger sets the logger used for rebuild and fault reporting
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithName overrides the identity string of a source hub
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func buildOptions(opts []Option) (options, error) {
	o := options{maxCacheSize: DefaultMaxCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxCacheSize < 1 {
		return o, InvalidParameter("maxCacheSize", o.maxCacheSize, "greater than 0")
	}
	if o.logger == nil {
		o.logger = logger.Get()
	}
	return o, nil
}
