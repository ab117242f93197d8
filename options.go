package rtqueue

import (
	"os"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Options configures a Session.
type Options struct {
	// ClockResolution is the granularity relative timeouts are rounded up to.
	ClockResolution time.Duration
	// MaxPoolBytes caps the pool reservation of a single queue. Zero means
	// only physical memory bounds it.
	MaxPoolBytes int
	// Logger receives lifecycle and misuse events. Nil disables logging.
	Logger *logiface.Logger[logiface.Event]
}

// Option changes Options.
type Option func(*Options)

// WithClockResolution sets the timeout granularity. Non-positive values
// select one nanosecond.
func WithClockResolution(d time.Duration) Option {
	return func(opts *Options) {
		opts.ClockResolution = d
	}
}

// WithMaxPoolBytes caps the pool reservation of a single queue.
func WithMaxPoolBytes(n int) Option {
	return func(opts *Options) {
		opts.MaxPoolBytes = n
	}
}

// WithLogger replaces the default logger. Pass nil to disable logging.
func WithLogger(l *logiface.Logger[logiface.Event]) Option {
	return func(opts *Options) {
		opts.Logger = l
	}
}

// WithOptions replaces every setting at once.
func WithOptions(o Options) Option {
	return func(opts *Options) {
		*opts = o
	}
}

func defaultOptions() Options {
	return Options{
		ClockResolution: time.Nanosecond,
		Logger: stumpy.L.New(
			stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
			stumpy.L.WithLevel(logiface.LevelWarning),
		).Logger(),
	}
}
