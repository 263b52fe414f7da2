package codemap

import (
	"io"

	"github.com/sirupsen/logrus"
)

type (
	// Option configures a Registry.
	Option interface {
		// ApplyOption applies this option to the given applier.
		ApplyOption(a OptionApplier)
	}

	// OptionApplier provides methods for applying options to a Registry.
	OptionApplier interface {
		// SetLogger sets the logger for registry diagnostics.
		SetLogger(logger logrus.FieldLogger)
		// SetRecorder sets the metrics recorder.
		SetRecorder(recorder Recorder)
		// SetHysteresis sets the shrink margin of the entry table.
		SetHysteresis(n int)
	}

	optionApplier struct {
		o *options
	}

	options struct {
		logger     logrus.FieldLogger
		recorder   Recorder
		hysteresis int
	}

	loggerOption struct {
		logger logrus.FieldLogger
	}

	recorderOption struct {
		recorder Recorder
	}

	hysteresisOption struct {
		n int
	}
)

var (
	_ OptionApplier = (*optionApplier)(nil)
	_ Option        = (*loggerOption)(nil)
	_ Option        = (*recorderOption)(nil)
	_ Option        = (*hysteresisOption)(nil)
)

// WithLogger sets the logger. Registries log nothing by default.
func WithLogger(logger logrus.FieldLogger) Option {
	return &loggerOption{logger: logger}
}

// WithRecorder sets the metrics recorder. The default records nothing.
func WithRecorder(recorder Recorder) Option {
	return &recorderOption{recorder: recorder}
}

// WithHysteresis overrides how far the entry table may be over capacity
// before it shrinks. The default is 32 entries.
func WithHysteresis(n int) Option {
	return &hysteresisOption{n: n}
}

func (o *loggerOption) ApplyOption(a OptionApplier)     { a.SetLogger(o.logger) }
func (o *recorderOption) ApplyOption(a OptionApplier)   { a.SetRecorder(o.recorder) }
func (o *hysteresisOption) ApplyOption(a OptionApplier) { a.SetHysteresis(o.n) }

func (a *optionApplier) SetLogger(logger logrus.FieldLogger) {
	if logger != nil {
		a.o.logger = logger
	}
}

func (a *optionApplier) SetRecorder(recorder Recorder) {
	if recorder != nil {
		a.o.recorder = recorder
	}
}

func (a *optionApplier) SetHysteresis(n int) {
	if n >= 0 {
		a.o.hysteresis = n
	}
}

func newOptions(opts []Option) options {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	o := options{
		logger:     discard,
		recorder:   NoopRecorder{},
		hysteresis: defaultHysteresis,
	}
	a := &optionApplier{o: &o}
	for _, opt := range opts {
		if opt != nil {
			opt.ApplyOption(a)
		}
	}
	return o
}
