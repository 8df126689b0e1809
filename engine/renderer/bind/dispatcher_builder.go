package bind

import "log/slog"

// DispatcherBuilderOption is a functional option for configuring a Dispatcher.
type DispatcherBuilderOption func(*dispatcher)

// WithLogger sets the logger, nil keeps slog.Default().
func WithLogger(logger *slog.Logger) DispatcherBuilderOption {
	return func(d *dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithObserver sets the receiver of bind decisions.
func WithObserver(o Observer) DispatcherBuilderOption {
	return func(d *dispatcher) {
		d.observer = o
	}
}
