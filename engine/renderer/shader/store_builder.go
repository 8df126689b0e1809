package shader

import "log/slog"

// StoreBuilderOption is a functional option for configuring a Store.
type StoreBuilderOption func(*store)

// WithStoreLogger sets the logger used for load and reload messages.
//
// Parameters:
//   - logger: the logger, nil keeps slog.Default()
//
// Returns:
//   - StoreBuilderOption: the option
func WithStoreLogger(logger *slog.Logger) StoreBuilderOption {
	return func(s *store) {
		if logger != nil {
			s.logger = logger
		}
	}
}
