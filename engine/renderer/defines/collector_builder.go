package defines

import "log/slog"

// CollectorBuilderOption is a function that configures a collector during construction.
type CollectorBuilderOption func(*collector)

// WithLogger sets the logger used to report silently resolved define combinations.
//
// Parameters:
//   - logger: the structured logger
//
// Returns:
//   - CollectorBuilderOption: a function that applies the logger option to a collector
func WithLogger(logger *slog.Logger) CollectorBuilderOption {
	return func(c *collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithReservedUniformVectors sets how many vertex uniform vectors are kept free for non-bone
// uniforms when deciding whether a bone matrix array fits the device budget.
//
// Parameters:
//   - n: the number of reserved vec4 slots
//
// Returns:
//   - CollectorBuilderOption: a function that applies the reserve option to a collector
func WithReservedUniformVectors(n int) CollectorBuilderOption {
	return func(c *collector) {
		c.reservedUniformVectors = n
	}
}
