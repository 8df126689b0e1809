package shader

import "log/slog"

// PreProcessorBuilderOption is a functional option for configuring a PreProcessor.
type PreProcessorBuilderOption func(*preProcessor)

// WithIncludes sets the resolver used for #include<name> and //@oxy:include.
//
// Parameters:
//   - includes: the include resolver, typically a Store
//
// Returns:
//   - PreProcessorBuilderOption: the option
func WithIncludes(includes IncludeResolver) PreProcessorBuilderOption {
	return func(p *preProcessor) {
		p.includes = includes
	}
}

// WithPreProcessorLogger sets the logger include expansion is traced to.
func WithPreProcessorLogger(logger *slog.Logger) PreProcessorBuilderOption {
	return func(p *preProcessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}
