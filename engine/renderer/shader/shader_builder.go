package shader

import "log/slog"

// ShaderOption is a functional option applied during NewShader.
type ShaderOption func(*shader)

// WithPreProcessor sets the pre-processor used to expand @oxy annotations.
// Defaults to a pre-processor for the focal camera variant.
//
// Parameters:
//   - pp: the pre-processor
//
// Returns:
//   - ShaderOption: a function that applies the pre-processor
func WithPreProcessor(pp PreProcessor) ShaderOption {
	return func(s *shader) {
		s.pp = pp
	}
}

// WithValidator compiles the processed source with naga before it reaches the driver.
//
// Parameters:
//   - v: the validator
//
// Returns:
//   - ShaderOption: a function that applies the validator
func WithValidator(v *Validator) ShaderOption {
	return func(s *shader) {
		s.validator = v
	}
}

// WithExpectation checks the parsed contract against what the renderer binds.
//
// Parameters:
//   - e: the expected interface
//
// Returns:
//   - ShaderOption: a function that applies the expectation
func WithExpectation(e Expectation) ShaderOption {
	return func(s *shader) {
		s.expectation = &e
	}
}

// WithLogger sets the logger for shader diagnostics.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ShaderOption: a function that applies the logger
func WithLogger(logger *slog.Logger) ShaderOption {
	return func(s *shader) {
		if logger != nil {
			s.logger = logger
		}
	}
}
