package shader

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/naga"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultValidatorCacheSize = 16

// validationResult is the cached outcome of compiling one source text.
type validationResult struct {
	// diagnostic is the naga error text; empty when the source compiled.
	diagnostic string

	// spirvBytes is the size of the SPIR-V module naga produced.
	spirvBytes int
}

// Validator compiles WGSL with the naga front end so syntax and type errors are reported
// with their diagnostic before a pipeline is requested from the driver. Results are cached
// by source hash, so re-validating an unchanged shader on reload costs nothing.
type Validator struct {
	mu     *sync.Mutex
	cache  *lru.Cache[[sha256.Size]byte, validationResult]
	logger *slog.Logger
	hits   uint64
	misses uint64

	cacheSize int
	compile   func(source string) ([]byte, error)
}

// NewValidator creates a Validator with all specified options applied.
//
// Parameters:
//   - options: functional options to configure the validator
//
// Returns:
//   - *Validator: the validator
//   - error: an error if the cache could not be created
func NewValidator(options ...ValidatorOption) (*Validator, error) {
	v := &Validator{
		mu:        &sync.Mutex{},
		logger:    slog.Default(),
		cacheSize: defaultValidatorCacheSize,
		compile:   naga.Compile,
	}
	for _, option := range options {
		option(v)
	}

	cache, err := lru.NewWithEvict[[sha256.Size]byte, validationResult](v.cacheSize, v.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader validation cache: %w", err)
	}
	v.cache = cache
	return v, nil
}

// Validate compiles source and reports the first diagnostic naga produces.
//
// Parameters:
//   - label: the shader label used in the returned error
//   - source: pre-processed WGSL source
//
// Returns:
//   - error: a *CompileError with StageNaga, or nil when the source compiles
func (v *Validator) Validate(label, source string) error {
	key := sha256.Sum256([]byte(source))

	v.mu.Lock()
	res, ok := v.cache.Get(key)
	if ok {
		v.hits++
	} else {
		v.misses++
	}
	v.mu.Unlock()

	if !ok {
		res = v.run(source)
		v.mu.Lock()
		v.cache.Add(key, res)
		v.mu.Unlock()
		v.logger.Debug("shader validated", "label", label, "spirv_bytes", res.spirvBytes, "ok", res.diagnostic == "")
	}

	if res.diagnostic != "" {
		return &CompileError{
			Stage:      StageNaga,
			Label:      label,
			Diagnostic: res.diagnostic,
			Err:        errors.New(res.diagnostic),
		}
	}
	return nil
}

// Stats returns the number of cache hits and misses since creation.
//
// Returns:
//   - hits: validations answered from the cache
//   - misses: validations that ran the compiler
func (v *Validator) Stats() (hits, misses uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hits, v.misses
}

// Purge drops every cached result.
func (v *Validator) Purge() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cache.Purge()
}

func (v *Validator) run(source string) (res validationResult) {
	// the front end panics on some malformed inputs instead of returning an error
	defer func() {
		if r := recover(); r != nil {
			res = validationResult{diagnostic: fmt.Sprintf("naga: %v", r)}
		}
	}()
	spirv, err := v.compile(source)
	if err != nil {
		return validationResult{diagnostic: err.Error()}
	}
	return validationResult{spirvBytes: len(spirv)}
}

func (v *Validator) onEvict(_ [sha256.Size]byte, res validationResult) {
	v.logger.Debug("shader validation evicted", "ok", res.diagnostic == "")
}

// ValidatorOption is a functional option applied during NewValidator.
type ValidatorOption func(*Validator)

// WithCacheSize sets how many distinct sources keep their result. Defaults to 16.
//
// Parameters:
//   - size: the cache capacity, must be positive
//
// Returns:
//   - ValidatorOption: a function that applies the capacity
func WithCacheSize(size int) ValidatorOption {
	return func(v *Validator) {
		v.cacheSize = size
	}
}

// WithValidatorLogger sets the logger for validation diagnostics.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ValidatorOption: a function that applies the logger
func WithValidatorLogger(logger *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithCompiler replaces the naga front end, mostly for tests.
//
// Parameters:
//   - compile: a function returning the compiled module or a diagnostic error
//
// Returns:
//   - ValidatorOption: a function that applies the compiler
func WithCompiler(compile func(source string) ([]byte, error)) ValidatorOption {
	return func(v *Validator) {
		if compile != nil {
			v.compile = compile
		}
	}
}
