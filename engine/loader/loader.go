package loader

import (
	"embed"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// EmbeddedScheme prefixes paths served from the assets compiled into the binary.
const EmbeddedScheme = "embedded:"

// DefaultShaderPath names the ray tracing shader shipped with the renderer.
const DefaultShaderPath = EmbeddedScheme + "shaders/raytrace.wgsl"

//go:embed assets
var embeddedAssets embed.FS

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	cache   map[string][]byte
	caching bool

	backend  loaderBackend
	embedded loaderBackend
	logger   *slog.Logger
}

// Loader defines the public-facing interface for loading and caching raw file bytes such as
// shader sources. Paths with the "embedded:" scheme are served from the binary; every other
// path goes to the configured backend (the disk by default).
type Loader interface {
	// Load reads the file at path and caches the result.
	// If the file is already cached, the cached bytes are returned.
	//
	// Parameters:
	//   - path: the file path, optionally prefixed with EmbeddedScheme
	//
	// Returns:
	//   - []byte: the file contents
	//   - error: error if loading fails
	Load(path string) ([]byte, error)

	// LoadString reads the file at path as text.
	//
	// Parameters:
	//   - path: the file path, optionally prefixed with EmbeddedScheme
	//
	// Returns:
	//   - string: the file contents
	//   - error: error if loading fails
	LoadString(path string) (string, error)

	// Get retrieves cached bytes by path.
	//
	// Parameters:
	//   - path: the cache key to look up
	//
	// Returns:
	//   - []byte: the cached bytes, or nil
	//   - bool: false if the path is not cached
	Get(path string) ([]byte, bool)

	// Invalidate drops a cached path so the next Load reads it again.
	//
	// Parameters:
	//   - path: the cache key to drop
	Invalidate(path string)

	// Paths returns the cached paths in sorted order.
	//
	// Returns:
	//   - []string: the cached paths
	Paths() []string
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		cache:    make(map[string][]byte),
		caching:  true,
		backend:  diskLoaderBackend{},
		embedded: fsLoaderBackend{fsys: embeddedAssets},
		logger:   slog.Default(),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) ([]byte, error) {
	if data, ok := l.Get(path); ok {
		return data, nil
	}

	backend, name := l.resolveBackend(path)
	data, err := backend.Read(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	l.logger.Debug("file loaded", "path", path, "bytes", len(data))

	if l.caching {
		l.mu.Lock()
		l.cache[path] = data
		l.mu.Unlock()
	}
	return slices.Clone(data), nil
}

func (l *loader) LoadString(path string) (string, error) {
	data, err := l.Load(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (l *loader) Get(path string) ([]byte, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	data, ok := l.cache[path]
	if !ok {
		return nil, false
	}
	return slices.Clone(data), true
}

func (l *loader) Invalidate(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, path)
}

func (l *loader) Paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Sorted(maps.Keys(l.cache))
}

// IsEmbedded reports whether path is served from the assets compiled into the binary.
//
// Parameters:
//   - path: the path to check
//
// Returns:
//   - bool: true when path starts with EmbeddedScheme
func IsEmbedded(path string) bool {
	return strings.HasPrefix(path, EmbeddedScheme)
}

// resolveBackend selects the backend for a path by its scheme and strips the scheme.
func (l *loader) resolveBackend(path string) (loaderBackend, string) {
	if name, ok := strings.CutPrefix(path, EmbeddedScheme); ok {
		return l.embedded, "assets/" + name
	}
	return l.backend, path
}

// DefaultShader returns the embedded ray tracing shader source.
//
// Returns:
//   - string: the WGSL source with @oxy annotations
func DefaultShader() string {
	data, err := embeddedAssets.ReadFile("assets/shaders/raytrace.wgsl")
	if err != nil {
		// the asset is compiled in
		panic(fmt.Sprintf("loader: embedded shader missing: %v", err))
	}
	return string(data)
}
