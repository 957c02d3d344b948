package loader

import (
	"io/fs"
	"log/slog"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithFS reads plain paths from fsys instead of the operating system.
//
// Parameters:
//   - fsys: the file system to read from
//
// Returns:
//   - LoaderBuilderOption: a function that applies the file system option to a loader
func WithFS(fsys fs.FS) LoaderBuilderOption {
	return func(l *loader) {
		if fsys != nil {
			l.backend = fsLoaderBackend{fsys: fsys}
		}
	}
}

// WithCaching toggles the byte cache. Caching is on by default; the engine turns it off
// for files it watches for changes.
//
// Parameters:
//   - enabled: whether loaded files are cached
//
// Returns:
//   - LoaderBuilderOption: a function that applies the caching option to a loader
func WithCaching(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.caching = enabled
	}
}

// WithLogger sets the logger for load events. Defaults to slog.Default().
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}
