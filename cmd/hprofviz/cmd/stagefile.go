package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hprofgraph/hprofviz/internal/storage"
)

const cosPrefix = "cos://"

// isRemoteKey reports whether path names an object-storage key rather than
// a local filesystem path.
func isRemoteKey(path string) bool {
	return strings.HasPrefix(path, cosPrefix)
}

func cosStorageFromConfig() (storage.Storage, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("cos:// paths require a --config file with a storage section")
	}
	return storage.NewStorage(&appConfig.Storage)
}

// resolveInputPath returns a local path the parser can read for path,
// downloading it first when path names a cos:// key. The returned cleanup
// func removes any staged temp file and must always be called, whether or
// not err is nil.
func resolveInputPath(ctx context.Context, path string) (local string, cleanup func(), err error) {
	if !isRemoteKey(path) {
		return path, func() {}, nil
	}

	st, err := cosStorageFromConfig()
	if err != nil {
		return "", func() {}, err
	}

	key := strings.TrimPrefix(path, cosPrefix)
	f, err := os.CreateTemp("", "hprofviz-input-*.hprof")
	if err != nil {
		return "", func() {}, fmt.Errorf("create staging file: %w", err)
	}
	tmpPath := f.Name()
	f.Close()
	cleanup = func() { os.Remove(tmpPath) }

	if err := st.DownloadFile(ctx, key, tmpPath); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("download %s: %w", path, err)
	}

	return tmpPath, cleanup, nil
}

// outputDestination opens a local file the caller can write through, plus a
// finish func that, for a cos:// destPath, uploads the staged bytes and
// removes the local copy. A plain local destPath writes straight there and
// finish only closes the handle; an empty destPath writes to stdout.
func outputDestination(ctx context.Context, destPath string) (w *os.File, finish func() error, err error) {
	if destPath == "" {
		return os.Stdout, func() error { return nil }, nil
	}

	if !isRemoteKey(destPath) {
		f, err := os.Create(destPath)
		if err != nil {
			return nil, nil, fmt.Errorf("create output file: %w", err)
		}
		return f, f.Close, nil
	}

	st, err := cosStorageFromConfig()
	if err != nil {
		return nil, nil, err
	}

	f, err := os.CreateTemp("", "hprofviz-output-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create staging file: %w", err)
	}
	tmpPath := f.Name()
	key := strings.TrimPrefix(destPath, cosPrefix)

	finish = func() error {
		defer os.Remove(tmpPath)
		if err := f.Close(); err != nil {
			return fmt.Errorf("close staged output: %w", err)
		}
		if err := st.UploadFile(ctx, key, tmpPath); err != nil {
			return fmt.Errorf("upload %s: %w", destPath, err)
		}
		return nil
	}
	return f, finish, nil
}
