package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/hprofgraph/hprofviz/pkg/index"
)

// openStore opens the index previously built into indexDir by build-index,
// verifying its fingerprint still matches buf.
func openStore(buf []byte, indexDir string) (*index.Store, error) {
	want, err := index.ComputeFingerprint(buf)
	if err != nil {
		return nil, err
	}

	storePath := filepath.Join(indexDir, "index.bolt")
	store, err := index.Open(storePath, want)
	if err != nil {
		return nil, fmt.Errorf("open index at %s: %w", indexDir, err)
	}
	return store, nil
}
