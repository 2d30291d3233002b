// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/telekom/canopy/internal/logger"
)

var _ Loader = (*FileLoader)(nil)

// FileLoader reads the dataset from a local file.
type FileLoader struct {
	path string
	fsys fs.FS
}

func NewFileLoader(cfg *Config) *FileLoader {
	return &FileLoader{
		path: cfg.File.Path,
		fsys: os.DirFS(filepath.Dir(cfg.File.Path)),
	}
}

// Load reads and parses the dataset file.
func (f *FileLoader) Load(ctx context.Context) (ds *Dataset, err error) {
	log := logger.FromContext(ctx).With("path", f.path)

	file, err := f.fsys.Open(filepath.Base(f.path))
	if err != nil {
		log.Error("Failed to open dataset file", "error", err)
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer func() {
		cerr := file.Close()
		if cerr != nil {
			log.Error("Failed to close dataset file", "error", cerr)
			ds = nil
		}
		err = errors.Join(cerr, err)
	}()

	b, err := io.ReadAll(file)
	if err != nil {
		log.Error("Failed to read dataset file", "error", err)
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	ds, err = parse(b)
	if err != nil {
		log.Error("Failed to load dataset file", "error", err)
		return nil, err
	}

	log.Info("Loaded dataset", "subnets", len(ds.Subnets), "interfaces", len(ds.Dictionary))
	return ds, nil
}
