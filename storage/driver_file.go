package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// KnowledgeFile is the snapshot file name inside the data directory.
const KnowledgeFile = "conhecimento.json"

type FileDriver struct {
	a *FileAdapter
}

func newFileDriver(adapter Adapter) (Driver, error) {
	a, ok := adapter.(*FileAdapter)
	if !ok {
		return nil, fmt.Errorf("file driver expects *FileAdapter, got %T", adapter)
	}
	return &FileDriver{a: a}, nil
}

func (d *FileDriver) Dialect() string { return "file" }

// Migrate makes sure the data directory exists.
func (d *FileDriver) Migrate(ctx context.Context) error {
	if d.a == nil || d.a.Path == "" {
		return fmt.Errorf("file driver: empty data directory")
	}
	return os.MkdirAll(d.a.Path, 0o755)
}

func (d *FileDriver) Knowledge() KnowledgeRepo {
	return &fileKnowledgeRepo{path: filepath.Join(d.a.Path, KnowledgeFile)}
}

func (d *FileDriver) Artifact() ArtifactRepo {
	return &fileArtifactRepo{dir: d.a.Path}
}
