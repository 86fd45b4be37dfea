package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type fileKnowledgeRepo struct {
	path string
}

func (r *fileKnowledgeRepo) Load(ctx context.Context) ([]Document, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var m map[string]Document
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	docs := make([]Document, 0, len(m))
	for q, doc := range m {
		doc.Question = q
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Question < docs[j].Question })
	return docs, nil
}

func (r *fileKnowledgeRepo) Replace(ctx context.Context, docs []Document) error {
	m := make(map[string]Document, len(docs))
	for _, doc := range docs {
		m[doc.Question] = doc
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return err
	}
	return writeFileAtomic(r.path, buf.Bytes())
}

type fileArtifactRepo struct {
	dir string
}

func (r *fileArtifactRepo) file(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return filepath.Join(r.dir, name+".json"), nil
}

func (r *fileArtifactRepo) Get(ctx context.Context, name string) ([]byte, error) {
	path, err := r.file(name)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}
	return blob, err
}

func (r *fileArtifactRepo) Put(ctx context.Context, name string, blob []byte) error {
	path, err := r.file(name)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, blob)
}

// writeFileAtomic writes through a temp file in the same directory and
// renames it over path, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
