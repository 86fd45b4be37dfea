package storage

// Dir is a connection value naming a data directory for the JSON file backend.
type Dir string

type FileAdapter struct {
	Path string
}

func (a *FileAdapter) Dialect() string { return "file" }

func isDir(conn any) bool {
	_, ok := conn.(Dir)
	return ok
}

func newFileAdapter(conn any) (Adapter, error) {
	return &FileAdapter{Path: string(conn.(Dir))}, nil
}
