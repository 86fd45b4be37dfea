package storage

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// TimeLayout is how timestamps are written. Readers accept more, see ParseTime.
const TimeLayout = "2006-01-02T15:04:05"

// Document is the wire form of one knowledge entry. Field names match the
// legacy JSON file so existing data keeps loading.
type Document struct {
	Question   string     `json:"-" bson:"question"`
	Answer     string     `json:"resposta" bson:"resposta"`
	Source     string     `json:"fonte" bson:"fonte"`
	CreatedAt  string     `json:"data_criacao" bson:"data_criacao"`
	UpdatedAt  string     `json:"data_atualizacao" bson:"data_atualizacao"`
	UseCount   int        `json:"contador_uso" bson:"contador_uso"`
	Category   string     `json:"categoria" bson:"categoria"`
	Tokens     []string   `json:"tokens,omitempty" bson:"tokens,omitempty"`
	Stems      []string   `json:"stems,omitempty" bson:"stems,omitempty"`
	Entities   [][]string `json:"entidades,omitempty" bson:"entidades,omitempty"`
	Alternates []string   `json:"versoes_alternativas,omitempty" bson:"versoes_alternativas,omitempty"`
	Reference  string     `json:"referencia_original,omitempty" bson:"referencia_original,omitempty"`
	IsAlias    bool       `json:"e_versao_alternativa,omitempty" bson:"e_versao_alternativa,omitempty"`
}

type Repos interface {
	Knowledge() KnowledgeRepo
	Artifact() ArtifactRepo
}

// KnowledgeRepo stores the whole knowledge mapping as one snapshot.
type KnowledgeRepo interface {
	// Load returns every document ordered by question. An empty store is
	// not an error.
	Load(ctx context.Context) ([]Document, error)
	// Replace atomically swaps the stored mapping for docs.
	Replace(ctx context.Context, docs []Document) error
}

// ArtifactRepo stores opaque named blobs such as trained models.
type ArtifactRepo interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, blob []byte) error
}

// FormatTime renders t with TimeLayout in local time, seconds precision.
func FormatTime(t time.Time) string {
	return t.Truncate(time.Second).Format(TimeLayout)
}

// ParseTime accepts the layouts produced by this package, by older files
// (microsecond isoformat) and by SQL datetime defaults.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	layouts := []string{
		TimeLayout,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05", // SQLite datetime('now')
		"2006-01-02 15:04:05.999999999",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func encodeList(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "", nil
	}
	return string(b), nil
}

func decodeList[T any](s string) (T, error) {
	var out T
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	err := json.Unmarshal([]byte(s), &out)
	return out, err
}
