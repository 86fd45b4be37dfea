package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func sampleDocs() []Document {
	return []Document{
		{
			Question:   "capital da frança",
			Answer:     "Paris",
			Source:     "usuário",
			CreatedAt:  "2024-05-01T10:00:00",
			UpdatedAt:  "2024-05-01T10:00:00",
			UseCount:   2,
			Category:   "geral",
			Tokens:     []string{"capital", "franca"},
			Stems:      []string{"capital", "franc"},
			Entities:   [][]string{{"NOME", "França"}},
			Alternates: []string{"capital da frança", "capital da frança?"},
		},
		{
			Question:  "capital da frança?",
			Answer:    "Paris",
			Source:    "usuário",
			CreatedAt: "2024-05-01T10:00:00",
			UpdatedAt: "2024-05-01T10:00:00",
			Category:  "geral",
			Reference: "capital da frança",
			IsAlias:   true,
		},
	}
}

func startManager(t *testing.T, conn any) *Manager {
	t.Helper()
	m := NewManager()
	require.NoError(t, m.Start(conn))
	require.NoError(t, m.Build(context.Background()))
	return m
}

func TestManagerRejectsUnknownConnection(t *testing.T) {
	err := NewManager().Start(42)
	assert.ErrorIs(t, err, ErrNoAdapter)

	m := NewManager()
	require.NoError(t, m.Start(nil))
	assert.False(t, m.Started())
	_, err = m.Repos()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestFileKnowledgeRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "aprendizado")
	m := startManager(t, Dir(dir))
	assert.Equal(t, "file", m.Dialect())

	repos, err := m.Repos()
	require.NoError(t, err)

	docs, err := repos.Knowledge().Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, repos.Knowledge().Replace(ctx, sampleDocs()))
	got, err := repos.Knowledge().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleDocs(), got)

	raw, err := os.ReadFile(filepath.Join(dir, KnowledgeFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"resposta": "Paris"`)
	assert.Contains(t, string(raw), `"fonte": "usuário"`)
	assert.Contains(t, string(raw), `"e_versao_alternativa": true`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}

func TestFileKnowledgeCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, KnowledgeFile), []byte("{not json"), 0o644))
	m := startManager(t, Dir(dir))
	repos, err := m.Repos()
	require.NoError(t, err)

	_, err = repos.Knowledge().Load(context.Background())
	assert.Error(t, err)
}

func TestFileArtifacts(t *testing.T) {
	ctx := context.Background()
	m := startManager(t, Dir(t.TempDir()))
	repos, err := m.Repos()
	require.NoError(t, err)

	_, err = repos.Artifact().Get(ctx, "modelo_ml")
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	require.NoError(t, repos.Artifact().Put(ctx, "modelo_ml", []byte(`{"a":1}`)))
	blob, err := repos.Artifact().Get(ctx, "modelo_ml")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(blob))

	assert.Error(t, repos.Artifact().Put(ctx, "../escape", []byte("x")))
}

func TestSQLiteKnowledgeAndArtifacts(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", "file:kuro_storage_test?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	m := startManager(t, db)
	assert.Equal(t, "sqlite", m.Dialect())
	require.NoError(t, m.Build(ctx), "second migration run must be a no-op")

	repos, err := m.Repos()
	require.NoError(t, err)

	require.NoError(t, repos.Knowledge().Replace(ctx, sampleDocs()))
	got, err := repos.Knowledge().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleDocs(), got)

	require.NoError(t, repos.Knowledge().Replace(ctx, sampleDocs()[:1]))
	got, err = repos.Knowledge().Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "capital da frança", got[0].Question)

	var snapshots int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kuro_snapshot").Scan(&snapshots))
	assert.Equal(t, 1, snapshots)

	_, err = repos.Artifact().Get(ctx, "vetorizador")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	require.NoError(t, repos.Artifact().Put(ctx, "vetorizador", []byte("v1")))
	require.NoError(t, repos.Artifact().Put(ctx, "vetorizador", []byte("v2")))
	blob, err := repos.Artifact().Get(ctx, "vetorizador")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), blob)
}

func TestSQLConnPinsDialect(t *testing.T) {
	db, err := sql.Open("sqlite", "file:kuro_pin_test?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a, err := RegistryAdapter(SQLConn{DB: db, Dialect: "sqlite"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", a.Dialect())

	_, err = RegistryAdapter(SQLConn{DB: db, Dialect: "oracle"})
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{
		"2024-05-01T10:00:00",
		"2024-05-01T10:00:00.123456",
		"2024-05-01 10:00:00",
		"2024-05-01T10:00:00Z",
	} {
		got, ok := ParseTime(s)
		require.True(t, ok, s)
		assert.Equal(t, 2024, got.Year())
		assert.Equal(t, 10, got.Hour())
	}
	_, ok := ParseTime("ontem")
	assert.False(t, ok)

	ts := time.Date(2024, 5, 1, 10, 0, 0, 999, time.Local)
	assert.Equal(t, "2024-05-01T10:00:00", FormatTime(ts))
}
