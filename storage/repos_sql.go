package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const knowledgeColumns = "question, answer, source, date_created, date_updated, use_count, category, " +
	"tokens, stems, entities, alternates, reference, is_alias"

type sqlKnowledgeRepo struct {
	db      *sql.DB
	dialect string
}

func (r *sqlKnowledgeRepo) Load(ctx context.Context) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+knowledgeColumns+" FROM kuro_knowledge ORDER BY question")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc                                 Document
			tokens, stems, entities, alternates sql.NullString
			isAlias                             int
		)
		if err := rows.Scan(&doc.Question, &doc.Answer, &doc.Source, &doc.CreatedAt, &doc.UpdatedAt,
			&doc.UseCount, &doc.Category, &tokens, &stems, &entities, &alternates, &doc.Reference, &isAlias); err != nil {
			return nil, err
		}
		doc.IsAlias = isAlias != 0
		if doc.Tokens, err = decodeList[[]string](tokens.String); err != nil {
			return nil, fmt.Errorf("decode tokens of %q: %w", doc.Question, err)
		}
		if doc.Stems, err = decodeList[[]string](stems.String); err != nil {
			return nil, fmt.Errorf("decode stems of %q: %w", doc.Question, err)
		}
		if doc.Entities, err = decodeList[[][]string](entities.String); err != nil {
			return nil, fmt.Errorf("decode entities of %q: %w", doc.Question, err)
		}
		if doc.Alternates, err = decodeList[[]string](alternates.String); err != nil {
			return nil, fmt.Errorf("decode alternates of %q: %w", doc.Question, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Replace rewrites the table inside one transaction and records the
// snapshot under a fresh uuid.
func (r *sqlKnowledgeRepo) Replace(ctx context.Context, docs []Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM kuro_knowledge"); err != nil {
		return err
	}
	insert := "INSERT INTO kuro_knowledge (" + knowledgeColumns + ") VALUES (" + placeholders(r.dialect, 13) + ")"
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, doc := range docs {
		lists := make([]string, 4)
		for i, v := range []any{doc.Tokens, doc.Stems, doc.Entities, doc.Alternates} {
			if lists[i], err = encodeList(v); err != nil {
				return err
			}
		}
		isAlias := 0
		if doc.IsAlias {
			isAlias = 1
		}
		if _, err := stmt.ExecContext(ctx, doc.Question, doc.Answer, doc.Source, doc.CreatedAt, doc.UpdatedAt,
			doc.UseCount, doc.Category, nullable(lists[0]), nullable(lists[1]), nullable(lists[2]), nullable(lists[3]),
			doc.Reference, isAlias); err != nil {
			return fmt.Errorf("insert %q: %w", doc.Question, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM kuro_snapshot"); err != nil {
		return err
	}
	snap := "INSERT INTO kuro_snapshot (uuid, records, date_created) VALUES (" + placeholders(r.dialect, 3) + ")"
	if _, err := tx.ExecContext(ctx, snap, uuid.New().String(), len(docs), FormatTime(time.Now())); err != nil {
		return err
	}
	return tx.Commit()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type sqlArtifactRepo struct {
	db      *sql.DB
	dialect string
}

func (r *sqlArtifactRepo) Get(ctx context.Context, name string) ([]byte, error) {
	var blob []byte
	query := "SELECT data FROM kuro_artifact WHERE name = " + placeholder(r.dialect, 1)
	err := r.db.QueryRowContext(ctx, query, name).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}
	return blob, err
}

func (r *sqlArtifactRepo) Put(ctx context.Context, name string, blob []byte) error {
	query := "INSERT INTO kuro_artifact (name, data, date_updated) VALUES (" + placeholders(r.dialect, 3) + ") " +
		"ON CONFLICT (name) DO UPDATE SET data = excluded.data, date_updated = excluded.date_updated"
	_, err := r.db.ExecContext(ctx, query, name, blob, FormatTime(time.Now()))
	return err
}
