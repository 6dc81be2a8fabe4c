package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindvault/memoria/pkg/memory/model"
)

// PostgresStore persists records in a single table. Embeddings travel as
// JSONB; nearest-neighbor search never runs in the database.
type PostgresStore struct {
	DB *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	ps := &PostgresStore{DB: db}
	if err := ps.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return ps, nil
}

func (ps *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := ps.DB.Exec(ctx, `
                CREATE TABLE IF NOT EXISTS memory_records (
                        id               TEXT PRIMARY KEY,
                        content          TEXT NOT NULL,
                        kind             TEXT,
                        category         TEXT,
                        tags             JSONB,
                        metadata         JSONB,
                        embedding        JSONB,
                        fingerprint      TEXT,
                        importance       DOUBLE PRECISION,
                        created_at       TIMESTAMPTZ,
                        last_accessed_at TIMESTAMPTZ,
                        access_count     BIGINT
                );
        `)
	return err
}

func (ps *PostgresStore) SaveRecord(ctx context.Context, rec *model.Record) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	tags, _ := json.Marshal(rec.Tags)
	meta, _ := json.Marshal(rec.Metadata)
	embedding, _ := json.Marshal(rec.Embedding)
	_, err := ps.DB.Exec(ctx, `
                INSERT INTO memory_records
                        (id, content, kind, category, tags, metadata, embedding, fingerprint,
                         importance, created_at, last_accessed_at, access_count)
                VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7::jsonb, $8, $9, $10, $11, $12)
                ON CONFLICT (id) DO UPDATE SET
                        importance = EXCLUDED.importance,
                        last_accessed_at = EXCLUDED.last_accessed_at,
                        access_count = EXCLUDED.access_count;
        `, rec.ID, rec.Content, rec.Kind, rec.Category, tags, meta, embedding,
		rec.Fingerprint, rec.Importance, rec.CreatedAt, rec.LastAccessedAt, rec.AccessCount)
	return err
}

func (ps *PostgresStore) LoadRecords(ctx context.Context) ([]*model.Record, error) {
	if ps == nil || ps.DB == nil {
		return nil, nil
	}
	rows, err := ps.DB.Query(ctx, `
                SELECT id, content, kind, category, tags::text, metadata::text, embedding::text,
                       fingerprint, importance, created_at, last_accessed_at, access_count
                FROM memory_records
                ORDER BY created_at;
        `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		rec := &model.Record{}
		var tags, meta, embedding string
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.Kind, &rec.Category, &tags, &meta,
			&embedding, &rec.Fingerprint, &rec.Importance, &rec.CreatedAt,
			&rec.LastAccessedAt, &rec.AccessCount); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(tags), &rec.Tags)
		_ = json.Unmarshal([]byte(meta), &rec.Metadata)
		_ = json.Unmarshal([]byte(embedding), &rec.Embedding)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (ps *PostgresStore) Close(context.Context) error {
	if ps != nil && ps.DB != nil {
		ps.DB.Close()
	}
	return nil
}
