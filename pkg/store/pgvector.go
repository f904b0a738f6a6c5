package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/sourcebook/internal/models"
	"github.com/xhad/sourcebook/internal/types"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type PgVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PgVectorStore keeps every workspace in one table, keyed by workspace_id.
type PgVectorStore struct {
	config PgVectorConfig
	pool   *pgxpool.Pool
}

func NewPgVector(ctx context.Context, config PgVectorConfig) (*PgVectorStore, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if !tableNamePattern.MatchString(config.TableName) {
		return nil, fmt.Errorf("invalid table name %q", config.TableName)
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // nomic-embed-text
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &PgVectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *PgVectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			content TEXT,
			embedding vector(%d),
			metadata JSONB
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createWorkspaceIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_workspace_idx ON %s (workspace_id)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createWorkspaceIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx 
		ON %s 
		USING hnsw (embedding vector_cosine_ops)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// Upsert writes records in one transaction.
func (vs *PgVectorStore) Upsert(ctx context.Context, partition string, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, workspace_id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			workspace_id = EXCLUDED.workspace_id,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		vs.config.TableName)

	batch := &pgx.Batch{}
	for _, r := range records {
		meta := r.Metadata
		// Postgres rejects NUL in TEXT and JSONB
		meta.Text = strings.ReplaceAll(sanitizeUTF8(meta.Text), "\x00", "")

		payload, err := json.Marshal(meta.Fields())
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %v", r.ID, err)
		}

		batch.Queue(stmt, r.ID, partition, meta.Text, pgvector.NewVector(r.Vector), payload)
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert records: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (vs *PgVectorStore) Query(ctx context.Context, partition string, vector []float32, topK int) ([]types.Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, 1 - (embedding <=> $1), metadata
		FROM %s
		WHERE workspace_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), partition, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %v", err)
	}
	defer rows.Close()

	var matches []types.Match
	for rows.Next() {
		var (
			m       types.Match
			score   float64
			payload []byte
		)
		if err := rows.Scan(&m.ID, &score, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}

		var meta models.Metadata
		if err := json.Unmarshal(payload, &meta); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %v", m.ID, err)
		}
		m.Score = float32(score)
		m.Metadata = meta
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %v", err)
	}

	return matches, nil
}

func (vs *PgVectorStore) Close() error {
	if vs.pool != nil {
		vs.pool.Close()
	}
	return nil
}

// sanitizeUTF8 drops invalid bytes, which Postgres rejects in TEXT columns.
func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
