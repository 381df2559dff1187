package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"classattend/internal/face"
)

// Repository persists identities in Postgres with the embedding in a
// pgvector column.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Upsert inserts the identity or replaces its embedding.
func (r *Repository) Upsert(ctx context.Context, ident Identity) error {
	if err := ident.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (id, name, embedding, photo_key)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''))
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			name = COALESCE(EXCLUDED.name, identities.name),
			photo_key = COALESCE(EXCLUDED.photo_key, identities.photo_key),
			updated_at = NOW()
	`, ident.ID, ident.Name, toVector(ident.Embedding), ident.PhotoKey)
	if err != nil {
		return fmt.Errorf("upsert identity %s: %w", ident.ID, err)
	}
	return nil
}

// All returns every reference embedding in registration order.
func (r *Repository) All(ctx context.Context) ([]face.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, embedding FROM identities ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	var out []face.Candidate
	for rows.Next() {
		var (
			c   face.Candidate
			vec pgvector.Vector
		)
		if err := rows.Scan(&c.ID, &vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		c.Embedding = fromVector(vec)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns a single identity or nil.
func (r *Repository) Get(ctx context.Context, id string) (*Identity, error) {
	var (
		ident          Identity
		vec            pgvector.Vector
		name, photoKey sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, embedding, photo_key, updated_at
		FROM identities WHERE id = $1
	`, id).Scan(&ident.ID, &name, &vec, &photoKey, &ident.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity %s: %w", id, err)
	}
	ident.Name = name.String
	ident.PhotoKey = photoKey.String
	ident.Embedding = fromVector(vec)
	return &ident, nil
}

// List returns identities without embeddings.
func (r *Repository) List(ctx context.Context) ([]Identity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, photo_key, updated_at FROM identities ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []Identity
	for rows.Next() {
		var (
			ident          Identity
			name, photoKey sql.NullString
		)
		if err := rows.Scan(&ident.ID, &name, &photoKey, &ident.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		ident.Name = name.String
		ident.PhotoKey = photoKey.String
		out = append(out, ident)
	}
	return out, rows.Err()
}

func toVector(e face.Embedding) pgvector.Vector {
	v := make([]float32, len(e))
	for i, x := range e {
		v[i] = float32(x)
	}
	return pgvector.NewVector(v)
}

func fromVector(v pgvector.Vector) face.Embedding {
	s := v.Slice()
	e := make(face.Embedding, len(s))
	for i, x := range s {
		e[i] = float64(x)
	}
	return e
}
