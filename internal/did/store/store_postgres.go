package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"pixelgenesis/internal/did/models"
	id "pixelgenesis/pkg/domain"
	"pixelgenesis/pkg/platform/sentinel"
)

// PostgresStore persists DID records in PostgreSQL. The UNIQUE constraint on
// subject is what makes concurrent creates converge on one DID.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveIfAbsent(ctx context.Context, rec models.Record) (models.Record, bool, error) {
	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return models.Record{}, false, fmt.Errorf("marshal did document: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO dids (did, subject, document, sealed_key, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject) DO NOTHING
	`, rec.DID.String(), rec.Subject, doc, rec.SealedKey, rec.CreatedAt)
	if err != nil {
		return models.Record{}, false, fmt.Errorf("insert did: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return models.Record{}, false, fmt.Errorf("insert did rows affected: %w", err)
	}
	if rows == 1 {
		return rec, true, nil
	}
	existing, err := s.FindBySubject(ctx, rec.Subject)
	if err != nil {
		return models.Record{}, false, err
	}
	return existing, false, nil
}

func (s *PostgresStore) FindByDID(ctx context.Context, did id.DID) (models.Record, error) {
	return s.findOne(ctx, `WHERE did = $1`, did.String())
}

func (s *PostgresStore) FindBySubject(ctx context.Context, subject string) (models.Record, error) {
	return s.findOne(ctx, `WHERE subject = $1`, subject)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (models.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT did, subject, document, sealed_key, created_at
		FROM dids `+where, arg)

	var (
		rec    models.Record
		did    string
		docRaw []byte
	)
	if err := row.Scan(&did, &rec.Subject, &docRaw, &rec.SealedKey, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, sentinel.ErrNotFound
		}
		return models.Record{}, fmt.Errorf("find did: %w", err)
	}
	if err := json.Unmarshal(docRaw, &rec.Document); err != nil {
		return models.Record{}, fmt.Errorf("unmarshal did document: %w", err)
	}
	rec.DID = id.DID(did)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
