package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"pixelgenesis/internal/credential/fingerprint"
	"pixelgenesis/internal/credential/models"
	id "pixelgenesis/pkg/domain"
	"pixelgenesis/pkg/platform/sentinel"
	"pixelgenesis/pkg/platform/tx"
)

const uniqueViolation = "23505"

const selectColumns = `
	SELECT id, fingerprint, holder_did, issuer_did, types, issued_at, expires_at,
		status, claims, credential_schema, proof, anchor_state, anchor_pending_op,
		tx_ref, content_locator
	FROM credentials`

// PostgresStore persists credentials in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) queryer {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *PostgresStore) Save(ctx context.Context, c *models.Credential) error {
	claims, err := json.Marshal(c.Claims)
	if err != nil {
		return fmt.Errorf("marshal claims: %w", err)
	}
	schema, err := nullableJSON(c.Schema)
	if err != nil {
		return fmt.Errorf("marshal credential schema: %w", err)
	}
	proof, err := nullableJSON(c.Proof)
	if err != nil {
		return fmt.Errorf("marshal proof: %w", err)
	}
	var expiresAt sql.NullTime
	if c.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *c.ExpiresAt, Valid: true}
	}

	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO credentials (
			id, fingerprint, holder_did, issuer_did, types, issued_at, expires_at,
			status, claims, credential_schema, proof, anchor_state, anchor_pending_op,
			tx_ref, content_locator, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
	`,
		c.ID.String(), c.Fingerprint.String(), c.HolderDID.String(), c.IssuerDID.String(),
		pq.Array(c.Types), c.IssuedAt, expiresAt, string(c.Status), claims, schema, proof,
		string(c.Anchor.State), string(c.Anchor.PendingOp), c.Anchor.TxRef, c.ContentLocator,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credID id.CredentialID) (*models.Credential, error) {
	return s.findOne(ctx, selectColumns+` WHERE id = $1`, credID.String())
}

func (s *PostgresStore) FindByFingerprint(ctx context.Context, fp fingerprint.Fingerprint) (*models.Credential, error) {
	return s.findOne(ctx, selectColumns+` WHERE fingerprint = $1`, fp.String())
}

func (s *PostgresStore) FindByHolderDID(ctx context.Context, holder id.DID) ([]*models.Credential, error) {
	return s.findMany(ctx, selectColumns+` WHERE holder_did = $1 ORDER BY issued_at DESC, id`, holder.String())
}

func (s *PostgresStore) ListPendingAnchors(ctx context.Context, limit int) ([]*models.Credential, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.findMany(ctx, selectColumns+` WHERE anchor_state = 'pending' ORDER BY updated_at, id LIMIT $1`, limit)
}

// UpdateStatus locks the row, checks the transition and writes the new status
// and anchor in one transaction.
func (s *PostgresStore) UpdateStatus(ctx context.Context, credID id.CredentialID, u models.StatusUpdate) (*models.Credential, error) {
	var updated *models.Credential
	err := tx.Run(ctx, s.db, func(ctx context.Context, sqlTx *sql.Tx) error {
		current, err := scanOne(sqlTx.QueryRowContext(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, credID.String()))
		if err != nil {
			return err
		}
		if !u.AppliesTo(current.Status) {
			return sentinel.ErrInvalidState
		}
		_, err = sqlTx.ExecContext(ctx, `
			UPDATE credentials
			SET status = $2, anchor_state = $3, anchor_pending_op = $4, tx_ref = $5, updated_at = NOW()
			WHERE id = $1
		`, credID.String(), string(u.Status), string(u.Anchor.State), string(u.Anchor.PendingOp), u.Anchor.TxRef)
		if err != nil {
			return fmt.Errorf("update credential status: %w", err)
		}
		current.Status = u.Status
		current.Anchor = u.Anchor
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Credential, error) {
	return scanOne(s.conn(ctx).QueryRowContext(ctx, query, arg))
}

func (s *PostgresStore) findMany(ctx context.Context, query string, args ...any) ([]*models.Credential, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	var out []*models.Credential
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*models.Credential, error) {
	c, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return c, err
}

func scan(row scanner) (*models.Credential, error) {
	var (
		c                             models.Credential
		credID, fp, holder, issuer    string
		status, anchorState, anchorOp string
		types                         []string
		expiresAt                     sql.NullTime
		issuedAt                      time.Time
		claims, schema, proof         []byte
	)
	err := row.Scan(&credID, &fp, &holder, &issuer, pq.Array(&types), &issuedAt, &expiresAt,
		&status, &claims, &schema, &proof, &anchorState, &anchorOp, &c.Anchor.TxRef, &c.ContentLocator)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan credential: %w", err)
	}

	c.ID = id.CredentialID(credID)
	c.Fingerprint = fingerprint.Fingerprint(fp)
	c.HolderDID = id.DID(holder)
	c.IssuerDID = id.DID(issuer)
	c.Types = types
	c.IssuedAt = issuedAt.UTC()
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		c.ExpiresAt = &t
	}
	c.Status = models.Status(status)
	c.Anchor.State = models.AnchorState(anchorState)
	c.Anchor.PendingOp = models.AnchorOp(anchorOp)

	if err := unmarshalClaims(claims, &c.Claims); err != nil {
		return nil, err
	}
	if len(schema) > 0 {
		c.Schema = &models.Schema{}
		if err := json.Unmarshal(schema, c.Schema); err != nil {
			return nil, fmt.Errorf("unmarshal credential schema: %w", err)
		}
	}
	if len(proof) > 0 {
		c.Proof = &models.Proof{}
		if err := json.Unmarshal(proof, c.Proof); err != nil {
			return nil, fmt.Errorf("unmarshal proof: %w", err)
		}
	}
	return &c, nil
}

// unmarshalClaims keeps numbers as json.Number so re-canonicalizing a stored
// record reproduces the issued bytes.
func unmarshalClaims(raw []byte, dst *map[string]any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("unmarshal claims: %w", err)
	}
	return nil
}

func nullableJSON(v any) ([]byte, error) {
	switch t := v.(type) {
	case *models.Schema:
		if t == nil {
			return nil, nil
		}
	case *models.Proof:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
