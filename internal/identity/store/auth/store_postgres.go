package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sigil/internal/identity/blindindex"
	"sigil/internal/identity/cipher"
	"sigil/internal/identity/models"
	"sigil/internal/identity/store"
	"sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
	txcontext "sigil/pkg/platform/tx"
	"sigil/pkg/requestcontext"
)

// uniqueViolation is the Postgres error code raised by the partial unique
// indexes on email_blind_index and google_id. Uniqueness is enforced here, at
// the store boundary, so concurrent registrations with the same email race on
// the index rather than on application logic.
const uniqueViolation = "23505"

const authColumns = `id, email_encrypted, email_blind_index, password_hash,
	COALESCE(refresh_token_hash, ''), COALESCE(google_id, ''), role,
	created_at, updated_at, deleted_at`

// Postgres persists authentication records in the authentication table.
type Postgres struct {
	db     *sql.DB
	codec  *blindindex.Codec
	cipher *cipher.EmailCipher
}

// NewPostgres constructs a PostgreSQL-backed auth store.
func NewPostgres(db *sql.DB, codec *blindindex.Codec, emailCipher *cipher.EmailCipher) *Postgres {
	return &Postgres{db: db, codec: codec, cipher: emailCipher}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, auth store.NewAuth) (*models.AuthRecord, error) {
	index := s.codec.Index(auth.Email)
	encrypted, err := s.cipher.Encrypt(blindindex.Normalize(auth.Email))
	if err != nil {
		return nil, fmt.Errorf("encrypt email: %w", err)
	}

	now := requestcontext.Now(ctx)
	query := `
		INSERT INTO authentication
			(id, email_encrypted, email_blind_index, password_hash, google_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(auth.ID), encrypted, index, auth.PasswordHash,
		nullString(auth.GoogleID), string(auth.Role), now,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("auth record already exists: %w", sentinel.ErrConflict)
		}
		return nil, fmt.Errorf("create auth record: %w", err)
	}

	record := &models.AuthRecord{
		ID:              auth.ID,
		EmailEncrypted:  encrypted,
		EmailBlindIndex: index,
		GoogleID:        auth.GoogleID,
		Role:            auth.Role,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return record, nil
}

// FindByEmail queries on the computed blind index only; the plaintext email
// never reaches the database.
func (s *Postgres) FindByEmail(ctx context.Context, email string, withSecret bool) (*models.AuthRecord, error) {
	query := `SELECT ` + authColumns + ` FROM authentication
		WHERE email_blind_index = $1 AND deleted_at IS NULL`
	record, err := s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, s.codec.Index(email)))
	if err != nil {
		return nil, err
	}
	if withSecret {
		return record, nil
	}
	return record.Redact(false), nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.AuthID, withSecret bool) (*models.AuthRecord, error) {
	query := `SELECT ` + authColumns + ` FROM authentication
		WHERE id = $1 AND deleted_at IS NULL`
	record, err := s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		return nil, err
	}
	if withSecret {
		return record, nil
	}
	return record.Redact(true), nil
}

func (s *Postgres) FindByGoogleID(ctx context.Context, googleID string) (*models.AuthRecord, error) {
	query := `SELECT ` + authColumns + ` FROM authentication
		WHERE google_id = $1 AND deleted_at IS NULL`
	record, err := s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, googleID))
	if err != nil {
		return nil, err
	}
	return record.Redact(false), nil
}

func (s *Postgres) Update(ctx context.Context, id domain.AuthID, update models.AuthUpdate) (*models.AuthRecord, error) {
	query := `
		UPDATE authentication SET
			password_hash      = COALESCE($2, password_hash),
			refresh_token_hash = COALESCE($3, refresh_token_hash),
			google_id          = CASE WHEN $4::text IS NULL THEN google_id ELSE NULLIF($4, '') END,
			role               = COALESCE($5, role),
			updated_at         = $6
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + authColumns
	var rolePtr *string
	if update.Role != nil {
		r := string(*update.Role)
		rolePtr = &r
	}
	row := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(id), update.PasswordHash, update.RefreshTokenHash,
		update.GoogleID, rolePtr, requestcontext.Now(ctx),
	)
	record, err := s.scanOne(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("google id already linked: %w", sentinel.ErrConflict)
		}
		return nil, err
	}
	return record.Redact(true), nil
}

func (s *Postgres) SoftDelete(ctx context.Context, id domain.AuthID) error {
	query := `UPDATE authentication SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(id), requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("soft delete auth record: %w", err)
	}
	return requireRowAffected(res)
}

func (s *Postgres) ClearRefreshToken(ctx context.Context, id domain.AuthID) error {
	query := `UPDATE authentication SET refresh_token_hash = NULL, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(id), requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return requireRowAffected(res)
}

// FindByIDIncludingDeleted bypasses the soft-delete filter. Administrative
// use only; secrets stay redacted.
func (s *Postgres) FindByIDIncludingDeleted(ctx context.Context, id domain.AuthID) (*models.AuthRecord, error) {
	query := `SELECT ` + authColumns + ` FROM authentication WHERE id = $1`
	record, err := s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		return nil, err
	}
	return record.Redact(true), nil
}

func (s *Postgres) LiveIDsByRole(ctx context.Context, role domain.Role) ([]domain.AuthID, error) {
	query := `SELECT id FROM authentication WHERE role = $1 AND deleted_at IS NULL`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("list auth ids by role: %w", err)
	}
	defer rows.Close()

	var ids []domain.AuthID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan auth id: %w", err)
		}
		ids = append(ids, domain.AuthID(u))
	}
	return ids, rows.Err()
}

func (s *Postgres) scanOne(row *sql.Row) (*models.AuthRecord, error) {
	var (
		record models.AuthRecord
		u      uuid.UUID
		role   string
		delAt  sql.NullTime
	)
	err := row.Scan(&u, &record.EmailEncrypted, &record.EmailBlindIndex,
		&record.PasswordHash, &record.RefreshTokenHash, &record.GoogleID,
		&role, &record.CreatedAt, &record.UpdatedAt, &delAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("auth record not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan auth record: %w", err)
	}
	record.ID = domain.AuthID(u)
	record.Role = domain.Role(role)
	if delAt.Valid {
		record.DeletedAt = &delAt.Time
	}
	return &record, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("auth record not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
