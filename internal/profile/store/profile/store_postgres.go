package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sigil/internal/profile/models"
	"sigil/internal/profile/store"
	"sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
	txcontext "sigil/pkg/platform/tx"
	"sigil/pkg/requestcontext"
)

const uniqueViolation = "23505"

const profileColumns = `id, auth_id, name, lastname, age, created_at, updated_at, deleted_at`

// Postgres persists profile records in the profile table.
type Postgres struct {
	db    *sql.DB
	roles store.RoleLookup
}

// NewPostgres constructs a PostgreSQL-backed profile store. Role resolution
// goes through the identity store rather than a SQL join so the two
// aggregates keep separate persistence boundaries.
func NewPostgres(db *sql.DB, roles store.RoleLookup) *Postgres {
	return &Postgres{db: db, roles: roles}
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

func (s *Postgres) Create(ctx context.Context, profile *models.ProfileRecord) (*models.ProfileRecord, error) {
	now := requestcontext.Now(ctx)
	query := `
		INSERT INTO profile (id, auth_id, name, lastname, age, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(profile.ID), uuid.UUID(profile.AuthID),
		profile.Name, profile.Lastname, profile.Age, now,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("profile already exists: %w", sentinel.ErrConflict)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	record := profile.Clone()
	record.CreatedAt = now
	record.UpdatedAt = now
	record.DeletedAt = nil
	return record, nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.ProfileID) (*models.ProfileRecord, error) {
	query := `SELECT ` + profileColumns + ` FROM profile WHERE id = $1 AND deleted_at IS NULL`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
}

func (s *Postgres) FindByAuthID(ctx context.Context, authID domain.AuthID) (*models.ProfileRecord, error) {
	query := `SELECT ` + profileColumns + ` FROM profile WHERE auth_id = $1 AND deleted_at IS NULL`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(authID)))
}

func (s *Postgres) FindByRole(ctx context.Context, role domain.Role) ([]*models.ProfileRecord, error) {
	ids, err := s.roles.LiveIDsByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("resolve role members: %w", err)
	}
	if len(ids) == 0 {
		return []*models.ProfileRecord{}, nil
	}

	authIDs := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		authIDs[i] = uuid.UUID(id)
	}

	query := `SELECT ` + profileColumns + ` FROM profile
		WHERE auth_id = ANY($1) AND deleted_at IS NULL`
	rows, err := s.execer(ctx).QueryContext(ctx, query, pq.Array(authIDs))
	if err != nil {
		return nil, fmt.Errorf("list profiles by role: %w", err)
	}
	defer rows.Close()

	var profiles []*models.ProfileRecord
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, record)
	}
	return profiles, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, id domain.ProfileID, update models.ProfileUpdate) (*models.ProfileRecord, error) {
	query := `
		UPDATE profile SET
			name       = COALESCE($2, name),
			lastname   = COALESCE($3, lastname),
			age        = COALESCE($4, age),
			updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + profileColumns
	row := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(id), update.Name, update.Lastname, nullInt(update.Age),
		requestcontext.Now(ctx),
	)
	return s.scanOne(row)
}

// Delete is an idempotent soft delete: zero rows affected is success, not an
// error, so compensation can replay safely.
func (s *Postgres) Delete(ctx context.Context, id domain.ProfileID) error {
	query := `UPDATE profile SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`
	if _, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(id), requestcontext.Now(ctx)); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

// FindByIDIncludingDeleted bypasses the soft-delete filter for verification
// and admin tooling.
func (s *Postgres) FindByIDIncludingDeleted(ctx context.Context, id domain.ProfileID) (*models.ProfileRecord, error) {
	query := `SELECT ` + profileColumns + ` FROM profile WHERE id = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
}

func (s *Postgres) scanOne(row *sql.Row) (*models.ProfileRecord, error) {
	record, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
		}
		return nil, err
	}
	return record, nil
}

func scanRecord(scan func(dest ...any) error) (*models.ProfileRecord, error) {
	var (
		record       models.ProfileRecord
		id, authID   uuid.UUID
		deletedAt    sql.NullTime
	)
	err := scan(&id, &authID, &record.Name, &record.Lastname, &record.Age,
		&record.CreatedAt, &record.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	record.ID = domain.ProfileID(id)
	record.AuthID = domain.AuthID(authID)
	if deletedAt.Valid {
		record.DeletedAt = &deletedAt.Time
	}
	return &record, nil
}

func nullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}
