package auth

import (
	"context"
	"fmt"
	"sync"

	"sigil/internal/identity/blindindex"
	"sigil/internal/identity/cipher"
	"sigil/internal/identity/models"
	"sigil/internal/identity/store"
	"sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

// InMemory keeps authentication records in memory for tests and local dev.
// The mutex makes it single-writer-per-record the same way the Postgres
// implementation relies on row locks and partial unique indexes.
type InMemory struct {
	mu      sync.RWMutex
	records map[domain.AuthID]*models.AuthRecord

	// live-only secondary indexes; entries are removed on soft delete so a
	// re-registration after deletion can reuse the email or google id.
	byBlindIndex map[string]domain.AuthID
	byGoogleID   map[string]domain.AuthID

	codec  *blindindex.Codec
	cipher *cipher.EmailCipher
}

// NewInMemory constructs an empty in-memory auth store.
func NewInMemory(codec *blindindex.Codec, emailCipher *cipher.EmailCipher) *InMemory {
	return &InMemory{
		records:      make(map[domain.AuthID]*models.AuthRecord),
		byBlindIndex: make(map[string]domain.AuthID),
		byGoogleID:   make(map[string]domain.AuthID),
		codec:        codec,
		cipher:       emailCipher,
	}
}

func (s *InMemory) Create(ctx context.Context, auth store.NewAuth) (*models.AuthRecord, error) {
	index := s.codec.Index(auth.Email)
	encrypted, err := s.cipher.Encrypt(blindindex.Normalize(auth.Email))
	if err != nil {
		return nil, fmt.Errorf("encrypt email: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byBlindIndex[index]; exists {
		return nil, fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
	}
	if auth.GoogleID != "" {
		if _, exists := s.byGoogleID[auth.GoogleID]; exists {
			return nil, fmt.Errorf("google id already linked: %w", sentinel.ErrConflict)
		}
	}

	now := requestcontext.Now(ctx)
	record := &models.AuthRecord{
		ID:              auth.ID,
		EmailEncrypted:  encrypted,
		EmailBlindIndex: index,
		PasswordHash:    auth.PasswordHash,
		GoogleID:        auth.GoogleID,
		Role:            auth.Role,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.records[record.ID] = record
	s.byBlindIndex[index] = record.ID
	if auth.GoogleID != "" {
		s.byGoogleID[auth.GoogleID] = record.ID
	}
	return record.Redact(false), nil
}

// FindByEmail computes the blind index of the normalized input and looks it
// up; the plaintext is never compared against stored data.
func (s *InMemory) FindByEmail(_ context.Context, email string, withSecret bool) (*models.AuthRecord, error) {
	index := s.codec.Index(email)

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byBlindIndex[index]
	if !ok {
		return nil, fmt.Errorf("auth record not found: %w", sentinel.ErrNotFound)
	}
	record := s.records[id]
	if withSecret {
		return record.Clone(), nil
	}
	return record.Redact(false), nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.AuthID, withSecret bool) (*models.AuthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok || record.IsDeleted() {
		return nil, fmt.Errorf("auth record not found: %w", sentinel.ErrNotFound)
	}
	if withSecret {
		return record.Clone(), nil
	}
	return record.Redact(true), nil
}

func (s *InMemory) FindByGoogleID(_ context.Context, googleID string) (*models.AuthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byGoogleID[googleID]
	if !ok {
		return nil, fmt.Errorf("auth record not found: %w", sentinel.ErrNotFound)
	}
	return s.records[id].Redact(false), nil
}

func (s *InMemory) Update(ctx context.Context, id domain.AuthID, update models.AuthUpdate) (*models.AuthRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || record.IsDeleted() {
		return nil, fmt.Errorf("auth record not found: %w", sentinel.ErrNotFound)
	}

	if update.GoogleID != nil && *update.GoogleID != "" && *update.GoogleID != record.GoogleID {
		if _, exists := s.byGoogleID[*update.GoogleID]; exists {
			return nil, fmt.Errorf("google id already linked: %w", sentinel.ErrConflict)
		}
	}

	if update.PasswordHash != nil {
		record.PasswordHash = *update.PasswordHash
	}
	if update.RefreshTokenHash != nil {
		record.RefreshTokenHash = *update.RefreshTokenHash
	}
	if update.GoogleID != nil {
		if record.GoogleID != "" {
			delete(s.byGoogleID, record.GoogleID)
		}
		record.GoogleID = *update.GoogleID
		if record.GoogleID != "" {
			s.byGoogleID[record.GoogleID] = id
		}
	}
	if update.Role != nil {
		record.Role = *update.Role
	}
	record.UpdatedAt = requestcontext.Now(ctx)

	return record.Redact(true), nil
}

func (s *InMemory) SoftDelete(ctx context.Context, id domain.AuthID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || record.IsDeleted() {
		return fmt.Errorf("auth record not found: %w", sentinel.ErrNotFound)
	}

	now := requestcontext.Now(ctx)
	record.DeletedAt = &now
	delete(s.byBlindIndex, record.EmailBlindIndex)
	if record.GoogleID != "" {
		delete(s.byGoogleID, record.GoogleID)
	}
	return nil
}

func (s *InMemory) ClearRefreshToken(ctx context.Context, id domain.AuthID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || record.IsDeleted() {
		return fmt.Errorf("auth record not found: %w", sentinel.ErrNotFound)
	}
	record.RefreshTokenHash = ""
	record.UpdatedAt = requestcontext.Now(ctx)
	return nil
}

// FindByIDIncludingDeleted bypasses the soft-delete filter. Administrative
// use only; secrets stay redacted.
func (s *InMemory) FindByIDIncludingDeleted(_ context.Context, id domain.AuthID) (*models.AuthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("auth record not found: %w", sentinel.ErrNotFound)
	}
	return record.Redact(true), nil
}

func (s *InMemory) LiveIDsByRole(_ context.Context, role domain.Role) ([]domain.AuthID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []domain.AuthID
	for _, record := range s.records {
		if record.IsDeleted() || record.Role != role {
			continue
		}
		ids = append(ids, record.ID)
	}
	return ids, nil
}
