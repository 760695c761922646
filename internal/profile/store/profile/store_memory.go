package profile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"sigil/internal/profile/models"
	"sigil/internal/profile/store"
	"sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

// InMemory keeps profile records in memory for tests and local dev.
type InMemory struct {
	mu       sync.RWMutex
	records  map[domain.ProfileID]*models.ProfileRecord
	byAuthID map[domain.AuthID]domain.ProfileID

	roles store.RoleLookup

	// profileScans counts scans of profile storage; tests assert the
	// role-lookup short circuit through it.
	profileScans atomic.Int64
}

// NewInMemory constructs an empty in-memory profile store.
func NewInMemory(roles store.RoleLookup) *InMemory {
	return &InMemory{
		records:  make(map[domain.ProfileID]*models.ProfileRecord),
		byAuthID: make(map[domain.AuthID]domain.ProfileID),
		roles:    roles,
	}
}

func (s *InMemory) Create(ctx context.Context, profile *models.ProfileRecord) (*models.ProfileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[profile.ID]; ok && !existing.IsDeleted() {
		return nil, fmt.Errorf("profile id already exists: %w", sentinel.ErrConflict)
	}
	if _, ok := s.byAuthID[profile.AuthID]; ok {
		return nil, fmt.Errorf("auth record already has a profile: %w", sentinel.ErrConflict)
	}

	now := requestcontext.Now(ctx)
	record := profile.Clone()
	record.CreatedAt = now
	record.UpdatedAt = now
	record.DeletedAt = nil

	s.records[record.ID] = record
	s.byAuthID[record.AuthID] = record.ID
	return record.Clone(), nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.ProfileID) (*models.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok || record.IsDeleted() {
		return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	return record.Clone(), nil
}

func (s *InMemory) FindByAuthID(_ context.Context, authID domain.AuthID) (*models.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAuthID[authID]
	if !ok {
		return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	return s.records[id].Clone(), nil
}

func (s *InMemory) FindByRole(ctx context.Context, role domain.Role) ([]*models.ProfileRecord, error) {
	ids, err := s.roles.LiveIDsByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("resolve role members: %w", err)
	}
	if len(ids) == 0 {
		return []*models.ProfileRecord{}, nil
	}

	s.profileScans.Add(1)

	wanted := make(map[domain.AuthID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var profiles []*models.ProfileRecord
	for _, record := range s.records {
		if record.IsDeleted() || !wanted[record.AuthID] {
			continue
		}
		profiles = append(profiles, record.Clone())
	}
	return profiles, nil
}

func (s *InMemory) Update(ctx context.Context, id domain.ProfileID, update models.ProfileUpdate) (*models.ProfileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || record.IsDeleted() {
		return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}

	if update.Name != nil {
		record.Name = *update.Name
	}
	if update.Lastname != nil {
		record.Lastname = *update.Lastname
	}
	if update.Age != nil {
		record.Age = *update.Age
	}
	record.UpdatedAt = requestcontext.Now(ctx)

	return record.Clone(), nil
}

// Delete is an idempotent soft delete: unknown and already-deleted ids are
// no-ops so compensation can replay safely.
func (s *InMemory) Delete(ctx context.Context, id domain.ProfileID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || record.IsDeleted() {
		return nil
	}

	now := requestcontext.Now(ctx)
	record.DeletedAt = &now
	delete(s.byAuthID, record.AuthID)
	return nil
}

// FindByIDIncludingDeleted bypasses the soft-delete filter for verification
// and admin tooling.
func (s *InMemory) FindByIDIncludingDeleted(_ context.Context, id domain.ProfileID) (*models.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	return record.Clone(), nil
}

// ProfileScans reports how many times profile storage was scanned; exposed
// for short-circuit assertions in tests.
func (s *InMemory) ProfileScans() int64 {
	return s.profileScans.Load()
}
