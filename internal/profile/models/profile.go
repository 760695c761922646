// Package models defines the profile aggregate.
package models

import (
	"time"

	"sigil/pkg/domain"
)

// ProfileRecord is the profile aggregate. AuthID references exactly one
// authentication record; the reference is validated at creation time only,
// since either side may later be soft-deleted independently.
type ProfileRecord struct {
	ID       domain.ProfileID
	AuthID   domain.AuthID
	Name     string
	Lastname string
	Age      int

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// IsDeleted reports whether the record is soft-deleted.
func (p *ProfileRecord) IsDeleted() bool {
	return p.DeletedAt != nil
}

// Clone returns an independent copy so store internals never leak mutable
// references to callers.
func (p *ProfileRecord) Clone() *ProfileRecord {
	cp := *p
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}

// ProfileUpdate carries a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	Name     *string
	Lastname *string
	Age      *int
}
