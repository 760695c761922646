// Package domain holds typed identifiers and small shared value types.
//
// IDs are distinct types over uuid.UUID so the compiler catches swapped
// arguments between the authentication and profile aggregates.
package domain

import (
	"github.com/google/uuid"

	dErrors "sigil/pkg/domain-errors"
)

// AuthID identifies an authentication record.
type AuthID uuid.UUID

// ProfileID identifies a profile record. Independent of AuthID.
type ProfileID uuid.UUID

func (id AuthID) String() string    { return uuid.UUID(id).String() }
func (id ProfileID) String() string { return uuid.UUID(id).String() }

func (id AuthID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewAuthID returns a fresh random AuthID.
func NewAuthID() AuthID { return AuthID(uuid.New()) }

// NewProfileID returns a fresh random ProfileID.
func NewProfileID() ProfileID { return ProfileID(uuid.New()) }

// ParseAuthID constructs an AuthID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed, or nil.
func ParseAuthID(s string) (AuthID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AuthID{}, err
	}
	return AuthID(u), nil
}

// ParseProfileID constructs a ProfileID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed, or nil.
func ParseProfileID(s string) (ProfileID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ProfileID{}, err
	}
	return ProfileID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}
