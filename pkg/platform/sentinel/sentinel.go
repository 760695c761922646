package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist, or exists only soft-deleted
// - ErrConflict: a uniqueness constraint (blind index, google id) was violated
// - ErrUnavailable: backing store temporarily unreachable
// - ErrInvalidState: a caller asked the store for something incoherent
//   (non-positive TTL, nil record)
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)
