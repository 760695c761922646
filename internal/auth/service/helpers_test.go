package service

import (
	"fmt"

	profilemodels "sigil/internal/profile/models"
	"sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
)

func wrapNotFound(what string) error {
	return fmt.Errorf("%s: %w", what, sentinel.ErrNotFound)
}

func wrapConflict(what string) error {
	return fmt.Errorf("%s: %w", what, sentinel.ErrConflict)
}

func profileRecord(id domain.ProfileID, authID domain.AuthID, name string) *profilemodels.ProfileRecord {
	return &profilemodels.ProfileRecord{ID: id, AuthID: authID, Name: name}
}
