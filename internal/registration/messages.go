package registration

import "sigil/pkg/domain"

// Message names routed through the event bus. Commands instruct, events
// record facts; both share the bus contract.
const (
	CommandCreateProfile  = "registration.profile.create"
	CommandDeleteAuthUser = "registration.auth_user.delete"

	EventProfileCreationFailed = "registration.profile.creation_failed"
	EventAuthUserDeleted       = "registration.auth_user.deleted"
)

// CreateProfileCommand asks the saga to attempt the profile-creation step.
// The authentication record identified by AuthID already exists; it was
// created upstream by the registration flow.
type CreateProfileCommand struct {
	ProfileID domain.ProfileID
	AuthID    domain.AuthID
	Name      string
	Lastname  string
	Age       int
}

func (CreateProfileCommand) MessageName() string { return CommandCreateProfile }

// DeleteAuthUserCommand asks for the compensating deletion of both records.
// Published by the failure-fact handler, and usable directly as the manual
// operator entry point; the handler's idempotence makes replays safe.
type DeleteAuthUserCommand struct {
	AuthID    domain.AuthID
	ProfileID domain.ProfileID
}

func (DeleteAuthUserCommand) MessageName() string { return CommandDeleteAuthUser }

// ProfileCreationFailed records that the profile-creation step failed and the
// registration needs compensation.
type ProfileCreationFailed struct {
	AuthID    domain.AuthID
	ProfileID domain.ProfileID
	Reason    string
}

func (ProfileCreationFailed) MessageName() string { return EventProfileCreationFailed }

// AuthUserDeleted is the terminal fact of the compensation path: both records
// are gone. Audit and notification subscribers consume it downstream.
type AuthUserDeleted struct {
	AuthID    domain.AuthID
	ProfileID domain.ProfileID
}

func (AuthUserDeleted) MessageName() string { return EventAuthUserDeleted }
