// Package registration orchestrates the cross-aggregate registration saga.
//
// Creating a user spans two persistence boundaries, so it cannot be one
// atomic write. The authentication record commits first (upstream); this
// package owns the second step, profile creation, and the compensating
// deletion of both records when that step fails. The saga owns sequencing
// and the decision to compensate, never the records' storage.
//
// Per registration attempt (authId, profileId):
//
//	pending -> committed                                  (create succeeds, silent)
//	        -> failed -> compensating -> compensated      (create fails)
//
// Compensation is fact-driven rather than exception-driven: the failure
// handler publishes a deletion command instead of deleting inline, so
// retries, out-of-process recovery, and operator-triggered compensation all
// reuse one idempotent entry point.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sigil/internal/events"
	identitymodels "sigil/internal/identity/models"
	profilemodels "sigil/internal/profile/models"
	"sigil/internal/registration/metrics"
	"sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/sentinel"
)

// AuthStore is the slice of the identity store the saga needs.
type AuthStore interface {
	FindByID(ctx context.Context, id domain.AuthID, withSecret bool) (*identitymodels.AuthRecord, error)
	SoftDelete(ctx context.Context, id domain.AuthID) error
}

// ProfileStore is the slice of the profile store the saga needs.
type ProfileStore interface {
	Create(ctx context.Context, profile *profilemodels.ProfileRecord) (*profilemodels.ProfileRecord, error)
	Delete(ctx context.Context, id domain.ProfileID) error
}

// Publisher hands facts and commands to the event bus.
type Publisher interface {
	Publish(ctx context.Context, msg events.Message)
}

// Saga wires the registration handlers onto the bus.
type Saga struct {
	auths    AuthStore
	profiles ProfileStore
	bus      Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// NewSaga constructs the saga. Metrics may be nil in tests.
func NewSaga(auths AuthStore, profiles ProfileStore, bus Publisher, logger *slog.Logger, m *metrics.Metrics) *Saga {
	return &Saga{
		auths:    auths,
		profiles: profiles,
		bus:      bus,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("sigil/registration"),
	}
}

// Register binds the saga's handlers to their message names. Called once at
// startup, before the bus starts receiving traffic.
func (s *Saga) Register(bus *events.Bus) {
	bus.Subscribe(CommandCreateProfile, s.handleCreateProfile)
	bus.Subscribe(EventProfileCreationFailed, s.handleProfileCreationFailed)
	bus.Subscribe(CommandDeleteAuthUser, s.handleDeleteAuthUser)
}

// handleCreateProfile attempts the profile-creation step. Success is silent
// by design; only failure and compensation are observable facts. The storage
// error is converted into a published fact, never propagated to the caller:
// registration is fire-and-forget once the command is accepted.
func (s *Saga) handleCreateProfile(ctx context.Context, msg events.Message) error {
	cmd, ok := msg.(CreateProfileCommand)
	if !ok {
		return fmt.Errorf("unexpected message type %T for %s", msg, CommandCreateProfile)
	}

	ctx, span := s.tracer.Start(ctx, "registration.create_profile", trace.WithAttributes(
		attribute.String("auth_id", cmd.AuthID.String()),
		attribute.String("profile_id", cmd.ProfileID.String()),
	))
	defer span.End()

	s.logger.Info("creating profile",
		"auth_id", cmd.AuthID, "profile_id", cmd.ProfileID)

	_, err := s.profiles.Create(ctx, &profilemodels.ProfileRecord{
		ID:       cmd.ProfileID,
		AuthID:   cmd.AuthID,
		Name:     cmd.Name,
		Lastname: cmd.Lastname,
		Age:      cmd.Age,
	})
	if err != nil {
		s.logger.Error("profile creation failed",
			"auth_id", cmd.AuthID, "profile_id", cmd.ProfileID, "error", err)
		s.countCreationFailure()

		s.bus.Publish(ctx, ProfileCreationFailed{
			AuthID:    cmd.AuthID,
			ProfileID: cmd.ProfileID,
			Reason:    err.Error(),
		})
		return nil
	}

	s.logger.Info("profile created",
		"auth_id", cmd.AuthID, "profile_id", cmd.ProfileID)
	s.countProfileCreated()
	return nil
}

// handleProfileCreationFailed reacts to the failure fact by dispatching the
// compensation command. Kept separate from the compensation itself so the
// deletion entry point stays reusable for replays and manual triggering.
func (s *Saga) handleProfileCreationFailed(ctx context.Context, msg events.Message) error {
	fact, ok := msg.(ProfileCreationFailed)
	if !ok {
		return fmt.Errorf("unexpected message type %T for %s", msg, EventProfileCreationFailed)
	}

	s.logger.Warn("dispatching compensation for failed registration",
		"auth_id", fact.AuthID, "profile_id", fact.ProfileID, "reason", fact.Reason)

	s.bus.Publish(ctx, DeleteAuthUserCommand{
		AuthID:    fact.AuthID,
		ProfileID: fact.ProfileID,
	})
	return nil
}

// handleDeleteAuthUser is the compensating transaction. The existence check
// makes it idempotent under at-least-once delivery: an absent authentication
// record means compensation already ran (or a direct user delete won the
// race), and the handler stops without error.
//
// Deletion order is profile first, then authentication record, so there is
// no window where a live profile references a deleted authentication record.
func (s *Saga) handleDeleteAuthUser(ctx context.Context, msg events.Message) error {
	cmd, ok := msg.(DeleteAuthUserCommand)
	if !ok {
		return fmt.Errorf("unexpected message type %T for %s", msg, CommandDeleteAuthUser)
	}

	ctx, span := s.tracer.Start(ctx, "registration.compensate", trace.WithAttributes(
		attribute.String("auth_id", cmd.AuthID.String()),
		attribute.String("profile_id", cmd.ProfileID.String()),
	))
	defer span.End()

	s.logger.Warn("compensating: deleting auth user and associated profile",
		"auth_id", cmd.AuthID, "profile_id", cmd.ProfileID)

	_, err := s.auths.FindByID(ctx, cmd.AuthID, false)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.Warn("auth user not found, treating as already compensated",
				"auth_id", cmd.AuthID, "profile_id", cmd.ProfileID)
			return nil
		}
		return s.compensationFailed(cmd, fmt.Errorf("lookup auth record: %w", err))
	}

	if err := s.profiles.Delete(ctx, cmd.ProfileID); err != nil {
		return s.compensationFailed(cmd, fmt.Errorf("delete profile: %w", err))
	}

	if err := s.auths.SoftDelete(ctx, cmd.AuthID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return s.compensationFailed(cmd, fmt.Errorf("soft delete auth record: %w", err))
	}

	s.logger.Info("compensation complete, auth user and profile deleted",
		"auth_id", cmd.AuthID, "profile_id", cmd.ProfileID)
	s.countCompensation()

	s.bus.Publish(ctx, AuthUserDeleted{
		AuthID:    cmd.AuthID,
		ProfileID: cmd.ProfileID,
	})
	return nil
}

// compensationFailed records a terminal failure. There is no second-order
// recovery: the error is surfaced for operator attention with both ids and
// the saga does not retry.
func (s *Saga) compensationFailed(cmd DeleteAuthUserCommand, err error) error {
	s.logger.Error("compensation failed, orphaned auth record requires operator attention",
		"auth_id", cmd.AuthID, "profile_id", cmd.ProfileID, "error", err)
	s.countCompensationFailure()
	return dErrors.Wrap(err, dErrors.CodeCompensationFailed, "compensating deletion failed")
}

func (s *Saga) countProfileCreated() {
	if s.metrics != nil {
		s.metrics.ProfilesCreated.Inc()
	}
}

func (s *Saga) countCreationFailure() {
	if s.metrics != nil {
		s.metrics.CreationFailures.Inc()
	}
}

func (s *Saga) countCompensation() {
	if s.metrics != nil {
		s.metrics.Compensations.Inc()
	}
}

func (s *Saga) countCompensationFailure() {
	if s.metrics != nil {
		s.metrics.CompensationFailures.Inc()
	}
}
