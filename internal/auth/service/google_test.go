package service

import (
	"context"

	"go.uber.org/mock/gomock"

	"sigil/internal/events"
	"sigil/internal/identity/models"
	"sigil/internal/identity/store"
	"sigil/internal/registration"
	"sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
)

func (s *ServiceSuite) TestFindOrCreateGoogleUser_ExistingLinkage() {
	ctx := context.Background()
	rec := s.authRecord("")
	rec.GoogleID = "google-123"

	s.auths.EXPECT().FindByGoogleID(gomock.Any(), "google-123").Return(rec, nil)
	s.expectRefreshHashPersisted(rec, nil)

	pair, err := s.service.FindOrCreateGoogleUser(ctx, GoogleIdentity{
		GoogleID: "google-123",
		Email:    "ada@example.com",
	})
	s.Require().NoError(err)
	s.NotEmpty(pair.AccessToken)
}

func (s *ServiceSuite) TestFindOrCreateGoogleUser_LinksByEmail() {
	ctx := context.Background()
	rec := s.authRecord("password123")

	s.auths.EXPECT().FindByGoogleID(gomock.Any(), "google-123").
		Return(nil, wrapNotFound("auth record"))
	s.auths.EXPECT().FindByEmail(gomock.Any(), "ada@example.com", false).
		Return(rec, nil)

	linked := rec.Clone()
	linked.GoogleID = "google-123"
	gomock.InOrder(
		s.auths.EXPECT().
			Update(gomock.Any(), rec.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ domain.AuthID, update models.AuthUpdate) (*models.AuthRecord, error) {
				s.Require().NotNil(update.GoogleID)
				s.Equal("google-123", *update.GoogleID)
				return linked, nil
			}),
		s.auths.EXPECT().
			Update(gomock.Any(), rec.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ domain.AuthID, update models.AuthUpdate) (*models.AuthRecord, error) {
				s.Require().NotNil(update.RefreshTokenHash)
				return linked, nil
			}),
	)

	pair, err := s.service.FindOrCreateGoogleUser(ctx, GoogleIdentity{
		GoogleID: "google-123",
		Email:    "ada@example.com",
	})
	s.Require().NoError(err)
	s.NotEmpty(pair.RefreshToken)
}

func (s *ServiceSuite) TestFindOrCreateGoogleUser_CreatesPasswordlessAccount() {
	ctx := context.Background()

	s.auths.EXPECT().FindByGoogleID(gomock.Any(), "google-123").
		Return(nil, wrapNotFound("auth record"))
	s.auths.EXPECT().FindByEmail(gomock.Any(), "ada@example.com", false).
		Return(nil, wrapNotFound("auth record"))

	var createdWith store.NewAuth
	s.auths.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, auth store.NewAuth) (*models.AuthRecord, error) {
			createdWith = auth
			return &models.AuthRecord{ID: auth.ID, GoogleID: auth.GoogleID, Role: auth.Role}, nil
		})

	var published events.Message
	s.bus.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, msg events.Message) { published = msg })

	s.auths.EXPECT().
		Update(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id domain.AuthID, update models.AuthUpdate) (*models.AuthRecord, error) {
			s.Require().NotNil(update.RefreshTokenHash)
			return &models.AuthRecord{ID: id, Role: domain.RoleUser}, nil
		})

	pair, err := s.service.FindOrCreateGoogleUser(ctx, GoogleIdentity{
		GoogleID: "google-123",
		Email:    "ada@example.com",
		Name:     "Ada",
		Lastname: "Lovelace",
	})
	s.Require().NoError(err)
	s.NotEmpty(pair.AccessToken)

	s.Equal("google-123", createdWith.GoogleID)
	s.Empty(createdWith.PasswordHash, "google accounts carry no password hash")

	cmd, ok := published.(registration.CreateProfileCommand)
	s.Require().True(ok)
	s.Equal(createdWith.ID, cmd.AuthID)
	s.Equal("Ada", cmd.Name)
}

func (s *ServiceSuite) TestFindOrCreateGoogleUser_RequiresGoogleID() {
	_, err := s.service.FindOrCreateGoogleUser(context.Background(), GoogleIdentity{Email: "ada@example.com"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
