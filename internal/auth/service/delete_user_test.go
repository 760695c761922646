package service

import (
	"context"

	"go.uber.org/mock/gomock"

	"sigil/internal/events"
	"sigil/internal/registration"
	"sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
)

func (s *ServiceSuite) TestDeleteUser_DeletesProfileBeforeAuth() {
	ctx := context.Background()
	authID := domain.NewAuthID()
	profileID := domain.NewProfileID()

	s.profiles.EXPECT().FindByAuthID(gomock.Any(), authID).
		Return(profileRecord(profileID, authID, "Ada"), nil)

	gomock.InOrder(
		s.profiles.EXPECT().Delete(gomock.Any(), profileID).Return(nil),
		s.auths.EXPECT().SoftDelete(gomock.Any(), authID).Return(nil),
	)

	var published events.Message
	s.bus.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, msg events.Message) { published = msg })

	s.Require().NoError(s.service.DeleteUser(ctx, authID))

	fact, ok := published.(registration.AuthUserDeleted)
	s.Require().True(ok)
	s.Equal(authID, fact.AuthID)
	s.Equal(profileID, fact.ProfileID)
}

func (s *ServiceSuite) TestDeleteUser_WithoutProfile() {
	ctx := context.Background()
	authID := domain.NewAuthID()

	s.profiles.EXPECT().FindByAuthID(gomock.Any(), authID).
		Return(nil, wrapNotFound("profile"))
	s.auths.EXPECT().SoftDelete(gomock.Any(), authID).Return(nil)
	s.bus.EXPECT().Publish(gomock.Any(), gomock.Any())

	s.Require().NoError(s.service.DeleteUser(ctx, authID))
}

func (s *ServiceSuite) TestDeleteUser_UnknownUser() {
	ctx := context.Background()
	authID := domain.NewAuthID()

	s.profiles.EXPECT().FindByAuthID(gomock.Any(), authID).
		Return(nil, wrapNotFound("profile"))
	s.auths.EXPECT().SoftDelete(gomock.Any(), authID).
		Return(wrapNotFound("auth record"))

	err := s.service.DeleteUser(ctx, authID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
