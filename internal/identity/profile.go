package identity

import (
	"context"

	"github.com/openbiocard/openbiocard-backend/internal/accounts"
)

func (s *service) GetProfile(ctx context.Context, username string) (*ProfileView, error) {
	account := s.accounts.Account(username)
	record, err := account.Get(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := account.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	return &ProfileView{
		Username:      record.Username,
		Type:          record.Type,
		Email:         record.Email,
		EmailVerified: record.EmailVerified,
		Profile:       *profile,
	}, nil
}

func (s *service) PublicProfile(ctx context.Context, username string) (*PublicProfile, error) {
	view, err := s.GetProfile(ctx, username)
	if err != nil {
		return nil, err
	}
	return &PublicProfile{
		Username: view.Username,
		Type:     view.Type,
		Profile:  view.Profile,
	}, nil
}

// UpdateProfile replaces the card and mirrors avatar and bio into the directory.
func (s *service) UpdateProfile(ctx context.Context, username string, profile accounts.Profile) error {
	if err := s.accounts.Account(username).UpdateProfile(ctx, profile); err != nil {
		return err
	}
	return s.project(ctx, FlowProfileEdit, username, bestEffort, func(ctx context.Context) error {
		return s.directory.SyncProfile(ctx, username, profile.Avatar, profile.Bio)
	})
}
