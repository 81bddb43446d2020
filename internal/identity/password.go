package identity

import (
	"context"

	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/mailer"
)

// RequestPasswordReset issues a reset code and mails it to the account's address.
func (s *service) RequestPasswordReset(ctx context.Context, username, email string) error {
	if s.isRoot(username) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
	}
	account := s.accounts.Account(username)
	code, err := account.RequestPasswordReset(ctx, email)
	if err != nil {
		return err
	}
	s.sendCode(ctx, mailer.PurposePasswordReset, email, code, username)
	return nil
}

func (s *service) ResetPassword(ctx context.Context, username, code, newPassword string) error {
	hashed, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	return s.accounts.Account(username).ResetPassword(ctx, code, hashed)
}
