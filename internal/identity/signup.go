package identity

import (
	"context"

	"github.com/openbiocard/openbiocard-backend/internal/accounts"
	"github.com/openbiocard/openbiocard-backend/internal/directory"
	"github.com/openbiocard/openbiocard-backend/pkg/enums"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/mailer"
	"github.com/openbiocard/openbiocard-backend/pkg/security"
	"github.com/openbiocard/openbiocard-backend/pkg/types"
)

func (s *service) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	email := types.NormalizeEmail(in.Email)
	if s.isRoot(in.Username) {
		return nil, usernameTaken()
	}
	if err := s.directory.CheckUniqueness(ctx, in.Username, email); err != nil {
		return nil, err
	}

	hashed, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	record := accounts.Record{
		PasswordHash: hashed,
		Type:         enums.AccountTypeUser,
		Token:        security.NewOpaqueToken(),
		Email:        email,
	}
	if email != "" {
		code, err := security.GenerateNumericCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
		}
		record.VerificationCode = code
	}

	if err := s.accounts.Account(in.Username).Create(ctx, record); err != nil {
		return nil, err
	}

	unverified := false
	switch {
	case email == "":
		s.projectBestEffort(ctx, FlowSignup, in.Username, func(ctx context.Context) error {
			return s.directory.AddUser(ctx, directory.UpsertInput{
				Username:      in.Username,
				Type:          record.Type,
				EmailVerified: &unverified,
			})
		})
	case s.policy.Immediate():
		s.sendCode(ctx, mailer.PurposeVerification, email, record.VerificationCode, in.Username)
		s.projectBestEffort(ctx, FlowSignup, in.Username, func(ctx context.Context) error {
			return s.directory.AddUser(ctx, directory.UpsertInput{
				Username:      in.Username,
				Type:          record.Type,
				Email:         &email,
				EmailVerified: &unverified,
			})
		})
	default:
		s.sendCode(ctx, mailer.PurposeVerification, email, record.VerificationCode, in.Username)
		s.skip(ctx, FlowSignup, in.Username)
	}

	return &SignupResult{Token: record.Token, NeedsVerification: email != ""}, nil
}

func (s *service) VerifyEmail(ctx context.Context, username, code string) error {
	record, err := s.accounts.Account(username).VerifyEmail(ctx, code)
	if err != nil {
		return err
	}

	verified := true
	return s.project(ctx, FlowVerifyEmail, username, gated, func(ctx context.Context) error {
		return s.directory.AddUser(ctx, directory.UpsertInput{
			Username:      username,
			Type:          record.Type,
			Email:         &record.Email,
			EmailVerified: &verified,
		})
	})
}
