package identity

import (
	"context"

	"github.com/openbiocard/openbiocard-backend/pkg/enums"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/security"
)

// Signin exchanges credentials for the account's bearer token. The root
// account signs in with its configured password.
func (s *service) Signin(ctx context.Context, username, password string) (*SigninResult, error) {
	if s.isRoot(username) {
		if !s.rootPasswordMatches(password) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		token, err := s.rootToken(ctx)
		if err != nil {
			return nil, err
		}
		return &SigninResult{
			Token:         token,
			Username:      username,
			Type:          enums.AccountTypeRoot,
			EmailVerified: true,
		}, nil
	}

	record, err := s.accounts.Account(username).Get(ctx)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, err
	}
	if !s.hasher.Verify(password, record.PasswordHash) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return &SigninResult{
		Token:         record.Token,
		Username:      record.Username,
		Type:          record.Type,
		EmailVerified: record.EmailVerified,
	}, nil
}

// Authenticate resolves a bearer token for username into a Principal.
func (s *service) Authenticate(ctx context.Context, username, token string) (*Principal, error) {
	if username == "" || token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidTokenMessage)
	}

	if s.isRoot(username) {
		ok, err := s.directory.VerifyRootToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidTokenMessage)
		}
		return &Principal{Username: username, Type: enums.AccountTypeRoot, EmailVerified: true}, nil
	}

	check, err := s.accounts.Account(username).VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !check.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidTokenMessage)
	}
	return &Principal{
		Username:      check.Username,
		Type:          check.Type,
		Email:         check.Email,
		EmailVerified: check.EmailVerified,
	}, nil
}

func (s *service) rootToken(ctx context.Context) (string, error) {
	if s.root.Token != "" {
		return s.root.Token, nil
	}
	return s.directory.EnsureRootToken(ctx, security.NewOpaqueToken())
}

// Bootstrap installs the root token and seeds the directory on first start.
func (s *service) Bootstrap(ctx context.Context) error {
	if s.root.Token != "" {
		if err := s.directory.SetRootToken(ctx, s.root.Token); err != nil {
			return err
		}
	} else if _, err := s.directory.EnsureRootToken(ctx, security.NewOpaqueToken()); err != nil {
		return err
	}

	seeded, err := s.directory.InitRootIfEmpty(ctx)
	if err != nil {
		return err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"root_username":  s.root.Username,
		"directory_seed": seeded,
	})
	s.logg.Info(logCtx, "identity bootstrap complete")
	return nil
}
