package identity

import (
	"context"

	"github.com/openbiocard/openbiocard-backend/internal/accounts"
	"github.com/openbiocard/openbiocard-backend/internal/directory"
	"github.com/openbiocard/openbiocard-backend/pkg/enums"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/security"
	"github.com/openbiocard/openbiocard-backend/pkg/types"
)

// ListUsers returns the directory listing, without the root account when
// the policy hides it.
func (s *service) ListUsers(ctx context.Context) ([]directory.Entry, error) {
	users, err := s.directory.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if !s.policy.HideRoot {
		return users, nil
	}
	out := make([]directory.Entry, 0, len(users))
	for _, u := range users {
		if s.isRoot(u.Username) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// CreateUser provisions a pre-verified account on behalf of an admin.
func (s *service) CreateUser(ctx context.Context, in CreateUserInput) (*CreateUserResult, error) {
	accountType := in.Type
	if accountType == "" {
		accountType = enums.AccountTypeUser
	}
	if accountType == enums.AccountTypeRoot || !accountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid account type").
			WithDetails(map[string]any{"field": "type"})
	}
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
		PasswordHash:  hashed,
		Type:          accountType,
		Token:         security.NewOpaqueToken(),
		Email:         email,
		EmailVerified: true,
	}
	if err := s.accounts.Account(in.Username).Create(ctx, record); err != nil {
		return nil, err
	}

	verified := true
	if err := s.project(ctx, FlowAdminCreate, in.Username, required, func(ctx context.Context) error {
		return s.directory.AddUser(ctx, directory.UpsertInput{
			Username:      in.Username,
			Type:          accountType,
			Email:         &email,
			EmailVerified: &verified,
		})
	}); err != nil {
		return nil, err
	}
	return &CreateUserResult{Message: "User created", Token: record.Token}, nil
}

// ChangePassword sets a new password and rotates the token, signing the
// account out everywhere.
func (s *service) ChangePassword(ctx context.Context, username, newPassword string) error {
	if s.isRoot(username) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Root password is managed by configuration")
	}
	hashed, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	record, err := s.accounts.Account(username).SetCredentials(ctx, hashed, security.NewOpaqueToken())
	if err != nil {
		return err
	}
	return s.project(ctx, FlowAdminPassword, username, bestEffort, func(ctx context.Context) error {
		return s.directory.AddUser(ctx, directory.UpsertInput{
			Username:      username,
			Type:          record.Type,
			Email:         &record.Email,
			EmailVerified: &record.EmailVerified,
		})
	})
}

// DeleteUser removes an account. Callers cannot delete themselves or root.
func (s *service) DeleteUser(ctx context.Context, actor Principal, username string) error {
	if username == actor.Username {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Cannot delete yourself")
	}
	if s.isRoot(username) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Cannot delete root user")
	}
	if err := s.accounts.Account(username).Delete(ctx); err != nil {
		return err
	}
	return s.project(ctx, FlowDelete, username, bestEffort, func(ctx context.Context) error {
		return s.directory.RemoveUser(ctx, username)
	})
}

// Resync forces the directory entry to match the account.
func (s *service) Resync(ctx context.Context, username string) error {
	input, err := s.snapshot(ctx, username)
	if err != nil {
		return err
	}
	return s.project(ctx, FlowResync, username, required, func(ctx context.Context) error {
		return s.directory.AddUser(ctx, input)
	})
}

// Reconcile brings the directory in line with the account's current state:
// gone accounts are removed, visible accounts are upserted, and accounts
// still waiting on email verification are left alone.
func (s *service) Reconcile(ctx context.Context, username string) error {
	record, err := s.accounts.Account(username).Get(ctx)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return s.directory.RemoveUser(ctx, username)
		}
		return err
	}
	if !s.visible(record) {
		s.skip(ctx, FlowReconcile, username)
		return nil
	}
	input, err := s.snapshot(ctx, username)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return s.directory.RemoveUser(ctx, username)
		}
		return err
	}
	err = s.directory.AddUser(ctx, input)
	s.metrics.Observe(FlowReconcile, outcomeFor(err))
	return err
}

func (s *service) visible(record *accounts.Record) bool {
	return record.Email == "" || record.EmailVerified || s.policy.Immediate()
}

func (s *service) snapshot(ctx context.Context, username string) (directory.UpsertInput, error) {
	account := s.accounts.Account(username)
	record, err := account.Get(ctx)
	if err != nil {
		return directory.UpsertInput{}, err
	}
	profile, err := account.GetProfile(ctx)
	if err != nil {
		return directory.UpsertInput{}, err
	}
	return directory.UpsertInput{
		Username:      username,
		Type:          record.Type,
		Email:         &record.Email,
		EmailVerified: &record.EmailVerified,
		Avatar:        profile.Avatar,
		Bio:           profile.Bio,
	}, nil
}

func (s *service) GetSettings(ctx context.Context) (directory.Settings, error) {
	return s.directory.GetSettings(ctx)
}

func (s *service) UpdateSettings(ctx context.Context, settings directory.Settings) error {
	return s.directory.UpdateSettings(ctx, settings)
}
