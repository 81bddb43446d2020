// Package identity coordinates the per-account stores with the directory
// projection. Account writes always land first; the directory follows
// according to each flow's projection mode.
package identity

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/openbiocard/openbiocard-backend/internal/accounts"
	"github.com/openbiocard/openbiocard-backend/internal/directory"
	"github.com/openbiocard/openbiocard-backend/internal/repair"
	"github.com/openbiocard/openbiocard-backend/pkg/config"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
	"github.com/openbiocard/openbiocard-backend/pkg/mailer"
	"github.com/openbiocard/openbiocard-backend/pkg/metrics"
)

const (
	invalidCredentialsMessage = "Invalid username or password"
	invalidTokenMessage       = "Invalid token"
)

// Service is the behaviour the HTTP controllers and the repair job depend on.
type Service interface {
	Signup(ctx context.Context, in SignupInput) (*SignupResult, error)
	VerifyEmail(ctx context.Context, username, code string) error
	Signin(ctx context.Context, username, password string) (*SigninResult, error)
	Authenticate(ctx context.Context, username, token string) (*Principal, error)

	RequestPasswordReset(ctx context.Context, username, email string) error
	ResetPassword(ctx context.Context, username, code, newPassword string) error

	GetProfile(ctx context.Context, username string) (*ProfileView, error)
	PublicProfile(ctx context.Context, username string) (*PublicProfile, error)
	UpdateProfile(ctx context.Context, username string, profile accounts.Profile) error

	ListUsers(ctx context.Context) ([]directory.Entry, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*CreateUserResult, error)
	ChangePassword(ctx context.Context, username, newPassword string) error
	DeleteUser(ctx context.Context, actor Principal, username string) error
	Resync(ctx context.Context, username string) error
	Reconcile(ctx context.Context, username string) error

	GetSettings(ctx context.Context) (directory.Settings, error)
	UpdateSettings(ctx context.Context, settings directory.Settings) error

	Bootstrap(ctx context.Context) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

type codeSender interface {
	SendCode(ctx context.Context, purpose mailer.Purpose, email, code, username string) error
}

// ServiceParams bundles the dependencies required to build the coordinator.
type ServiceParams struct {
	Accounts  *accounts.Registry
	Directory *directory.Store
	Hasher    passwordHasher
	Mailer    codeSender
	Repair    repair.Queue
	Metrics   *metrics.ProjectionMetrics
	Logger    *logger.Logger
	Root      config.RootConfig
	Policy    config.DirectoryConfig
}

type service struct {
	accounts  *accounts.Registry
	directory *directory.Store
	hasher    passwordHasher
	mailer    codeSender
	repair    repair.Queue
	metrics   *metrics.ProjectionMetrics
	logg      *logger.Logger
	root      config.RootConfig
	policy    config.DirectoryConfig
}

// NewService constructs the coordinator with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Accounts == nil {
		return nil, fmt.Errorf("account registry is required")
	}
	if params.Directory == nil {
		return nil, fmt.Errorf("directory store is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.Repair == nil {
		return nil, fmt.Errorf("repair queue is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if params.Root.Username == "" {
		return nil, fmt.Errorf("root username is required")
	}
	return &service{
		accounts:  params.Accounts,
		directory: params.Directory,
		hasher:    params.Hasher,
		mailer:    params.Mailer,
		repair:    params.Repair,
		metrics:   params.Metrics,
		logg:      params.Logger,
		root:      params.Root,
		policy:    params.Policy,
	}, nil
}

func (s *service) isRoot(username string) bool {
	return username == s.root.Username
}

func (s *service) rootPasswordMatches(password string) bool {
	if s.root.Password == "" || password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.root.Password), []byte(password)) == 1
}

func (s *service) hash(password string) (string, error) {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hashed, nil
}

// sendCode never fails the caller; delivery problems are only logged.
func (s *service) sendCode(ctx context.Context, purpose mailer.Purpose, email, code, username string) {
	if err := s.mailer.SendCode(ctx, purpose, email, code, username); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"username": username,
			"purpose":  string(purpose),
		})
		s.logg.Error(logCtx, "failed to deliver code", err)
	}
}

func usernameTaken() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "Username already exists").
		WithDetails(map[string]any{"reason": "username"})
}
