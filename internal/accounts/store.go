// Package accounts owns the authoritative per-account record. Each username
// maps to its own storage namespace and every operation on one username is
// serialized; different usernames never share a lock.
package accounts

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/openbiocard/openbiocard-backend/pkg/actor"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/security"
	"github.com/openbiocard/openbiocard-backend/pkg/storage"
	"github.com/openbiocard/openbiocard-backend/pkg/types"
)

const (
	namespacePrefix = "account:"
	keyUser         = "user"
	keyProfile      = "profile"
)

const (
	msgUserExists   = "Username already exists"
	msgUserNotFound = "User not found"
	msgInvalidCode  = "Invalid verification code"
)

// Registry resolves the Store for a username.
type Registry struct {
	backend storage.Backend
	locks   *actor.Keyed
	now     func() time.Time
	newCode func() (string, error)
}

type Option func(*Registry)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithCodeGenerator overrides the reset code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(r *Registry) { r.newCode = gen }
}

func NewRegistry(backend storage.Backend, opts ...Option) *Registry {
	r := &Registry{
		backend: backend,
		locks:   actor.NewKeyed(),
		now:     func() time.Time { return time.Now().UTC() },
		newCode: security.GenerateNumericCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Account returns the store for username. Stores are cheap handles; all
// state lives in the backend.
func (r *Registry) Account(username string) *Store {
	return &Store{
		registry: r,
		username: username,
		shard:    r.backend.Shard(namespacePrefix + username),
	}
}

// Store is the serialized view of one account.
type Store struct {
	registry *Registry
	username string
	shard    storage.Shard
}

func (s *Store) Username() string { return s.username }

func (s *Store) lock(ctx context.Context) (func(), error) {
	unlock, err := s.registry.locks.Lock(ctx, s.username)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "account busy")
	}
	return unlock, nil
}

func (s *Store) load(ctx context.Context) (*Record, error) {
	var rec Record
	found, err := s.shard.Get(ctx, keyUser, &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

func (s *Store) save(ctx context.Context, rec *Record) error {
	rec.UpdatedAt = s.registry.now()
	return s.shard.Put(ctx, keyUser, rec)
}

func (s *Store) mustLoad(ctx context.Context) (*Record, error) {
	rec, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgUserNotFound)
	}
	return rec, nil
}

// Create stores a new record. The username always comes from the store key.
func (s *Store) Create(ctx context.Context, rec Record) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	existing, err := s.load(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		return pkgerrors.New(pkgerrors.CodeConflict, msgUserExists).
			WithDetails(map[string]any{"reason": "username"})
	}

	now := s.registry.now()
	rec.Username = s.username
	rec.Email = types.NormalizeEmail(rec.Email)
	rec.CreatedAt = now
	return s.save(ctx, &rec)
}

func (s *Store) Get(ctx context.Context) (*Record, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.mustLoad(ctx)
}

// GetProfile returns the stored profile with list defaults, or a zero profile
// when none was saved yet.
func (s *Store) GetProfile(ctx context.Context) (*Profile, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.mustLoad(ctx); err != nil {
		return nil, err
	}
	var profile Profile
	if _, err := s.shard.Get(ctx, keyProfile, &profile); err != nil {
		return nil, err
	}
	profile = profile.WithDefaults()
	return &profile, nil
}

// VerifyToken never explains a failed check.
func (s *Store) VerifyToken(ctx context.Context, token string) (TokenCheck, error) {
	if token == "" {
		return TokenCheck{}, nil
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return TokenCheck{}, err
	}
	defer unlock()

	rec, err := s.load(ctx)
	if err != nil {
		return TokenCheck{}, err
	}
	if rec == nil || rec.Token == "" || subtle.ConstantTimeCompare([]byte(rec.Token), []byte(token)) != 1 {
		return TokenCheck{}, nil
	}
	return TokenCheck{
		Valid:         true,
		Type:          rec.Type,
		Username:      rec.Username,
		Email:         rec.Email,
		EmailVerified: rec.EmailVerified,
	}, nil
}

// VerifyEmail consumes the pending code, marks the email verified and
// returns the record as saved.
func (s *Store) VerifyEmail(ctx context.Context, code string) (*Record, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil || !codeMatches(rec.VerificationCode, code) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCode, msgInvalidCode)
	}
	rec.EmailVerified = true
	rec.VerificationCode = ""
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RequestPasswordReset issues a fresh code, replacing any pending one.
func (s *Store) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	rec, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	normalized := types.NormalizeEmail(email)
	if rec == nil || normalized == "" || rec.Email != normalized {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, msgUserNotFound)
	}

	code, err := s.registry.newCode()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset code")
	}
	rec.VerificationCode = code
	if err := s.save(ctx, rec); err != nil {
		return "", err
	}
	return code, nil
}

// ResetPassword swaps the hash when code matches the pending one.
func (s *Store) ResetPassword(ctx context.Context, code, passwordHash string) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := s.load(ctx)
	if err != nil {
		return err
	}
	if rec == nil || !codeMatches(rec.VerificationCode, code) {
		return pkgerrors.New(pkgerrors.CodeInvalidCode, msgInvalidCode)
	}
	rec.PasswordHash = passwordHash
	rec.VerificationCode = ""
	return s.save(ctx, rec)
}

// SetCredentials replaces hash and token together and returns the saved record.
func (s *Store) SetCredentials(ctx context.Context, passwordHash, token string) (*Record, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := s.mustLoad(ctx)
	if err != nil {
		return nil, err
	}
	rec.PasswordHash = passwordHash
	rec.Token = token
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateProfile replaces the whole profile.
func (s *Store) UpdateProfile(ctx context.Context, profile Profile) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.mustLoad(ctx); err != nil {
		return err
	}
	return s.shard.Put(ctx, keyProfile, profile)
}

// Delete drops record and profile; deleting a missing account succeeds.
func (s *Store) Delete(ctx context.Context) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return s.shard.Delete(ctx, keyUser, keyProfile)
}

func codeMatches(pending, given string) bool {
	if pending == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(pending), []byte(given)) == 1
}
