// Package directory owns the global account index, site settings and the
// root token. All operations are serialized through a single turn.
package directory

import (
	"context"
	"crypto/subtle"

	"github.com/openbiocard/openbiocard-backend/pkg/actor"
	"github.com/openbiocard/openbiocard-backend/pkg/enums"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/storage"
	"github.com/openbiocard/openbiocard-backend/pkg/types"
)

const (
	namespace      = "directory"
	keyUsers       = "users"
	keySettings    = "settings"
	keyRootToken   = "root_token"
	lockKey        = namespace
	msgUserExists  = "Username already exists"
	msgEmailInUse  = "Email already in use"
	msgUnknownUser = "User not found"
)

// Store is the singleton directory actor.
type Store struct {
	shard storage.Shard
	locks *actor.Keyed
}

func NewStore(backend storage.Backend) *Store {
	return &Store{
		shard: backend.Shard(namespace),
		locks: actor.NewKeyed(),
	}
}

func (s *Store) lock(ctx context.Context) (func(), error) {
	unlock, err := s.locks.Lock(ctx, lockKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "directory busy")
	}
	return unlock, nil
}

func (s *Store) loadUsers(ctx context.Context) ([]Entry, error) {
	var users []Entry
	if _, err := s.shard.Get(ctx, keyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) saveUsers(ctx context.Context, users []Entry) error {
	if users == nil {
		users = []Entry{}
	}
	return s.shard.Put(ctx, keyUsers, users)
}

func conflict(reason, msg string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, msg).WithDetails(map[string]any{"reason": reason})
}

func indexOf(users []Entry, username string) int {
	for i := range users {
		if users[i].Username == username {
			return i
		}
	}
	return -1
}

// CheckUniqueness reports a Conflict when username or the normalized email
// is already listed. An empty email never collides.
func (s *Store) CheckUniqueness(ctx context.Context, username, email string) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	if indexOf(users, username) >= 0 {
		return conflict("username", msgUserExists)
	}
	normalized := types.NormalizeEmail(email)
	if normalized == "" {
		return nil
	}
	for _, u := range users {
		if types.NormalizeEmail(u.Email) == normalized {
			return conflict("email", msgEmailInUse)
		}
	}
	return nil
}

// AddUser upserts the entry for in.Username, merging unset fields with the
// stored entry.
func (s *Store) AddUser(ctx context.Context, in UpsertInput) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}

	idx := indexOf(users, in.Username)
	var prev Entry
	if idx >= 0 {
		prev = users[idx]
	}

	entry := Entry{
		Username:      in.Username,
		Type:          prev.Type,
		Email:         prev.Email,
		EmailVerified: prev.EmailVerified,
		Avatar:        prev.Avatar,
		Bio:           prev.Bio,
	}
	if in.Type != "" {
		entry.Type = in.Type
	}
	if entry.Type == "" {
		entry.Type = enums.AccountTypeUser
	}
	if in.Email != nil {
		entry.Email = types.NormalizeEmail(*in.Email)
	}
	if in.EmailVerified != nil {
		entry.EmailVerified = *in.EmailVerified
	}
	if in.Avatar != "" {
		entry.Avatar = in.Avatar
	}
	if in.Bio != "" {
		entry.Bio = in.Bio
	}

	if entry.Email != "" {
		for _, u := range users {
			if u.Username != entry.Username && types.NormalizeEmail(u.Email) == entry.Email {
				return conflict("email", msgEmailInUse)
			}
		}
	}

	if idx >= 0 {
		users[idx] = entry
	} else {
		users = append(users, entry)
	}
	return s.saveUsers(ctx, users)
}

// UpdateUserStatus flips only the verification flag.
func (s *Store) UpdateUserStatus(ctx context.Context, username string, emailVerified bool) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(users, username)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgUnknownUser)
	}
	users[idx].EmailVerified = emailVerified
	return s.saveUsers(ctx, users)
}

// SyncProfile copies the card snapshot; unknown usernames are ignored.
func (s *Store) SyncProfile(ctx context.Context, username, avatar, bio string) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(users, username)
	if idx < 0 {
		return nil
	}
	if users[idx].Avatar == avatar && users[idx].Bio == bio {
		return nil
	}
	users[idx].Avatar = avatar
	users[idx].Bio = bio
	return s.saveUsers(ctx, users)
}

func (s *Store) RemoveUser(ctx context.Context, username string) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(users, username)
	if idx < 0 {
		return nil
	}
	users = append(users[:idx], users[idx+1:]...)
	return s.saveUsers(ctx, users)
}

// ListUsers returns entries in insertion order.
func (s *Store) ListUsers(ctx context.Context) ([]Entry, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []Entry{}
	}
	return users, nil
}

// InitRootIfEmpty seeds the bootstrap admin entry and reports whether it did.
func (s *Store) InitRootIfEmpty(ctx context.Context) (bool, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return false, err
	}
	if len(users) > 0 {
		return false, nil
	}
	if err := s.saveUsers(ctx, []Entry{bootstrapEntry}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) SetRootToken(ctx context.Context, token string) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return s.shard.Put(ctx, keyRootToken, token)
}

// EnsureRootToken stores candidate when no root token is set yet and returns
// the token in effect.
func (s *Store) EnsureRootToken(ctx context.Context, candidate string) (string, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	var stored string
	if _, err := s.shard.Get(ctx, keyRootToken, &stored); err != nil {
		return "", err
	}
	if stored != "" {
		return stored, nil
	}
	if err := s.shard.Put(ctx, keyRootToken, candidate); err != nil {
		return "", err
	}
	return candidate, nil
}

// VerifyRootToken is false whenever either side is empty.
func (s *Store) VerifyRootToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	var stored string
	if _, err := s.shard.Get(ctx, keyRootToken, &stored); err != nil {
		return false, err
	}
	if stored == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1, nil
}

func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return Settings{}, err
	}
	defer unlock()

	var settings Settings
	found, err := s.shard.Get(ctx, keySettings, &settings)
	if err != nil {
		return Settings{}, err
	}
	if !found {
		return DefaultSettings(), nil
	}
	return settings, nil
}

// UpdateSettings replaces the settings wholesale.
func (s *Store) UpdateSettings(ctx context.Context, settings Settings) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return s.shard.Put(ctx, keySettings, settings)
}
