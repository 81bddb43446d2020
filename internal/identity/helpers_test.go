package identity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/openbiocard/openbiocard-backend/internal/accounts"
	"github.com/openbiocard/openbiocard-backend/internal/directory"
	"github.com/openbiocard/openbiocard-backend/internal/repair"
	"github.com/openbiocard/openbiocard-backend/pkg/config"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
	"github.com/openbiocard/openbiocard-backend/pkg/mailer"
	"github.com/openbiocard/openbiocard-backend/pkg/metrics"
	"github.com/openbiocard/openbiocard-backend/pkg/security"
	"github.com/openbiocard/openbiocard-backend/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type sentCode struct {
	purpose  mailer.Purpose
	email    string
	code     string
	username string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (m *recordingMailer) SendCode(_ context.Context, purpose mailer.Purpose, email, code, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentCode{purpose: purpose, email: email, code: code, username: username})
	return m.err
}

func (m *recordingMailer) last(t *testing.T) sentCode {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no code was sent")
	return m.sent[len(m.sent)-1]
}

// switchableBackend fails every shard operation while down is set, and only
// writes while writesDown is set. With downAfterWrite set, the next
// successful write takes the backend down.
type switchableBackend struct {
	storage.Backend
	down           atomic.Bool
	writesDown     atomic.Bool
	downAfterWrite atomic.Bool
}

func (b *switchableBackend) Shard(namespace string) storage.Shard {
	return &switchableShard{Shard: b.Backend.Shard(namespace), backend: b}
}

type switchableShard struct {
	storage.Shard
	backend *switchableBackend
}

func (s *switchableShard) fail() error {
	if s.backend.down.Load() {
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, errors.New("connection refused"), "storage")
	}
	return nil
}

func (s *switchableShard) failWrite() error {
	if s.backend.writesDown.Load() {
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, errors.New("read-only replica"), "storage")
	}
	return s.fail()
}

func (s *switchableShard) Get(ctx context.Context, key string, dest any) (bool, error) {
	if err := s.fail(); err != nil {
		return false, err
	}
	return s.Shard.Get(ctx, key, dest)
}

func (s *switchableShard) Put(ctx context.Context, key string, value any) error {
	if err := s.failWrite(); err != nil {
		return err
	}
	if err := s.Shard.Put(ctx, key, value); err != nil {
		return err
	}
	if s.backend.downAfterWrite.CompareAndSwap(true, false) {
		s.backend.down.Store(true)
	}
	return nil
}

func (s *switchableShard) Delete(ctx context.Context, keys ...string) error {
	if err := s.failWrite(); err != nil {
		return err
	}
	return s.Shard.Delete(ctx, keys...)
}

type harness struct {
	svc       Service
	accounts  *accounts.Registry
	directory *directory.Store
	dirStore  *switchableBackend
	acctStore *switchableBackend
	mailer    *recordingMailer
	repair    *repair.MemoryQueue
	registry  *prometheus.Registry
}

type harnessOption func(*ServiceParams)

func withVisibility(v string) harnessOption {
	return func(p *ServiceParams) { p.Policy.Visibility = v }
}

func withRoot(root config.RootConfig) harnessOption {
	return func(p *ServiceParams) { p.Root = root }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	dirBackend := &switchableBackend{Backend: storage.NewMemory()}
	acctBackend := &switchableBackend{Backend: storage.NewMemory()}
	h := &harness{
		accounts:  accounts.NewRegistry(acctBackend),
		directory: directory.NewStore(dirBackend),
		dirStore:  dirBackend,
		acctStore: acctBackend,
		mailer:    &recordingMailer{},
		repair:    repair.NewMemoryQueue(),
		registry:  prometheus.NewRegistry(),
	}
	params := ServiceParams{
		Accounts:  h.accounts,
		Directory: h.directory,
		Hasher: security.NewHasher(config.PasswordConfig{
			ArgonMemoryKB:    64,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		}),
		Mailer:  h.mailer,
		Repair:  h.repair,
		Metrics: metrics.NewProjectionMetrics(h.registry),
		Logger:  logger.Nop(),
		Root:    config.RootConfig{Username: "root", Password: "root-pass"},
		Policy:  config.DirectoryConfig{Visibility: config.VisibilityDeferred, HideRoot: true},
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) listed(t *testing.T, username string) (directory.Entry, bool) {
	t.Helper()
	users, err := h.directory.ListUsers(context.Background())
	require.NoError(t, err)
	for _, u := range users {
		if u.Username == username {
			return u, true
		}
	}
	return directory.Entry{}, false
}

func (h *harness) pending(t *testing.T) []string {
	t.Helper()
	out, err := h.repair.Pending(context.Background(), 100)
	require.NoError(t, err)
	return out
}

func (h *harness) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := h.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metricLoop:
		for _, m := range family.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue metricLoop
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
