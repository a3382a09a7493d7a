package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
	"github.com/desertthunder/studyflow/internal/storage"
)

// DefaultRemoteTimeout bounds each background push and remote read.
const DefaultRemoteTimeout = 10 * time.Second

// Remote is the backend copy of roadmaps and tasks, scoped to the signed-in user.
type Remote interface {
	FetchRoadmaps(ctx context.Context) ([]models.Roadmap, error)
	UpsertRoadmap(ctx context.Context, r models.Roadmap) error
	DeleteRoadmap(ctx context.Context, id string) error
	FetchTasks(ctx context.Context) ([]models.Task, error)
	UpsertTask(ctx context.Context, t models.Task) error
	DeleteTask(ctx context.Context, id string) error
}

// Options configures a [Store]. Local is required; a nil Remote makes the store local only.
type Options struct {
	Local         storage.Storage
	Remote        Remote
	Session       models.Session
	Logger        *log.Logger
	Now           func() time.Time
	RemoteTimeout time.Duration
}

// Store coordinates the local cache and the remote copy.
type Store struct {
	local   storage.Storage
	remote  Remote
	logger  *log.Logger
	now     func() time.Time
	timeout time.Duration

	// mu serializes local read-modify-write cycles.
	mu sync.Mutex

	sessMu  sync.RWMutex
	session models.Session

	pushes sync.WaitGroup
}

// New builds a Store from opts.
func New(opts Options) (*Store, error) {
	if opts.Local == nil {
		return nil, fmt.Errorf("%w: local storage is required", shared.ErrInvalidConfig)
	}

	s := &Store{
		local:   opts.Local,
		remote:  opts.Remote,
		logger:  opts.Logger,
		now:     opts.Now,
		timeout: opts.RemoteTimeout,
		session: opts.Session,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.timeout <= 0 {
		s.timeout = DefaultRemoteTimeout
	}
	if s.session == nil {
		s.session = models.Anonymous{}
	}
	return s, nil
}

// Session returns the current session.
func (s *Store) Session() models.Session {
	s.sessMu.RLock()
	defer s.sessMu.RUnlock()
	return s.session
}

// SetSession replaces the session and persists it locally. [models.Anonymous] clears the stored session.
func (s *Store) SetSession(session models.Session) error {
	if session == nil {
		session = models.Anonymous{}
	}

	s.sessMu.Lock()
	s.session = session
	s.sessMu.Unlock()

	switch v := session.(type) {
	case models.Authenticated:
		return storage.WriteJSON(s.local, storage.KeySession, v)
	default:
		return s.local.RemoveItem(storage.KeySession)
	}
}

// LoadSession reads the persisted session. Missing, corrupt, or expired sessions are [models.Anonymous].
func LoadSession(local storage.Storage, now time.Time) models.Session {
	var a models.Authenticated
	ok, err := storage.ReadJSON(local, storage.KeySession, &a)
	if err != nil || !ok {
		return models.Anonymous{}
	}
	if active, ok := models.ActiveSession(a, now); ok {
		return active
	}
	return models.Anonymous{}
}

// RemoteEnabled reports whether writes will be pushed.
func (s *Store) RemoteEnabled() bool {
	if s.remote == nil {
		return false
	}
	_, ok := models.ActiveSession(s.Session(), s.now())
	return ok
}

// Wait blocks until every in-flight background push has finished.
func (s *Store) Wait() {
	s.pushes.Wait()
}

// push runs fn in the background when a remote and an active session exist.
func (s *Store) push(op, id string, fn func(ctx context.Context, remote Remote) error) {
	if !s.RemoteEnabled() {
		s.logger.Debug("remote push skipped", "op", op, "id", id)
		return
	}

	s.pushes.Add(1)
	go func() {
		defer s.pushes.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		err := fn(ctx, s.remote)
		switch {
		case err == nil:
			s.logger.Debug("remote push complete", "op", op, "id", id)
		case errors.Is(err, shared.ErrStaleWrite), errors.Is(err, shared.ErrGone):
			s.logger.Warn("remote refused push", "op", op, "id", id, "err", err)
		default:
			s.logger.Error("remote push failed", "op", op, "id", id, "err", err)
		}
	}()
}

// fetch runs fn synchronously with the remote timeout. ok is false when the local cache should be used.
func (s *Store) fetch(ctx context.Context, op string, fn func(ctx context.Context, remote Remote) error) bool {
	if !s.RemoteEnabled() {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := fn(ctx, s.remote); err != nil {
		s.logger.Error("remote fetch failed, using local cache", "op", op, "err", err)
		return false
	}
	return true
}

// readLocal decodes key. Corrupt values are logged and yield the zero value.
func readLocal[T any](s *Store, key string) (T, error) {
	var v T
	_, err := storage.ReadJSON(s.local, key, &v)
	if errors.Is(err, storage.ErrCorrupt) {
		s.logger.Warn("discarding corrupt local value", "key", key, "err", err)
		var zero T
		return zero, nil
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func (s *Store) writeLocal(key string, v any) error {
	if err := storage.WriteJSON(s.local, key, v); err != nil {
		s.logger.Error("local write failed", "key", key, "err", err)
		return fmt.Errorf("failed to save %s locally: %w", key, err)
	}
	return nil
}

// bury records id as deleted locally so a remote list that still carries it
// cannot restore it. Callers hold s.mu.
func (s *Store) bury(key, id string) error {
	if !s.RemoteEnabled() {
		return nil
	}
	graves, err := readLocal[map[string]time.Time](s, key)
	if err != nil {
		return err
	}
	if graves == nil {
		graves = make(map[string]time.Time)
	}
	graves[id] = s.now()
	return s.writeLocal(key, graves)
}

// withoutBuried drops items whose ids are buried under key. Tombstones for ids
// the remote list no longer carries are released. Callers hold s.mu.
func withoutBuried[T any](s *Store, key string, items []T, idOf func(T) string) []T {
	graves, err := readLocal[map[string]time.Time](s, key)
	if err != nil {
		s.logger.Warn("could not read deleted ids", "key", key, "err", err)
		return items
	}
	if len(graves) == 0 {
		return items
	}

	seen := make(map[string]bool, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		id := idOf(item)
		seen[id] = true
		if _, ok := graves[id]; !ok {
			out = append(out, item)
		}
	}

	released := false
	for id := range graves {
		if !seen[id] {
			delete(graves, id)
			released = true
		}
	}
	if released {
		if err := s.writeLocal(key, graves); err != nil {
			s.logger.Warn("could not release deleted ids", "key", key, "err", err)
		}
	}
	return out
}
