// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

// MockRemote is an in-memory test double for [store.Remote].
//
// It records every call. Set Err to make all calls fail, or FailUpserts to fail only writes.
// Delay, when set, is applied before an upsert completes, keyed by roadmap version.
type MockRemote struct {
	mu sync.Mutex

	Roadmaps map[string]models.Roadmap
	Tasks    map[string]models.Task

	Err         error
	FailUpserts error
	Delay       func(version int64) time.Duration

	Upserts     []models.Roadmap
	Deletes     []string
	TaskUpserts []models.Task
	TaskDeletes []string
	Fetches     int
}

// NewMockRemote creates an empty [MockRemote].
func NewMockRemote() *MockRemote {
	return &MockRemote{
		Roadmaps: make(map[string]models.Roadmap),
		Tasks:    make(map[string]models.Task),
	}
}

func (m *MockRemote) FetchRoadmaps(ctx context.Context) ([]models.Roadmap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetches++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Roadmap, 0, len(m.Roadmaps))
	for _, r := range m.Roadmaps {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b models.Roadmap) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out, nil
}

// UpsertRoadmap keeps the stored row when its version is not older, like the backend does.
func (m *MockRemote) UpsertRoadmap(ctx context.Context, r models.Roadmap) error {
	if m.Delay != nil {
		select {
		case <-time.After(m.Delay(r.Version)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Upserts = append(m.Upserts, r)
	if m.Err != nil {
		return m.Err
	}
	if m.FailUpserts != nil {
		return m.FailUpserts
	}
	if existing, ok := m.Roadmaps[r.ID]; ok && existing.Version >= r.Version {
		return fmt.Errorf("version %d <= %d: %w", r.Version, existing.Version, shared.ErrStaleWrite)
	}
	m.Roadmaps[r.ID] = r
	return nil
}

func (m *MockRemote) DeleteRoadmap(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes = append(m.Deletes, id)
	if m.Err != nil {
		return m.Err
	}
	delete(m.Roadmaps, id)
	return nil
}

func (m *MockRemote) FetchTasks(ctx context.Context) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetches++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Task, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b models.Task) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *MockRemote) UpsertTask(ctx context.Context, t models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TaskUpserts = append(m.TaskUpserts, t)
	if m.Err != nil {
		return m.Err
	}
	if m.FailUpserts != nil {
		return m.FailUpserts
	}
	m.Tasks[t.ID] = t
	return nil
}

func (m *MockRemote) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TaskDeletes = append(m.TaskDeletes, id)
	if m.Err != nil {
		return m.Err
	}
	delete(m.Tasks, id)
	return nil
}

// Calls returns a snapshot of the recorded roadmap upserts and deletes.
func (m *MockRemote) Calls() (upserts []models.Roadmap, deletes []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Upserts), slices.Clone(m.Deletes)
}

// Stored returns the remote copy of a roadmap.
func (m *MockRemote) Stored(id string) (models.Roadmap, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Roadmaps[id]
	return r, ok
}

// MockLookup is a test double for [services.VideoLookup].
// Titles maps YouTube ids to titles; unknown ids fall back to "YouTube Video".
type MockLookup struct {
	mu     sync.Mutex
	Titles map[string]string
	Err    error
	Calls  []string
}

func (m *MockLookup) Lookup(ctx context.Context, youtubeID string) (models.Video, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, youtubeID)
	m.mu.Unlock()

	if m.Err != nil {
		return models.Video{}, m.Err
	}
	title, ok := m.Titles[youtubeID]
	if !ok {
		title = "YouTube Video"
	}
	v := models.NewVideo(youtubeID, title)
	v.Thumbnail = "https://img.youtube.com/vi/" + youtubeID + "/maxresdefault.jpg"
	return v, nil
}

// MockPlaylist is a test double for [services.PlaylistSource].
type MockPlaylist struct {
	IDs []string
	Err error
}

func (m *MockPlaylist) VideoIDs(ctx context.Context, playlistURL string) ([]string, error) {
	return m.IDs, m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// FStorage is a [storage.Storage] whose writes always fail with Err.
type FStorage struct {
	Err error
}

func (f *FStorage) GetItem(key string) (string, bool, error) { return "", false, nil }
func (f *FStorage) SetItem(key, value string) error          { return f.Err }
func (f *FStorage) RemoveItem(key string) error              { return f.Err }
func (f *FStorage) Keys() ([]string, error)                  { return nil, nil }
func (f *FStorage) Close() error                             { return nil }

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}
