package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Fixed local keys.
const (
	KeyRoadmaps       = "studyflow_roadmaps"
	KeyTasks          = "studyflow_tasks"
	KeyHabits         = "studyflow_habits"
	KeyVideoPositions = "studyflow_video_positions"
	KeyWatchQueue     = "studyflow_watch_queue"
	KeySession        = "studyflow_session"
	KeyLibrary        = "studyflow_library"

	// Ids deleted locally whose removal the remote has not yet reflected.
	KeyDeletedRoadmaps = "studyflow_deleted_roadmaps"
	KeyDeletedTasks    = "studyflow_deleted_tasks"
)

var (
	// ErrCorrupt marks a stored value that is not valid JSON for the requested type.
	ErrCorrupt = errors.New("corrupt local value")
	// ErrQuotaExceeded is returned when a write would grow storage past its limit.
	ErrQuotaExceeded = errors.New("local storage quota exceeded")
)

// Storage is a string key-value store.
type Storage interface {
	// GetItem returns the value for key; ok is false when the key is absent.
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
	Keys() ([]string, error)
	Close() error
}

// ReadJSON decodes the value under key into v.
// ok is false when the key is absent. Undecodable values return [ErrCorrupt] and leave v untouched.
func ReadJSON(s Storage, key string, v any) (bool, error) {
	raw, ok, err := s.GetItem(key)
	if err != nil || !ok || raw == "" {
		return false, err
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

// WriteJSON encodes v and stores it under key.
func WriteJSON(s Storage, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.SetItem(key, string(data))
}
