package storage

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/studyflow/internal/shared"
)

// exerciseStorage runs the behaviour every implementation must share.
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()

	if _, ok, err := s.GetItem(KeyRoadmaps); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := s.SetItem(KeyRoadmaps, `[{"id":"a"}]`); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}
	if err := s.SetItem(KeyTasks, `[]`); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}
	if err := s.SetItem(KeyRoadmaps, `[{"id":"b"}]`); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	v, ok, err := s.GetItem(KeyRoadmaps)
	if err != nil || !ok || v != `[{"id":"b"}]` {
		t.Errorf("unexpected value %q ok=%v err=%v", v, ok, err)
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if !slices.Equal(keys, []string{KeyRoadmaps, KeyTasks}) {
		t.Errorf("unexpected keys %v", keys)
	}

	if err := s.RemoveItem(KeyRoadmaps); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if _, ok, _ := s.GetItem(KeyRoadmaps); ok {
		t.Error("expected key to be removed")
	}
	if err := s.RemoveItem("never-set"); err != nil {
		t.Errorf("removing a missing key should succeed, got %v", err)
	}
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	t.Run("contract", func(t *testing.T) {
		s, err := NewFileStorage(filepath.Join(t.TempDir(), "nested", "cache.json"), 0)
		if err != nil {
			t.Fatalf("NewFileStorage failed: %v", err)
		}
		defer s.Close()
		exerciseStorage(t, s)
	})

	t.Run("shared between handles", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.json")
		a, _ := NewFileStorage(path, 0)
		b, _ := NewFileStorage(path, 0)
		defer a.Close()
		defer b.Close()

		if err := a.SetItem(KeyHabits, `{}`); err != nil {
			t.Fatalf("SetItem failed: %v", err)
		}
		if v, ok, _ := b.GetItem(KeyHabits); !ok || v != `{}` {
			t.Errorf("second handle should see write, got %q %v", v, ok)
		}
	})

	t.Run("quota", func(t *testing.T) {
		s, _ := NewFileStorage(filepath.Join(t.TempDir(), "cache.json"), 32)
		defer s.Close()

		if err := s.SetItem("k", "small"); err != nil {
			t.Fatalf("small write failed: %v", err)
		}
		err := s.SetItem("k", strings.Repeat("x", 64))
		if !errors.Is(err, ErrQuotaExceeded) {
			t.Fatalf("expected ErrQuotaExceeded, got %v", err)
		}
		if v, _, _ := s.GetItem("k"); v != "small" {
			t.Errorf("failed write should leave previous value, got %q", v)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
		s, _ := NewFileStorage(path, 0)
		defer s.Close()

		if _, _, err := s.GetItem(KeyRoadmaps); !errors.Is(err, ErrCorrupt) {
			t.Errorf("expected ErrCorrupt, got %v", err)
		}
	})

	t.Run("requires path", func(t *testing.T) {
		if _, err := NewFileStorage("", 0); err == nil {
			t.Error("expected error for empty path")
		}
	})
}

func TestSQLStorage(t *testing.T) {
	for _, driver := range []string{shared.DriverSQLite3, shared.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			s, err := OpenSQLStorage(driver, ":memory:")
			if err != nil {
				t.Fatalf("OpenSQLStorage failed: %v", err)
			}
			defer s.Close()
			exerciseStorage(t, s)
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	s := NewMemoryStorage()

	t.Run("missing", func(t *testing.T) {
		var v []string
		ok, err := ReadJSON(s, KeyWatchQueue, &v)
		if ok || err != nil {
			t.Errorf("expected ok=false err=nil, got %v %v", ok, err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		in := map[string]float64{"abc": 12.5}
		if err := WriteJSON(s, KeyVideoPositions, in); err != nil {
			t.Fatalf("WriteJSON failed: %v", err)
		}
		out := map[string]float64{}
		ok, err := ReadJSON(s, KeyVideoPositions, &out)
		if !ok || err != nil || out["abc"] != 12.5 {
			t.Errorf("unexpected result %v ok=%v err=%v", out, ok, err)
		}
	})

	t.Run("corrupt", func(t *testing.T) {
		_ = s.SetItem(KeyRoadmaps, "[{oops")
		var v []map[string]any
		ok, err := ReadJSON(s, KeyRoadmaps, &v)
		if ok || !errors.Is(err, ErrCorrupt) {
			t.Errorf("expected ErrCorrupt, got ok=%v err=%v", ok, err)
		}
	})
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     shared.StorageConfig
		want    string
		wantErr bool
	}{
		{name: "memory", cfg: shared.StorageConfig{Driver: shared.DriverMemory}, want: "*storage.MemoryStorage"},
		{name: "file", cfg: shared.StorageConfig{Driver: shared.DriverFile, Path: filepath.Join(t.TempDir(), "c.json")}, want: "*storage.FileStorage"},
		{name: "sqlite", cfg: shared.StorageConfig{Driver: shared.DriverSQLite, Path: ":memory:"}, want: "*storage.SQLStorage"},
		{name: "unknown", cfg: shared.StorageConfig{Driver: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer s.Close()
			if got := typeName(s); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func typeName(s Storage) string {
	switch s.(type) {
	case *MemoryStorage:
		return "*storage.MemoryStorage"
	case *FileStorage:
		return "*storage.FileStorage"
	case *SQLStorage:
		return "*storage.SQLStorage"
	}
	return "unknown"
}
