package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase("", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "roadmaps")
		if err != nil {
			t.Fatalf("NextSequence failed: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for unknown sequence table")
	}
}

func TestUserRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		user := models.NewUser(0, "test@example.com", "Test User", models.ProviderGitHub, "42")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		if user.ID() == "" {
			t.Error("user ID should be set after creation")
		}
		if user.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", user.Sequence())
		}
	})

	t.Run("Create rejects invalid", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		user := models.NewUser(0, "not-an-email", "", models.ProviderEmail, "not-an-email")

		if err := repo.Create(user); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		user := models.NewUser(0, "test@example.com", "Test User", models.ProviderGitHub, "42")
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		retrieved, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if retrieved.Email() != user.Email() {
			t.Errorf("expected email %s, got %s", user.Email(), retrieved.Email())
		}
		if retrieved.ProviderID() != "42" {
			t.Errorf("expected provider id 42, got %s", retrieved.ProviderID())
		}
		if !retrieved.CreatedAt().Equal(user.CreatedAt()) {
			t.Errorf("created_at did not round trip: %v vs %v", retrieved.CreatedAt(), user.CreatedAt())
		}

		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("FindOrCreate", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))

		first, err := repo.FindOrCreate(models.ProviderGitHub, "7", "a@example.com", "A")
		if err != nil {
			t.Fatalf("FindOrCreate failed: %v", err)
		}

		second, err := repo.FindOrCreate(models.ProviderGitHub, "7", "b@example.com", "")
		if err != nil {
			t.Fatalf("FindOrCreate failed: %v", err)
		}
		if second.ID() != first.ID() {
			t.Errorf("expected same user, got %s and %s", first.ID(), second.ID())
		}
		if second.Email() != "b@example.com" {
			t.Errorf("expected refreshed email, got %s", second.Email())
		}
		if second.Name() != "A" {
			t.Errorf("expected name to be kept, got %s", second.Name())
		}

		users, err := repo.List(map[string]any{"provider": models.ProviderGitHub})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(users) != 1 {
			t.Errorf("expected 1 user, got %d", len(users))
		}
	})

	t.Run("GetByEmail", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		if _, err := repo.FindOrCreate(models.ProviderEmail, "me@example.com", "me@example.com", ""); err != nil {
			t.Fatalf("FindOrCreate failed: %v", err)
		}

		user, err := repo.GetByEmail("me@example.com")
		if err != nil {
			t.Fatalf("GetByEmail failed: %v", err)
		}
		if user.Provider() != models.ProviderEmail {
			t.Errorf("expected provider %s, got %s", models.ProviderEmail, user.Provider())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		user := models.NewUser(0, "test@example.com", "Test User", models.ProviderGitHub, "42")
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if err := repo.Delete(user.ID()); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}
		if _, err := repo.Get(user.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected deleted user to be hidden, got %v", err)
		}
		if err := repo.Delete(user.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestUserRepositoryInterface(t *testing.T) {
	var repo models.Repository[*models.User] = NewUserRepository(setupTestDB(t))

	user := models.NewUser(0, "repo@example.com", "Repo", models.ProviderEmail, "repo@example.com")
	if err := repo.Create(user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	user.SetName("Renamed")
	if err := repo.Update(user); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.Get(user.ID())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name() != "Renamed" {
		t.Errorf("expected updated name, got %q", got.Name())
	}

	users, err := repo.List(nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(users) != 1 || users[0].ID() != user.ID() {
		t.Errorf("expected the one user, got %d", len(users))
	}

	if err := repo.Delete(user.ID()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if users, _ := repo.List(nil); len(users) != 0 {
		t.Errorf("expected deleted user to be hidden, got %d", len(users))
	}
}

func testRoadmap(version int64) models.Roadmap {
	rm := models.NewRoadmap("Go", "Concurrency")
	rm.Version = version
	v := models.NewVideo("dQw4w9WgXcQ", "Intro")
	v.Completed = true
	rm.Videos = append(rm.Videos, v, models.NewVideo("9bZkp7q19f0", "Channels"))
	return rm
}

func TestRoadmapRepository(t *testing.T) {
	t.Run("Upsert inserts and reads back", func(t *testing.T) {
		repo := NewRoadmapRepository(setupTestDB(t))
		rm := testRoadmap(1)

		if _, err := repo.Upsert("u1", rm); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		got, err := repo.Get("u1", rm.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got.Videos) != 2 {
			t.Fatalf("expected 2 videos, got %d", len(got.Videos))
		}
		if got.TotalProgress != 50 {
			t.Errorf("expected progress 50, got %d", got.TotalProgress)
		}
		if got.Version != 1 {
			t.Errorf("expected version 1, got %d", got.Version)
		}
		if got.UserID != "u1" {
			t.Errorf("expected user u1, got %s", got.UserID)
		}
	})

	t.Run("Upsert version guard", func(t *testing.T) {
		repo := NewRoadmapRepository(setupTestDB(t))
		rm := testRoadmap(2)
		if _, err := repo.Upsert("u1", rm); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		tests := []struct {
			name    string
			version int64
			wantErr error
		}{
			{"older", 1, shared.ErrStaleWrite},
			{"same", 2, shared.ErrStaleWrite},
			{"newer", 3, nil},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				next := rm
				next.Version = tt.version
				next.Name = "Go " + tt.name
				_, err := repo.Upsert("u1", next)
				if tt.wantErr == nil && err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			})
		}

		got, err := repo.Get("u1", rm.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Name != "Go newer" || got.Version != 3 {
			t.Errorf("expected newer write to win, got %q v%d", got.Name, got.Version)
		}
	})

	t.Run("Upsert after delete is gone", func(t *testing.T) {
		repo := NewRoadmapRepository(setupTestDB(t))
		rm := testRoadmap(1)
		if _, err := repo.Upsert("u1", rm); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if err := repo.Delete("u1", rm.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		rm.Version = 5
		if _, err := repo.Upsert("u1", rm); !errors.Is(err, shared.ErrGone) {
			t.Errorf("expected ErrGone, got %v", err)
		}
		if _, err := repo.Get("u1", rm.ID); !errors.Is(err, shared.ErrRoadmapNotFound) {
			t.Errorf("expected ErrRoadmapNotFound, got %v", err)
		}
	})

	t.Run("Upsert other user's roadmap", func(t *testing.T) {
		repo := NewRoadmapRepository(setupTestDB(t))
		rm := testRoadmap(1)
		if _, err := repo.Upsert("u1", rm); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		rm.Version = 9
		if _, err := repo.Upsert("u2", rm); !errors.Is(err, shared.ErrRoadmapNotFound) {
			t.Errorf("expected ErrRoadmapNotFound, got %v", err)
		}
		if _, err := repo.Get("u2", rm.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected other user to see nothing, got %v", err)
		}
	})

	t.Run("Upsert rejects invalid", func(t *testing.T) {
		repo := NewRoadmapRepository(setupTestDB(t))
		rm := testRoadmap(1)
		rm.Name = " "
		if _, err := repo.Upsert("u1", rm); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("ListByUser", func(t *testing.T) {
		repo := NewRoadmapRepository(setupTestDB(t))
		older := testRoadmap(1)
		older.UpdatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		newer := testRoadmap(1)
		newer.UpdatedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		other := testRoadmap(1)

		for _, item := range []struct {
			user string
			rm   models.Roadmap
		}{{"u1", older}, {"u1", newer}, {"u2", other}} {
			if _, err := repo.Upsert(item.user, item.rm); err != nil {
				t.Fatalf("Upsert failed: %v", err)
			}
		}

		list, err := repo.ListByUser("u1")
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 roadmaps, got %d", len(list))
		}
		if list[0].ID != newer.ID {
			t.Errorf("expected most recently updated first")
		}

		empty, err := repo.ListByUser("nobody")
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if empty == nil || len(empty) != 0 {
			t.Errorf("expected empty non-nil list, got %v", empty)
		}
	})

	t.Run("Delete is idempotent", func(t *testing.T) {
		repo := NewRoadmapRepository(setupTestDB(t))
		rm := testRoadmap(1)
		if _, err := repo.Upsert("u1", rm); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		for i := 0; i < 2; i++ {
			if err := repo.Delete("u1", rm.ID); err != nil {
				t.Fatalf("delete %d failed: %v", i, err)
			}
		}
		if err := repo.Delete("u1", "missing"); !errors.Is(err, shared.ErrRoadmapNotFound) {
			t.Errorf("expected ErrRoadmapNotFound, got %v", err)
		}
		if err := repo.Delete("u2", rm.ID); !errors.Is(err, shared.ErrRoadmapNotFound) {
			t.Errorf("expected other user delete to miss, got %v", err)
		}
	})
}

func TestTaskRepository(t *testing.T) {
	t.Run("Upsert and Get", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))
		task := models.NewTask("Read chapter 3")
		task.Tags = []string{"Go", "go", " reading "}
		task.DueDate = "2024-05-01"

		if _, err := repo.Upsert("u1", task); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		got, err := repo.Get("u1", task.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Title != task.Title {
			t.Errorf("expected title %q, got %q", task.Title, got.Title)
		}
		if len(got.Tags) != 2 {
			t.Errorf("expected normalized tags, got %v", got.Tags)
		}
		if got.DueDate != "2024-05-01" {
			t.Errorf("expected due date, got %q", got.DueDate)
		}
		if got.Status != models.StatusTodo {
			t.Errorf("expected todo, got %s", got.Status)
		}
	})

	t.Run("Upsert updates", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))
		task := models.NewTask("Draft notes")
		if _, err := repo.Upsert("u1", task); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		task.Status = models.StatusDone
		task.DueDate = ""
		if _, err := repo.Upsert("u1", task); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		got, err := repo.Get("u1", task.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Status != models.StatusDone {
			t.Errorf("expected done, got %s", got.Status)
		}
		if got.Tags == nil {
			t.Error("expected non-nil tags")
		}
	})

	t.Run("Upsert refusals", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))
		task := models.NewTask("Practice")
		if _, err := repo.Upsert("u1", task); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		if _, err := repo.Upsert("u2", task); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound for other user, got %v", err)
		}

		if err := repo.Delete("u1", task.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := repo.Upsert("u1", task); !errors.Is(err, shared.ErrGone) {
			t.Errorf("expected ErrGone, got %v", err)
		}
		if err := repo.Delete("u1", task.ID); err != nil {
			t.Errorf("expected repeated delete to succeed, got %v", err)
		}

		bad := models.NewTask("Bad")
		bad.Priority = "urgent"
		if _, err := repo.Upsert("u1", bad); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("ListByUser", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))
		first := models.NewTask("First")
		first.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		second := models.NewTask("Second")
		second.CreatedAt = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

		for _, task := range []models.Task{first, second} {
			if _, err := repo.Upsert("u1", task); err != nil {
				t.Fatalf("Upsert failed: %v", err)
			}
		}

		list, err := repo.ListByUser("u1")
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(list) != 2 || list[0].Title != "Second" {
			t.Errorf("expected newest first, got %+v", list)
		}
	})
}

func TestMagicLinkRepository(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("single use", func(t *testing.T) {
		repo := NewMagicLinkRepository(setupTestDB(t)).WithCost(bcrypt.MinCost)

		token, err := repo.Issue(" Me@Example.com ", 15*time.Minute, now)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if len(token) != 48 {
			t.Errorf("expected 48 hex chars, got %d", len(token))
		}

		if err := repo.Consume("me@example.com", token, now.Add(time.Minute)); err != nil {
			t.Fatalf("Consume failed: %v", err)
		}
		if err := repo.Consume("me@example.com", token, now.Add(2*time.Minute)); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed on reuse, got %v", err)
		}
	})

	t.Run("rejects", func(t *testing.T) {
		repo := NewMagicLinkRepository(setupTestDB(t)).WithCost(bcrypt.MinCost)
		token, err := repo.Issue("me@example.com", 15*time.Minute, now)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		tests := []struct {
			name  string
			email string
			token string
			at    time.Time
		}{
			{"wrong token", "me@example.com", "deadbeef", now},
			{"wrong email", "you@example.com", token, now},
			{"expired", "me@example.com", token, now.Add(16 * time.Minute)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := repo.Consume(tt.email, tt.token, tt.at); !errors.Is(err, shared.ErrAuthFailed) {
					t.Errorf("expected ErrAuthFailed, got %v", err)
				}
			})
		}
	})

	t.Run("missing email", func(t *testing.T) {
		repo := NewMagicLinkRepository(setupTestDB(t))
		if _, err := repo.Issue("  ", time.Minute, now); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Purge", func(t *testing.T) {
		repo := NewMagicLinkRepository(setupTestDB(t)).WithCost(bcrypt.MinCost)
		if _, err := repo.Issue("a@example.com", time.Minute, now); err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if _, err := repo.Issue("b@example.com", time.Hour, now); err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		n, err := repo.Purge(now.Add(30 * time.Minute))
		if err != nil {
			t.Fatalf("Purge failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 purged link, got %d", n)
		}
	})
}
