// Package repositories implements SQLite persistence for the backend's entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [UserRepository] : Accounts keyed by identity provider, with email lookups
//   - [RoadmapRepository] : Per-user roadmaps with version-guarded upserts
//   - [TaskRepository] : Per-user planner tasks
//   - [MagicLinkRepository] : Single-use, bcrypt-hashed sign-in tokens
//
// Roadmap upserts only apply when the incoming version is newer than the stored one ([shared.ErrStaleWrite] otherwise),
// and writes to a soft-deleted id return [shared.ErrGone] so a late push cannot resurrect it.
//
// Timestamps are stored as fixed-width UTC text (see [shared.FormatTime]) so both SQLite drivers sort them the same way.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
