// Package models defines domain entities for the StudyFlow learning tracker.
//
// The package contains three categories of types:
//
// 1. Cached documents: JSON-serializable structs mirrored between the local cache and the backend
//   - [Roadmap] : Named, ordered learning path of videos with a derived total progress
//   - [Video] : YouTube item with playback progress, Markdown notes, and [Timestamp] markers
//   - [Task] : Planner to-do item with [TaskStatus] and [TaskPriority]
//
// 2. Local-only state: never pushed to the backend
//   - [QueuedVideo] : "Need to watch" queue entry
//   - [HabitLog] : Habit name to completed days
//   - [Session] : Either [Authenticated] or [Anonymous]
//
// 3. Persistent Entities: Backend database models with full lifecycle management
//   - [User] : Accounts resolved from GitHub or a magic link
//
// Roadmap progress is never trusted from storage: [Roadmap.Normalize] recomputes it with [ComputeProgress].
// The Repository[T] interface defines standard CRUD operations for database access.
package models
