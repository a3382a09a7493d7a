// Package store is the local-first persistence layer for roadmaps, tasks, and playback state.
//
// Every write lands in the local [storage.Storage] first and is visible to the next read immediately.
// For an authenticated [models.Session] the write is then pushed to the [Remote] in the background;
// the caller never waits on it and remote failures are only logged. Reads through the *Async methods
// prefer the remote copy and mirror it locally, falling back to the local cache on any error.
//
// Roadmap progress is recomputed on every read and write. Each local roadmap write bumps
// [models.Roadmap.Version] so the backend can refuse pushes that arrive out of order.
//
// Video positions, habits, and the watch queue are local only.
package store
