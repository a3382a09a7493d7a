// Package storage is the local key-value cache behind the local-first store.
//
// Values are JSON documents under fixed keys (see [KeyRoadmaps] and friends), mirroring how
// the web client used browser storage. Three implementations satisfy [Storage]:
//   - [MemoryStorage] : process-local map for tests and throwaway sessions
//   - [FileStorage] : one JSON object file, guarded by an inter-process flock, with an optional byte quota
//   - [SQLStorage] : a kv table in SQLite (mattn or modernc driver)
//
// [Open] chooses one from [shared.StorageConfig].
package storage
