// Package memory implements the tiered memory system: session snapshots, a
// per-session response cache, semantic facts, task episodes and opaque
// key-value pairs. Storage is pluggable through the Store interface; the
// Manager adds hashing, deduplication and best-effort error handling on top
// of whatever backend is configured.
package memory
