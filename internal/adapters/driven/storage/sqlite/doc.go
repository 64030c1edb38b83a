// Package sqlite persists index snapshots in a directory holding two
// artifacts:
//
//   - chunks.db: a SQLite database (modernc.org/sqlite, no CGO) with one
//     row per chunk keyed by chunk_id, plus a single snapshot_meta row.
//   - vectors.bin: a binary file of embedding vectors keyed by chunk_id.
//
// Both artifacts carry the same generation ID. Load verifies that the
// generation, the chunk count and every chunk_id agree between them and
// reports any disagreement as domain.ErrIndexCorruption.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Vector file layout
//
// All integers are little-endian.
//
//	magic      [8]byte  "LXRVEC01"
//	dimensions uint32
//	count      uint64
//	generation [16]byte
//	count records of:
//	  id_len uint16
//	  id     [id_len]byte
//	  vector [dimensions]float32
package sqlite
