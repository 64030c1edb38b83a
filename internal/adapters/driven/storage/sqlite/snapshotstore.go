package sqlite

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/lexroute/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

// Artifact file names inside the snapshot directory.
const (
	ChunksFile  = "chunks.db"
	VectorsFile = "vectors.bin"
)

var vectorMagic = [8]byte{'L', 'X', 'R', 'V', 'E', 'C', '0', '1'}

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore saves and loads index snapshots in a directory.
type SnapshotStore struct {
	db  *sql.DB
	dir string
}

// NewSnapshotStore opens (or creates) the snapshot directory and its
// chunk database.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}

	dbPath := filepath.Join(dir, ChunksFile)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SnapshotStore{db: db, dir: dir}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Dir returns the snapshot directory.
func (s *SnapshotStore) Dir() string {
	return s.dir
}

// Close closes the database connection.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save replaces the persisted snapshot. The vector file is written to a
// temporary path first and moved into place after the database commit.
func (s *SnapshotStore) Save(ctx context.Context, snap *driven.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrInvalidInput)
	}
	generation := uuid.New()

	tmp := filepath.Join(s.dir, VectorsFile+".tmp")
	if err := writeVectors(tmp, generation, snap); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := s.saveChunks(ctx, generation, snap); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, filepath.Join(s.dir, VectorsFile)); err != nil {
		return fmt.Errorf("replacing vector file: %w", err)
	}
	return nil
}

func (s *SnapshotStore) saveChunks(ctx context.Context, generation uuid.UUID, snap *driven.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_id, document_id, source_path, position, content)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range snap.Chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.SourcePath, c.Position, c.Text); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, generation, model, dimensions, chunk_count, saved_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			generation = excluded.generation,
			model = excluded.model,
			dimensions = excluded.dimensions,
			chunk_count = excluded.chunk_count,
			saved_at = excluded.saved_at
	`, generation.String(), snap.Model, snap.Dimensions, len(snap.Chunks), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving snapshot metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load reads the persisted snapshot. found is false when nothing has
// been saved yet. Artifacts that disagree yield domain.ErrIndexCorruption;
// only a full rebuild replaces them.
func (s *SnapshotStore) Load(ctx context.Context) (*driven.Snapshot, bool, error) {
	snap, found, err := s.load(ctx)
	if errors.Is(err, domain.ErrIndexCorruption) {
		return nil, false, fmt.Errorf("%w; rebuild the index to replace the snapshot in %s", err, s.dir)
	}
	return snap, found, err
}

func (s *SnapshotStore) load(ctx context.Context) (*driven.Snapshot, bool, error) {
	vecPath := filepath.Join(s.dir, VectorsFile)
	_, statErr := os.Stat(vecPath)
	vectorsExist := statErr == nil
	if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("stat vector file: %w", statErr)
	}

	var (
		generation string
		snap       driven.Snapshot
		count      int
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT generation, model, dimensions, chunk_count FROM snapshot_meta WHERE id = 1",
	).Scan(&generation, &snap.Model, &snap.Dimensions, &count)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if vectorsExist {
			return nil, false, fmt.Errorf("%w: %s present without %s metadata", domain.ErrIndexCorruption, VectorsFile, ChunksFile)
		}
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("reading snapshot metadata: %w", err)
	}
	if !vectorsExist {
		return nil, false, fmt.Errorf("%w: %s is missing", domain.ErrIndexCorruption, VectorsFile)
	}

	vectors, err := readVectors(vecPath, generation, snap.Dimensions)
	if err != nil {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, document_id, source_path, position, content
		FROM chunks ORDER BY chunk_id
	`)
	if err != nil {
		return nil, false, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	snap.Chunks = make([]domain.Chunk, 0, count)
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.SourcePath, &c.Position, &c.Text); err != nil {
			return nil, false, fmt.Errorf("scanning chunk: %w", err)
		}
		vec, ok := vectors[c.ID]
		if !ok {
			return nil, false, fmt.Errorf("%w: chunk %s has no vector", domain.ErrIndexCorruption, c.ID)
		}
		c.Embedding = vec
		snap.Chunks = append(snap.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating chunks: %w", err)
	}

	if len(snap.Chunks) != count || len(vectors) != count {
		return nil, false, fmt.Errorf("%w: %d chunk rows, %d vectors, metadata declares %d",
			domain.ErrIndexCorruption, len(snap.Chunks), len(vectors), count)
	}
	return &snap, true, nil
}

// migrate runs all pending migrations.
func (s *SnapshotStore) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_chunks.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

func writeVectors(path string, generation uuid.UUID, snap *driven.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating vector file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	header := struct {
		Magic      [8]byte
		Dimensions uint32
		Count      uint64
		Generation [16]byte
	}{vectorMagic, uint32(snap.Dimensions), uint64(len(snap.Chunks)), generation}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing vector header: %w", err)
	}

	buf := make([]byte, 4*snap.Dimensions)
	for _, c := range snap.Chunks {
		if len(c.Embedding) != snap.Dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, snapshot declares %d",
				domain.ErrInvalidInput, c.ID, len(c.Embedding), snap.Dimensions)
		}
		if len(c.ID) > math.MaxUint16 {
			return fmt.Errorf("%w: chunk id too long", domain.ErrInvalidInput)
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(len(c.ID))); err != nil {
			return fmt.Errorf("writing vector record: %w", err)
		}
		if _, err := w.WriteString(c.ID); err != nil {
			return fmt.Errorf("writing vector record: %w", err)
		}
		for i, v := range c.Embedding {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("writing vector record: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing vector file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing vector file: %w", err)
	}
	return f.Close()
}

func readVectors(path, generation string, dims int) (map[string][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vector file: %w", err)
	}
	defer f.Close()

	corrupt := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", domain.ErrIndexCorruption, VectorsFile, fmt.Sprintf(format, args...))
	}

	r := bufio.NewReader(f)
	var header struct {
		Magic      [8]byte
		Dimensions uint32
		Count      uint64
		Generation [16]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, corrupt("bad header: %v", err)
	}
	if header.Magic != vectorMagic {
		return nil, corrupt("bad magic %q", header.Magic[:])
	}
	if int(header.Dimensions) != dims {
		return nil, corrupt("%d dimensions, metadata declares %d", header.Dimensions, dims)
	}
	if uuid.UUID(header.Generation).String() != generation {
		return nil, corrupt("generation %s does not match %s", uuid.UUID(header.Generation), ChunksFile)
	}

	vectors := make(map[string][]float32, min(header.Count, 1<<20))
	buf := make([]byte, 4*dims)
	for n := uint64(0); n < header.Count; n++ {
		var idLen uint16
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return nil, corrupt("record %d: %v", n, err)
		}
		id := make([]byte, idLen)
		if _, err := io.ReadFull(r, id); err != nil {
			return nil, corrupt("record %d: %v", n, err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, corrupt("record %d: %v", n, err)
		}
		vec := make([]float32, dims)
		for i := range vec {
			vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		if _, dup := vectors[string(id)]; dup {
			return nil, corrupt("duplicate chunk %s", id)
		}
		vectors[string(id)] = vec
	}
	if _, err := r.ReadByte(); err != io.EOF {
		return nil, corrupt("trailing data after %d records", header.Count)
	}
	return vectors, nil
}
