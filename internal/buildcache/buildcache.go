// Package buildcache persists compiled-module artifacts keyed by a hash
// of source text and codegen options, so repeat compiles of unchanged
// source skip the front end and the code generator.
// It is backed by sqlite the way server/dao/sqlite backs tunaq's data
// store, and serializes cached values with rezi the way sqlite.go
// serializes a *game.State.
package buildcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dekarrin/rezi"
	"github.com/google/uuid"
	"modernc.org/sqlite"
)

// ErrNotFound is returned by Lookup when no entry matches the given key.
var ErrNotFound = errors.New("no cache entry for this key")

// Options are the codegen knobs that participate in a cache key: two
// compiles of identical source text under different options are
// different cache entries.
type Options struct {
	Target string
}

// Key derives the cache key for a compile of src under opts: a sha256
// digest of the source text and the serialized options, hex-encoded.
func Key(src string, opts Options) string {
	h := sha256.New()
	h.Write([]byte(src))
	h.Write([]byte{0})
	h.Write([]byte(opts.Target))
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is one cached compile result.
type Entry struct {
	// IRGraph is the rezi encoding of the graph value given to Put.
	IRGraph []byte

	// Object is the codegen module's rendered text.
	Object string

	// RunID correlates this entry with the gulc invocation that produced
	// it, for diagnostic purposes.
	RunID uuid.UUID

	Created time.Time
}

// Store is a sqlite-backed build cache.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapDBError(err)
	}
	st := &Store{db: db}
	if err := st.init(); err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS build_cache (
		key TEXT NOT NULL PRIMARY KEY,
		run_id TEXT NOT NULL,
		ir_graph BLOB NOT NULL,
		object TEXT NOT NULL,
		created INTEGER NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}

	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS cache_stats (
		id INTEGER NOT NULL PRIMARY KEY CHECK (id = 0),
		hits INTEGER NOT NULL,
		misses INTEGER NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}
	_, err = s.db.Exec(`INSERT OR IGNORE INTO cache_stats (id, hits, misses) VALUES (0, 0, 0);`)
	return wrapDBError(err)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup fetches the cache entry for key, recording a hit or miss in the
// running stats counters either way.
func (s *Store) Lookup(ctx context.Context, key string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT run_id, ir_graph, object, created FROM build_cache WHERE key = ?;`, key)

	var runID string
	var entry Entry
	var created int64
	err := row.Scan(&runID, &entry.IRGraph, &entry.Object, &created)
	if errors.Is(err, sql.ErrNoRows) {
		if incErr := s.bumpStat(ctx, "misses"); incErr != nil {
			return Entry{}, incErr
		}
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, wrapDBError(err)
	}

	entry.RunID, err = uuid.Parse(runID)
	if err != nil {
		return Entry{}, fmt.Errorf("stored run id %q is invalid: %w", runID, err)
	}
	entry.Created = time.Unix(created, 0)

	if err := s.bumpStat(ctx, "hits"); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Put stores a compiled graph and its rendered object text under key,
// minting a fresh run id for diagnostic correlation and overwriting any
// existing entry for that key.
func (s *Store) Put(ctx context.Context, key string, irGraph interface{}, object string) (uuid.UUID, error) {
	runID, err := uuid.NewRandom()
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("could not generate run id: %w", err)
	}

	graphBytes := rezi.EncBinary(irGraph)

	_, err = s.db.ExecContext(ctx, `INSERT INTO build_cache (key, run_id, ir_graph, object, created)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET run_id=excluded.run_id, ir_graph=excluded.ir_graph, object=excluded.object, created=excluded.created;`,
		key, runID.String(), graphBytes, object, time.Now().Unix(),
	)
	if err != nil {
		return uuid.UUID{}, wrapDBError(err)
	}
	return runID, nil
}

// DecodeGraph unmarshals a cache entry's IRGraph bytes into target
// (typically a *ir.Graph).
func DecodeGraph(entry Entry, target interface{}) error {
	n, err := rezi.DecBinary(entry.IRGraph, target)
	if err != nil {
		return fmt.Errorf("REZI decode: %w", err)
	}
	if n != len(entry.IRGraph) {
		return fmt.Errorf("REZI decoded byte count mismatch; only consumed %d/%d bytes", n, len(entry.IRGraph))
	}
	return nil
}

// Stats are the running hit/miss counters across every Lookup call.
type Stats struct {
	Hits   int64
	Misses int64
}

// Stats reports the current hit/miss counters.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, `SELECT hits, misses FROM cache_stats WHERE id = 0;`)
	if err := row.Scan(&st.Hits, &st.Misses); err != nil {
		return Stats{}, wrapDBError(err)
	}
	return st, nil
}

func (s *Store) bumpStat(ctx context.Context, column string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE cache_stats SET %s = %s + 1 WHERE id = 0;`, column, column))
	return wrapDBError(err)
}

func wrapDBError(err error) error {
	if err == nil {
		return nil
	}
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		return fmt.Errorf("%s", sqlite.ErrorCodeString[sqliteErr.Code()])
	}
	return err
}
