package recording

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// Meta describes one recording in the index.
type Meta struct {
	ID        string
	AppID     string
	Path      string
	StartedAt time.Time
	EndedAt   time.Time
	Records   int
}

// Index stores recording metadata in a sqlite database. Writes go through
// a single writer goroutine; reads query the db directly.
type Index struct {
	db *sql.DB

	ch   chan idxReq
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type idxKind int

const (
	idxBegin idxKind = iota + 1
	idxFinish
	idxSync
)

type idxReq struct {
	kind idxKind
	meta Meta
	done chan struct{}
}

func OpenIndex(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	idx := &Index{
		db: db,
		ch: make(chan idxReq, 1024),
	}
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		idx.loop()
	}()
	return idx, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			app_id TEXT NOT NULL,
			path TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			records INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_app_started ON recordings(app_id, started_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) Close() error {
	var err error
	idx.once.Do(func() {
		idx.closed.Store(true)
		close(idx.ch)
		idx.wg.Wait()
		err = idx.db.Close()
	})
	return err
}

// Begin registers a new recording. Non-blocking: if the indexer falls
// behind the request is dropped; the recording file remains the source
// of truth.
func (idx *Index) Begin(m Meta) {
	if idx == nil || idx.closed.Load() {
		return
	}
	select {
	case idx.ch <- idxReq{kind: idxBegin, meta: m}:
	default:
	}
}

// Finish records the end time and final record count for a recording.
func (idx *Index) Finish(id string, records int, endedAt time.Time) {
	if idx == nil || idx.closed.Load() {
		return
	}
	select {
	case idx.ch <- idxReq{kind: idxFinish, meta: Meta{ID: id, Records: records, EndedAt: endedAt}}:
	default:
	}
}

func (idx *Index) loop() {
	for r := range idx.ch {
		switch r.kind {
		case idxBegin:
			_, _ = idx.db.Exec(
				`INSERT OR REPLACE INTO recordings (id, app_id, path, started_at, records) VALUES (?, ?, ?, ?, 0)`,
				r.meta.ID, r.meta.AppID, r.meta.Path, r.meta.StartedAt.UTC().Format(time.RFC3339Nano),
			)
		case idxFinish:
			_, _ = idx.db.Exec(
				`UPDATE recordings SET ended_at = ?, records = ? WHERE id = ?`,
				r.meta.EndedAt.UTC().Format(time.RFC3339Nano), r.meta.Records, r.meta.ID,
			)
		case idxSync:
			close(r.done)
		}
	}
}

// Sync blocks until all previously queued writes have been applied.
func (idx *Index) Sync() {
	if idx == nil || idx.closed.Load() {
		return
	}
	done := make(chan struct{})
	idx.ch <- idxReq{kind: idxSync, done: done}
	<-done
}

func (idx *Index) Get(id string) (Meta, error) {
	row := idx.db.QueryRow(
		`SELECT id, app_id, path, started_at, COALESCE(ended_at, ''), records FROM recordings WHERE id = ?`, id)
	return scanMeta(row)
}

func (idx *Index) List() ([]Meta, error) {
	rows, err := idx.db.Query(
		`SELECT id, app_id, path, started_at, COALESCE(ended_at, ''), records FROM recordings ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		m, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeta(r rowScanner) (Meta, error) {
	var m Meta
	var started, ended string
	if err := r.Scan(&m.ID, &m.AppID, &m.Path, &started, &ended, &m.Records); err != nil {
		return m, err
	}
	if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
		m.StartedAt = t
	}
	if ended != "" {
		if t, err := time.Parse(time.RFC3339Nano, ended); err == nil {
			m.EndedAt = t
		}
	}
	return m, nil
}
