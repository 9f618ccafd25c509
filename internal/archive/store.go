// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists completed queries locally. Each archived
// record is the finished form of one streamed query: the question, the
// synthesized answer, and the papers and citations collected along the
// way. Storage is a SQLite database under the archive directory.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/meshintel/answerstream/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "answers.db"
)

// Record is one archived completed query.
type Record struct {
	ID        string           `json:"id" yaml:"id"`
	Query     string           `json:"query" yaml:"query"`
	Answer    string           `json:"answer" yaml:"answer"`
	QueryWord string           `json:"query_word,omitempty" yaml:"query_word,omitempty"`
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
	Papers    []types.Paper    `json:"papers,omitempty" yaml:"papers,omitempty"`
	Citations []types.Citation `json:"citations,omitempty" yaml:"citations,omitempty"`
}

// Summary is the listing form of a Record.
type Summary struct {
	ID        string    `json:"id" yaml:"id"`
	Query     string    `json:"query" yaml:"query"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Papers    int       `json:"papers" yaml:"papers"`
}

// Store manages the archive SQLite database.
type Store struct {
	db         *sql.DB
	archiveDir string
	maxResults int
}

// NewStore opens or creates the archive database at
// archiveDir/index/answers.db, creating the schema if needed.
func NewStore(cfg types.ArchiveConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.ArchiveDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		archiveDir: cfg.ArchiveDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			answer TEXT,
			query_word TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			result_id TEXT NOT NULL REFERENCES results(id),
			position INTEGER NOT NULL,
			id TEXT,
			title TEXT,
			authors TEXT,
			year TEXT,
			source TEXT,
			abstract TEXT,
			link TEXT,
			is_selected INTEGER NOT NULL DEFAULT 0,
			is_cited INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_result_id ON papers(result_id)`,
		`CREATE TABLE IF NOT EXISTS citations (
			result_id TEXT NOT NULL REFERENCES results(id),
			key TEXT NOT NULL,
			title TEXT,
			authors TEXT,
			year TEXT,
			link TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_citations_result_id ON citations(result_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save writes a completed query record. A missing ID or timestamp is
// filled in. Paper order is preserved through the position column.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO results (id, query, answer, query_word, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, rec.Answer, rec.QueryWord,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting result: %w", err)
	}

	paperStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (result_id, position, id, title, authors, year, source, abstract, link, is_selected, is_cited)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing paper insert: %w", err)
	}
	defer paperStmt.Close()

	for i, p := range rec.Papers {
		_, err := paperStmt.ExecContext(ctx,
			rec.ID, i, p.ID, p.Title, p.Authors, p.Year, p.Source,
			p.Abstract, p.Link, boolToInt(p.IsSelected), boolToInt(p.IsCited),
		)
		if err != nil {
			return fmt.Errorf("inserting paper %s: %w", p.ID, err)
		}
	}

	citeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO citations (result_id, key, title, authors, year, link)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing citation insert: %w", err)
	}
	defer citeStmt.Close()

	for _, c := range rec.Citations {
		_, err := citeStmt.ExecContext(ctx, rec.ID, c.Key, c.Title, c.Authors, c.Year, c.Link)
		if err != nil {
			return fmt.Errorf("inserting citation %s: %w", c.Key, err)
		}
	}

	return tx.Commit()
}

// List returns the most recent archived queries, newest first, capped at
// the store's configured maximum.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.query, r.created_at,
			(SELECT count(*) FROM papers p WHERE p.result_id = r.id)
		 FROM results r
		 ORDER BY r.created_at DESC
		 LIMIT ?`, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		var created string
		if err := rows.Scan(&sum.ID, &sum.Query, &created, &sum.Papers); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		if t, parseErr := time.Parse(time.RFC3339Nano, created); parseErr == nil {
			sum.CreatedAt = t
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Get loads one archived record by ID, including its papers (in
// discovery order) and citations.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	rec := &Record{ID: id}
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT query, answer, query_word, created_at FROM results WHERE id = ?`, id,
	).Scan(&rec.Query, &rec.Answer, &rec.QueryWord, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no archived result with id %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading result: %w", err)
	}
	if t, parseErr := time.Parse(time.RFC3339Nano, created); parseErr == nil {
		rec.CreatedAt = t
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, authors, year, source, abstract, link, is_selected, is_cited
		 FROM papers WHERE result_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("loading papers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p types.Paper
		var selected, cited int
		if err := rows.Scan(&p.ID, &p.Title, &p.Authors, &p.Year, &p.Source,
			&p.Abstract, &p.Link, &selected, &cited); err != nil {
			return nil, fmt.Errorf("scanning paper row: %w", err)
		}
		p.IsSelected = selected != 0
		p.IsCited = cited != 0
		rec.Papers = append(rec.Papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	citeRows, err := s.db.QueryContext(ctx,
		`SELECT key, title, authors, year, link FROM citations WHERE result_id = ? ORDER BY key`, id)
	if err != nil {
		return nil, fmt.Errorf("loading citations: %w", err)
	}
	defer citeRows.Close()

	for citeRows.Next() {
		var c types.Citation
		if err := citeRows.Scan(&c.Key, &c.Title, &c.Authors, &c.Year, &c.Link); err != nil {
			return nil, fmt.Errorf("scanning citation row: %w", err)
		}
		rec.Citations = append(rec.Citations, c)
	}
	return rec, citeRows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
