package backends

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"slices"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sinclairtarget/idman/internal/git"
)

const SQLiteBackendName string = "sqlite"

// Max host parameters per lookup query.
const sqliteBatchSize = 500

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS commits (
		hash TEXT PRIMARY KEY,
		short_hash TEXT NOT NULL,
		parents TEXT NOT NULL,
		author_name TEXT NOT NULL,
		author_email TEXT NOT NULL,
		authored_at INTEGER NOT NULL
	)
`

// Stores commits in a SQLite database, one row per commit keyed by hash.
//
// Lookups only read the rows asked for, so this backend suits very large
// histories where most runs touch few new commits.
type SQLiteBackend struct {
	Path string
	db   *sql.DB
}

func (b *SQLiteBackend) Name() string {
	return SQLiteBackendName
}

func (b *SQLiteBackend) Open() error {
	dsn := b.Path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=30000"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}

	_, err = db.Exec(sqliteSchema)
	if err != nil {
		db.Close()
		return fmt.Errorf("could not create cache schema: %w", err)
	}

	b.db = db
	return nil
}

func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	return err
}

func (b *SQLiteBackend) Get(revs []string) (iter.Seq[git.Commit], func() error) {
	if b.db == nil {
		panic("cache not yet open. Did you forget to call Open()?")
	}

	var iterErr error
	finish := func() error {
		return iterErr
	}

	commits := []git.Commit{}
	for batch := range slices.Chunk(revs, sqliteBatchSize) {
		found, err := b.lookup(batch)
		if err != nil {
			iterErr = err
			return slices.Values([]git.Commit{}), finish
		}

		commits = append(commits, found...)
	}

	return slices.Values(commits), finish
}

func (b *SQLiteBackend) lookup(revs []string) ([]git.Commit, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(revs)), ",")
	query := `
		SELECT hash, short_hash, parents, author_name, author_email, authored_at
		FROM commits WHERE hash IN (` + placeholders + `)
	`

	args := make([]any, len(revs))
	for i, rev := range revs {
		args[i] = rev
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commits []git.Commit
	for rows.Next() {
		var c git.Commit
		var parents string
		var authoredAt int64

		err := rows.Scan(
			&c.Hash, &c.ShortHash, &parents, &c.AuthorName, &c.AuthorEmail,
			&authoredAt,
		)
		if err != nil {
			return nil, err
		}

		c.Parents = strings.Fields(parents)
		c.Date = time.Unix(authoredAt, 0).UTC()
		commits = append(commits, c)
	}

	return commits, rows.Err()
}

func (b *SQLiteBackend) Add(commits []git.Commit) (err error) {
	if b.db == nil {
		panic("cache not yet open. Did you forget to call Open()?")
	}

	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO commits
			(hash, short_hash, parents, author_name, author_email, authored_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range commits {
		_, err = stmt.Exec(
			c.Hash, c.ShortHash, strings.Join(c.Parents, " "), c.AuthorName,
			c.AuthorEmail, c.Date.Unix(),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (b *SQLiteBackend) Clear() error {
	err := b.Close()
	if err != nil {
		return err
	}

	for _, suffix := range []string{"", "-wal", "-shm"} {
		err := os.Remove(b.Path + suffix)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return nil
}
