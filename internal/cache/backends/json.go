package backends

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"slices"
	"time"

	"github.com/sinclairtarget/idman/internal/git"
)

// Stores commits on disk at a particular filepath as newline-delimited JSON.
//
// Slower and larger than the gob backend but readable with any JSON tool.
type JSONBackend struct {
	Path string
}

const JSONBackendName string = "json"

// On-disk layout, decoupled from git.Commit so the file format only changes
// on purpose.
type jsonRecord struct {
	Hash      string   `json:"h"`
	ShortHash string   `json:"s"`
	Parents   []string `json:"p,omitempty"`
	Name      string   `json:"n"`
	Email     string   `json:"e"`
	Date      int64    `json:"d"`
}

func toRecord(c git.Commit) jsonRecord {
	return jsonRecord{
		Hash:      c.Hash,
		ShortHash: c.ShortHash,
		Parents:   c.Parents,
		Name:      c.AuthorName,
		Email:     c.AuthorEmail,
		Date:      c.Date.Unix(),
	}
}

func (r jsonRecord) commit() git.Commit {
	return git.Commit{
		Hash:        r.Hash,
		ShortHash:   r.ShortHash,
		Parents:     r.Parents,
		AuthorName:  r.Name,
		AuthorEmail: r.Email,
		Date:        time.Unix(r.Date, 0).UTC(),
	}
}

func (b JSONBackend) Name() string {
	return JSONBackendName
}

func (b JSONBackend) Open() error {
	return nil
}

func (b JSONBackend) Close() error {
	return nil
}

func (b JSONBackend) Get(revs []string) (iter.Seq[git.Commit], func() error) {
	lookingFor := map[string]bool{}
	for _, rev := range revs {
		lookingFor[rev] = true
	}

	var iterErr error
	finish := func() error {
		return iterErr
	}

	f, err := os.Open(b.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return slices.Values([]git.Commit{}), finish
	} else if err != nil {
		iterErr = err
		return slices.Values([]git.Commit{}), finish
	}

	seq := func(yield func(git.Commit) bool) {
		defer f.Close()

		dec := json.NewDecoder(bufio.NewReader(f))
		seen := map[string]bool{}

		for {
			var r jsonRecord
			err := dec.Decode(&r)
			if err == io.EOF {
				return
			} else if err != nil {
				iterErr = fmt.Errorf("corrupt json cache: %w", err)
				return
			}

			if !lookingFor[r.Hash] {
				continue
			}

			if seen[r.Hash] {
				iterErr = fmt.Errorf("duplicate commit in cache: %s", r.Hash)
				return
			}
			seen[r.Hash] = true

			if !yield(r.commit()) {
				return
			}
		}
	}

	return seq, finish
}

func (b JSONBackend) Add(commits []git.Commit) (err error) {
	f, err := os.OpenFile(
		b.Path,
		os.O_WRONLY|os.O_APPEND|os.O_CREATE,
		0644,
	)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := f.Close()
		if err == nil {
			err = closeErr
		}
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	for _, c := range commits {
		err = enc.Encode(toRecord(c))
		if err != nil {
			return err
		}
	}

	return w.Flush()
}

func (b JSONBackend) Clear() error {
	err := os.Remove(b.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}
