package backends

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/zstd"

	"github.com/sinclairtarget/idman/internal/git"
)

const GobBackendName string = "gob"

// Keeps parsed commits for one history state in a single file.
//
// Each Add appends one frame: a little-endian uint32 byte count followed by a
// gob-encoded []git.Commit. Between Open and Close the frames live in Path;
// at rest only Path + ".zst" exists.
type GobBackend struct {
	Dir  string // Holds this repository's caches; other states are pruned
	Path string

	opened  bool
	written bool
}

func GobCacheFilename(stateKey string) string {
	return stateKey + ".gobs"
}

func (b *GobBackend) Name() string {
	return GobBackendName
}

func (b *GobBackend) archivePath() string {
	return b.Path + ".zst"
}

func (b *GobBackend) mustBeOpen() {
	if !b.opened {
		panic("gob cache used before Open()")
	}
}

func (b *GobBackend) Open() error {
	b.opened = true
	return inflate(b.archivePath(), b.Path)
}

func (b *GobBackend) Close() error {
	if b.written {
		if err := deflate(b.Path, b.archivePath()); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(b.Path); err != nil {
		return err
	}

	b.pruneStale()
	return nil
}

// Deletes every file in Dir except this state's archive.
func (b *GobBackend) pruneStale() {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		return
	}

	keep := filepath.Base(b.archivePath())
	for _, e := range entries {
		if e.Name() == keep {
			continue
		}

		err := os.Remove(filepath.Join(b.Dir, e.Name()))
		if err != nil {
			logger().WithField("file", e.Name()).
				Warn(fmt.Sprintf("could not prune stale cache file: %v", err))
		}
	}
}

func (b *GobBackend) Get(revs []string) (iter.Seq[git.Commit], func() error) {
	b.mustBeOpen()

	var iterErr error
	finish := func() error { return iterErr }

	f, err := os.Open(b.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			iterErr = err
		}
		return slices.Values([]git.Commit(nil)), finish
	}

	wanted := make(map[string]bool, len(revs))
	for _, rev := range revs {
		wanted[rev] = false
	}

	seq := func(yield func(git.Commit) bool) {
		defer f.Close()

		r := bufio.NewReader(f)
		for {
			batch, err := readFrame(r)
			if errors.Is(err, io.EOF) {
				return
			} else if err != nil {
				iterErr = err
				return
			}

			for _, c := range batch {
				found, ok := wanted[c.Hash]
				if !ok {
					continue
				}
				if found {
					iterErr = fmt.Errorf("commit %s cached twice", c.Hash)
					return
				}

				wanted[c.Hash] = true
				if !yield(c) {
					return
				}
			}
		}
	}

	return seq, finish
}

func (b *GobBackend) Add(commits []git.Commit) (err error) {
	b.mustBeOpen()
	b.written = true

	f, err := os.OpenFile(b.Path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	return writeFrame(f, commits)
}

func (b *GobBackend) Clear() error {
	b.written = false
	return os.RemoveAll(b.Dir)
}

func writeFrame(w io.Writer, commits []git.Commit) error {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(commits); err != nil {
		return err
	}

	if uint64(body.Len()) > math.MaxUint32 {
		return fmt.Errorf("batch of %d commits too large to cache", len(commits))
	}

	frame := binary.LittleEndian.AppendUint32(nil, uint32(body.Len()))
	frame = append(frame, body.Bytes()...)

	_, err := w.Write(frame)
	return err
}

// Returns io.EOF only at a clean frame boundary.
func readFrame(r io.Reader) ([]git.Commit, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated cache frame header: %w", err)
		}
		return nil, err
	}

	body := make([]byte, binary.LittleEndian.Uint32(header[:]))
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("truncated cache frame: %w", err)
	}

	var commits []git.Commit
	err := gob.NewDecoder(bytes.NewReader(body)).Decode(&commits)
	return commits, err
}

// Expands the archive at src into dst. A missing archive is an empty cache.
func inflate(src string, dst string) error {
	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}
	defer in.Close()

	zr, err := zstd.NewReader(in)
	if err != nil {
		return err
	}
	defer zr.Close()

	return writeFileFrom(dst, zr)
}

// Writes src to the archive at dst.
func deflate(src string, dst string) error {
	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}
	defer in.Close()

	var archive bytes.Buffer
	zw, err := zstd.NewWriter(&archive, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return err
	}

	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	return writeFileFrom(dst, &archive)
}

func writeFileFrom(path string, r io.Reader) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, r)
	return err
}
