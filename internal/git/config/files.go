package config

import (
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
)

// Not .gitconfig files, but still change what git log reports as the author
type SupplementalFiles struct {
	RepoMailmapPath   string
	GlobalMailmapPath string
}

func (sf SupplementalFiles) HasMailmap() bool {
	return len(sf.RepoMailmapPath) > 0 || len(sf.GlobalMailmapPath) > 0
}

// Feeds the contents of every mailmap file into h.
func (sf SupplementalFiles) MailmapHash(h hash.Hash) error {
	for _, p := range []string{sf.RepoMailmapPath, sf.GlobalMailmapPath} {
		if p == "" {
			continue
		}

		err := hashFile(h, p)
		if err != nil {
			return err
		}
	}

	return nil
}

func hashFile(h hash.Hash, path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("could not read mailmap file: %w", err)
	}
	defer f.Close()

	_, err = io.Copy(h, f)
	if err != nil {
		return fmt.Errorf("error hashing mailmap file %s: %w", path, err)
	}

	return nil
}
