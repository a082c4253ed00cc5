package subcommands

import (
	"fmt"
	"io"

	"github.com/sinclairtarget/idman/internal/cache"
)

// Removes every repository's cache under the storage directory.
func ClearCache(w io.Writer, dirOverride string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error clearing cache: %w", err)
		}
	}()

	dir, err := cache.StorageDir(dirOverride)
	if err != nil {
		return err
	}

	err = cache.Wipe(dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "cleared %s\n", dir)
	return nil
}
