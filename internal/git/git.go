/*
* Wraps access to commit history.
*
* We invoke Git directly as a subprocess and parse the output rather than using
* git2go/libgit2.
 */
package git

import (
	"fmt"
	"time"
)

// Authorship metadata for a single commit. Immutable once parsed.
type Commit struct {
	Hash        string
	ShortHash   string
	Parents     []string
	AuthorName  string
	AuthorEmail string
	Date        time.Time
}

func (c Commit) Name() string {
	if c.ShortHash != "" {
		return c.ShortHash
	} else if c.Hash != "" {
		return c.Hash
	} else {
		return "unknown"
	}
}

func (c Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

func (c Commit) String() string {
	return fmt.Sprintf(
		"{ hash:%s author:%s <%s> date:%d parents:%v }",
		c.Name(),
		c.AuthorName,
		c.AuthorEmail,
		c.Date.Unix(),
		c.Parents,
	)
}
