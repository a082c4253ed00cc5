// Terminal detection and ANSI colors for human-facing output.
package pretty

import (
	"os"

	"golang.org/x/term"
)

const resetCode string = "\x1b[0m"
const redCode string = "\x1b[31m"

func AllowDynamic(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Colors only go to terminals, and never when NO_COLOR is set.
func AllowColor(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}

	return AllowDynamic(f)
}

func Red(s string) string {
	return redCode + s + resetCode
}
