// Configures the process-wide logger.
//
// Logs always go to stderr so standard output stays a clean JSON channel.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
}

type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output io.Writer
}

// Configure applies options to the shared logger. Unknown levels fall back to
// info.
func Configure(opts Options) {
	if opts.Output != nil {
		log.SetOutput(opts.Output)
	}

	switch strings.ToLower(opts.Level) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	if strings.ToLower(opts.Format) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
		})
	}
}

// ForPackage returns an entry tagged with the calling package's name.
func ForPackage(name string) *logrus.Entry {
	return log.WithField("package", name)
}
