// Package logging holds the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	once   sync.Once
	logger *log.Logger
)

// Logger returns the shared logger, creating it on first use. It writes to
// stderr at info level.
func Logger() *log.Logger {
	once.Do(func() {
		logger = New("", log.InfoLevel)
	})
	return logger
}

// New returns a stderr logger for one component. Its prefix is "bpa/" plus
// name, or "bpa" when name is empty.
func New(name string, level log.Level) *log.Logger {
	prefix := "bpa"
	if name != "" {
		prefix += "/" + name
	}
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
	})
	l.SetLevel(level)
	return l
}

// SetLevel sets the shared logger's level from its name: debug, info, warn,
// error or fatal.
func SetLevel(name string) error {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("log level %q: %w", name, err)
	}
	Logger().SetLevel(lvl)
	return nil
}

// SetOutput redirects the shared logger.
func SetOutput(w io.Writer) {
	Logger().SetOutput(w)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
