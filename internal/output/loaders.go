package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hookline/hookline/internal/logger"
)

// Loaders resolves the loader names a load action requested into text
// blocks for additionalContext. A name is a file path; relative names
// resolve under Dir, a leading ~ expands to the home directory, and a
// bare name may omit the .md extension. Unreadable files are skipped
// with a log line, never an error.
type Loaders struct {
	// Dir anchors relative loader names, typically <config>/loaders.
	Dir string
}

// Resolve reads each named file and returns one labelled block per file
// that could be read.
func (l *Loaders) Resolve(names []string) []string {
	var blocks []string
	for _, name := range names {
		content, err := l.read(name)
		if err != nil {
			logger.Warn("loader skipped", "loader", name, "error", err)
			continue
		}
		blocks = append(blocks, fmt.Sprintf("## %s\n\n%s", name, strings.TrimRight(content, "\n")))
	}
	return blocks
}

func (l *Loaders) read(name string) (string, error) {
	for _, path := range l.candidates(name) {
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("no loader file for %q", name)
}

func (l *Loaders) candidates(name string) []string {
	if strings.HasPrefix(name, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			name = filepath.Join(home, name[2:])
		}
	}
	if filepath.IsAbs(name) {
		return []string{name}
	}
	base := filepath.Join(l.Dir, name)
	if filepath.Ext(name) != "" {
		return []string{base}
	}
	return []string{base, base + ".md"}
}
