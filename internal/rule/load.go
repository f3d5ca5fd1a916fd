package rule

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hookline/hookline/internal/constants"
	"github.com/hookline/hookline/internal/logger"
)

//go:embed defaults/*.md
var defaultRules embed.FS

const frontMatterDelim = "---"

// ParseDocument splits a rule file into YAML front-matter fields and body
// text. The file must open with a front-matter block.
func ParseDocument(content, path string) (Document, error) {
	rest, ok := strings.CutPrefix(content, frontMatterDelim+"\n")
	if !ok {
		return Document{}, fmt.Errorf("%s: missing front-matter block", path)
	}
	head, body, ok := strings.Cut(rest, "\n"+frontMatterDelim)
	if !ok {
		return Document{}, fmt.Errorf("%s: unterminated front-matter block", path)
	}

	fields := map[string]any{}
	if err := yaml.Unmarshal([]byte(head), &fields); err != nil {
		return Document{}, fmt.Errorf("%s: front-matter: %w", path, err)
	}

	return Document{
		Fields: normalizeFields(fields),
		Body:   strings.TrimSpace(strings.TrimPrefix(body, "\n")),
		Path:   path,
	}, nil
}

// normalizeFields maps historical aliases onto the canonical field names
// and converts nested yaml maps to map[string]any throughout.
func normalizeFields(fields map[string]any) map[string]any {
	aliases := map[string]string{
		"event_kind": "event",
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if canonical, ok := aliases[k]; ok {
			k = canonical
		}
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch m := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, child := range m {
			out[k] = normalizeValue(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, child := range m {
			out[fmt.Sprint(k)] = normalizeValue(child)
		}
		return out
	case []any:
		out := make([]any, len(m))
		for i, child := range m {
			out[i] = normalizeValue(child)
		}
		return out
	}
	return v
}

// LoadDir reads every *.md rule document in dir, in lexical order so that
// load order (and therefore priority tie-breaking) is deterministic.
// Unreadable or unparseable files are skipped with a log line; they never
// block the rest of the directory.
func LoadDir(dir string) []Document {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("rules directory not readable", "dir", dir, "error", err)
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var docs []Document
	for _, name := range names {
		path := filepath.Join(dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("failed to read rule file", "path", path, "error", err)
			continue
		}
		doc, err := ParseDocument(string(content), path)
		if err != nil {
			logger.Warn("failed to parse rule file", "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

// DefaultDocuments parses the embedded starter rules.
func DefaultDocuments() []Document {
	entries, err := defaultRules.ReadDir("defaults")
	if err != nil {
		return nil
	}
	var docs []Document
	for _, e := range entries {
		content, err := defaultRules.ReadFile("defaults/" + e.Name())
		if err != nil {
			continue
		}
		doc, err := ParseDocument(string(content), e.Name())
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

// WriteDefaults writes the embedded starter rules into dir, skipping any
// file that already exists.
func WriteDefaults(dir string) error {
	if err := os.MkdirAll(dir, constants.DirMode); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	entries, err := defaultRules.ReadDir("defaults")
	if err != nil {
		return err
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if _, err := os.Stat(path); err == nil {
			continue
		}
		content, err := defaultRules.ReadFile("defaults/" + e.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, content, constants.FileMode); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
