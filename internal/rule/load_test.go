package rule

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDocument(t *testing.T) {
	content := `---
name: sample
description: sample rule
event: SessionStart
enabled: true
action: context
---

Remember to run the linters.
`
	d, err := ParseDocument(content, "sample.md")
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}
	if d.Fields["name"] != "sample" {
		t.Errorf("name = %v, want sample", d.Fields["name"])
	}
	if d.Body != "Remember to run the linters." {
		t.Errorf("Body = %q", d.Body)
	}
}

func TestParseDocumentAliases(t *testing.T) {
	content := `---
name: aliased
description: uses the event_kind alias
event_kind: Stop
enabled: true
action: block
reason: keep going
---
`
	d, err := ParseDocument(content, "aliased.md")
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}
	if d.Fields["event"] != "Stop" {
		t.Errorf("event = %v, want Stop (via event_kind alias)", d.Fields["event"])
	}
}

func TestParseDocumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no front matter", "just a body\n"},
		{"unterminated front matter", "---\nname: x\n"},
		{"invalid yaml", "---\nname: [\n---\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDocument(tt.content, tt.name); err == nil {
				t.Error("ParseDocument() succeeded, want error")
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	write("b-rule.md", "---\nname: b\ndescription: d\nevent: Stop\nenabled: true\naction: block\nreason: r\n---\n")
	write("a-rule.md", "---\nname: a\ndescription: d\nevent: Stop\nenabled: true\naction: block\nreason: r\n---\n")
	write("broken.md", "no front matter here")
	write("notes.txt", "ignored")

	docs := LoadDir(dir)
	if len(docs) != 2 {
		t.Fatalf("LoadDir() returned %d docs, want 2", len(docs))
	}
	// Lexical order keeps load order deterministic.
	if docs[0].Fields["name"] != "a" || docs[1].Fields["name"] != "b" {
		t.Errorf("LoadDir() order = %v, %v", docs[0].Fields["name"], docs[1].Fields["name"])
	}
}

func TestWriteDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := WriteDefaults(dir); err != nil {
		t.Fatalf("WriteDefaults() error: %v", err)
	}
	docs := LoadDir(dir)
	if len(docs) != len(DefaultDocuments()) {
		t.Errorf("wrote %d docs, want %d", len(docs), len(DefaultDocuments()))
	}

	// Existing files are not overwritten.
	custom := filepath.Join(dir, "deny-recursive-rm.md")
	if err := os.WriteFile(custom, []byte("---\nname: mine\n---\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteDefaults(dir); err != nil {
		t.Fatal(err)
	}
	content, _ := os.ReadFile(custom)
	if string(content) != "---\nname: mine\n---\n" {
		t.Error("WriteDefaults() overwrote an existing rule file")
	}
}
