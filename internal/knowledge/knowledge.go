// Package knowledge provides the local note store consulted by memory
// and load actions. Notes are written out of band (hookline remember);
// decision-time access is read-only.
package knowledge

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	_ "modernc.org/sqlite"
)

var fold = cases.Fold()

// Note is one stored knowledge entry.
type Note struct {
	ID      int64
	Title   string
	Content string
}

// Store is a sqlite-backed note store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the note store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize knowledge store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add stores a note.
func (s *Store) Add(title, content string) error {
	_, err := s.db.Exec(`INSERT INTO notes (title, content) VALUES (?, ?)`, title, content)
	return err
}

// Search returns up to limit notes scored by how many of the keywords
// appear in their title or content, best first. Comparison is
// case-folded. An empty keyword set returns nothing.
func (s *Store) Search(keywords []string, limit int) ([]Note, error) {
	if len(keywords) == 0 || limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.Query(`SELECT id, title, content FROM notes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	folded := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			folded = append(folded, fold.String(kw))
		}
	}

	type scored struct {
		note  Note
		score int
	}
	var hits []scored
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content); err != nil {
			return nil, err
		}
		text := fold.String(n.Title + " " + n.Content)
		score := 0
		for _, kw := range folded {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{note: n, score: score})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	notes := make([]Note, len(hits))
	for i, h := range hits {
		notes[i] = h.note
	}
	return notes, nil
}

// Keywords extracts search keywords from free text: words longer than
// three runes, case-folded.
func Keywords(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, `.,:;!?"'()[]{}`)
		if len([]rune(w)) > 3 {
			out = append(out, fold.String(w))
		}
	}
	return out
}
