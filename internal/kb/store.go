// Package kb provides the medication knowledge base: a file-backed store
// of reference excerpts with keyword-overlap retrieval. It backs the
// medication stage's "query knowledge base, get relevant excerpts"
// capability.
package kb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// watchedExtensions are the reference document formats the store ingests.
var watchedExtensions = []string{".txt", ".md"}

type excerpt struct {
	source string
	text   string
	terms  map[string]struct{}
}

// Store loads medication reference documents from a directory, splits them
// into paragraph excerpts and answers queries by keyword overlap. It is
// safe for concurrent use; Reload swaps the excerpt set atomically under
// the lock.
type Store struct {
	mu       sync.RWMutex
	dir      string
	topK     int
	excerpts []excerpt
}

// NewStore creates a store over the given directory. topK bounds how many
// excerpts one query returns; values <= 0 default to 3.
func NewStore(dir string, topK int) *Store {
	if topK <= 0 {
		topK = 3
	}
	return &Store{dir: dir, topK: topK}
}

// Reload re-reads every reference document under the store directory.
func (s *Store) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("kb: read dir %s: %w", s.dir, err)
	}
	var loaded []excerpt
	for _, entry := range entries {
		if entry.IsDir() || !isWatchedExtension(entry.Name()) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("kb: read %s: %w", path, err)
		}
		loaded = append(loaded, splitExcerpts(entry.Name(), string(data))...)
	}
	s.mu.Lock()
	s.excerpts = loaded
	s.mu.Unlock()
	return nil
}

// Query returns the most relevant excerpts for the question, joined with
// their source names. An empty result is not an error: the medication
// stage simply runs without reference material.
func (s *Store) Query(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	queryTerms := tokenize(question)
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		excerpt excerpt
		score   int
		index   int
	}
	var results []scored
	for i, ex := range s.excerpts {
		score := 0
		for term := range queryTerms {
			if _, ok := ex.terms[term]; ok {
				score++
			}
		}
		if score > 0 {
			results = append(results, scored{excerpt: ex, score: score, index: i})
		}
	}
	// Stable ordering: score descending, then document order.
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].index < results[j].index
	})
	if len(results) > s.topK {
		results = results[:s.topK]
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[Source: %s]\n%s", r.excerpt.source, r.excerpt.text)
	}
	return strings.Join(parts, "\n\n"), nil
}

// Len reports how many excerpts are loaded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.excerpts)
}

func splitExcerpts(source, content string) []excerpt {
	var out []excerpt
	for _, para := range strings.Split(content, "\n\n") {
		text := strings.TrimSpace(para)
		if text == "" {
			continue
		}
		out = append(out, excerpt{source: source, text: text, terms: tokenize(text)})
	}
	return out
}

// tokenize lowercases and splits on non-letter/digit runes, dropping very
// short tokens that carry no signal.
func tokenize(text string) map[string]struct{} {
	terms := map[string]struct{}{}
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		terms[f] = struct{}{}
	}
	return terms
}

func isWatchedExtension(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range watchedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
