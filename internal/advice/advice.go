// Package advice answers free-text security questions from a fixed keyword table.
package advice

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// DefaultKey is answered when nothing else matches.
const DefaultKey = "default"

//go:embed advice.json
var embeddedTable []byte

// findingKeys maps passive finding IDs to table keys.
var findingKeys = map[string]string{
	"missing_strict-transport-security": "hsts",
	"missing_content-security-policy":   "csp",
	"missing_x-frame-options":           "x-frame-options",
	"missing_x-content-type-options":    "nosniff",
	"missing_referrer-policy":           "referrer",
	"missing_x-xss-protection":          "xss",
	"server_banner":                     "server",
	"deprecated_jquery":                 "jquery",
}

// Table is read-only after construction and safe for concurrent use.
type Table struct {
	answers map[string]string
	keys    []string // sorted
}

// New builds a table from keyword/answer pairs. Keys are matched lowercase.
func New(entries map[string]string) *Table {
	t := &Table{answers: make(map[string]string, len(entries))}
	for k, v := range entries {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		t.answers[key] = v
		t.keys = append(t.keys, key)
	}
	sort.Strings(t.keys)
	return t
}

// Parse decodes a JSON object of keyword/answer strings.
func Parse(data []byte) (*Table, error) {
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse advice table: %w", err)
	}
	return New(entries), nil
}

// Default returns the built-in table.
func Default() *Table {
	t, err := Parse(embeddedTable)
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads a table from path, or returns the built-in table when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied configuration path.
	if err != nil {
		return nil, fmt.Errorf("read advice file: %w", err)
	}
	return Parse(data)
}

// Lookup returns the answer for the first keyword, in sorted order, contained in
// the lowercased question. Questions mentioning hsts or xss fall back to those
// entries; anything else gets the default answer.
func (t *Table) Lookup(question string) string {
	q := strings.ToLower(question)
	for _, key := range t.keys {
		if strings.Contains(q, key) {
			return t.answers[key]
		}
	}
	for _, fallback := range []string{"hsts", "xss"} {
		if strings.Contains(q, fallback) {
			if answer, ok := t.answers[fallback]; ok {
				return answer
			}
		}
	}
	return t.answers[DefaultKey]
}

// ForFinding returns the advice entry linked to a finding ID, if any.
func (t *Table) ForFinding(id string) (string, bool) {
	key, ok := findingKeys[id]
	if !ok {
		return "", false
	}
	answer, ok := t.answers[key]
	return answer, ok
}

// Keys lists the table keywords in sorted order.
func (t *Table) Keys() []string {
	return append([]string(nil), t.keys...)
}
