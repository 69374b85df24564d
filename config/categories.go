package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCategories is used when no categories file is configured
var DefaultCategories = []string{"Roads", "Garbage", "Electricity", "Water", "Traffic"}

// Categories is the configured set of report categories
type Categories struct {
	names []string
}

type categoriesFile struct {
	Categories []string `yaml:"categories"`
}

// NewCategories builds a category set, dropping blanks and case-insensitive duplicates
func NewCategories(names ...string) *Categories {
	c := &Categories{}
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[strings.ToLower(n)] {
			continue
		}
		seen[strings.ToLower(n)] = true
		c.names = append(c.names, n)
	}
	return c
}

// LoadCategories reads a yaml file of the form
//
//	categories:
//	  - Roads
//	  - Water
//
// An empty path returns DefaultCategories.
func LoadCategories(path string) (*Categories, error) {
	if path == "" {
		return NewCategories(DefaultCategories...), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}
	var f categoriesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse categories file: %w", err)
	}
	c := NewCategories(f.Categories...)
	if len(c.names) == 0 {
		return nil, fmt.Errorf("categories file %s lists no categories", path)
	}
	return c, nil
}

// Names returns the categories in configured order
func (c *Categories) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Canonical returns the configured spelling of name, matched case-insensitively
func (c *Categories) Canonical(name string) (string, bool) {
	for _, n := range c.names {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return n, true
		}
	}
	return "", false
}
