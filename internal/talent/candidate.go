// Package talent holds the recruiter's candidate directory and the filter
// pipeline used to source candidates from it.
package talent

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

//go:embed candidates.json
var defaultDirectory []byte

type Candidates struct {
	Items []*Candidate `json:"items"`
}

type Candidate struct {
	Name       string   `json:"name"`
	Role       string   `json:"role"`
	Skills     []string `json:"skills"`
	Experience int      `json:"experience"`
	Score      float64  `json:"score"`
	LinkedIn   string   `json:"linkedin,omitempty"`
	GitHub     string   `json:"github,omitempty"`
}

// Default returns a fresh copy of the built-in sample directory.
func Default() *Candidates {
	c, err := parse(defaultDirectory)
	if err != nil {
		panic(fmt.Sprintf("embedded candidate directory: %v", err))
	}
	return c
}

// Load reads a directory from a JSON file. An empty path yields Default.
func Load(path string) (*Candidates, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading candidate directory: %w", err)
	}
	c, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing candidate directory %s: %w", path, err)
	}
	return c, nil
}

func parse(data []byte) (*Candidates, error) {
	var c Candidates
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	for i, item := range c.Items {
		if item == nil || strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("candidate #%d has no name", i)
		}
	}
	return &c, nil
}

func (c *Candidates) Len() int {
	return len(c.Items)
}

// Clone copies the list so filtering never mutates the shared directory.
func (c *Candidates) Clone() *Candidates {
	items := make([]*Candidate, len(c.Items))
	copy(items, c.Items)
	return &Candidates{Items: items}
}

// Roles lists the distinct roles in the directory, sorted.
func (c *Candidates) Roles() []string {
	seen := make(map[string]struct{})
	roles := make([]string, 0)
	for _, item := range c.Items {
		if _, ok := seen[item.Role]; ok {
			continue
		}
		seen[item.Role] = struct{}{}
		roles = append(roles, item.Role)
	}
	sort.Strings(roles)
	return roles
}

// Keep retains the candidates matching keep, preserving order, and returns
// the names of the dropped ones.
func (c *Candidates) Keep(keep func(*Candidate) bool) []string {
	var dropped []string
	kept := c.Items[:0]
	for _, item := range c.Items {
		if keep(item) {
			kept = append(kept, item)
			continue
		}
		dropped = append(dropped, item.Name)
	}
	c.Items = kept
	return dropped
}

// Matches reports whether term occurs in the name, the role or any skill,
// ignoring case.
func (ca *Candidate) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(ca.Name), term) || strings.Contains(strings.ToLower(ca.Role), term) {
		return true
	}
	for _, skill := range ca.Skills {
		if strings.Contains(strings.ToLower(skill), term) {
			return true
		}
	}
	return false
}

// ReportByRole groups candidates by role for display.
func (c *Candidates) ReportByRole() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, item := range c.Items {
		report[item.Role] = append(report[item.Role], map[string]string{
			"name":       item.Name,
			"skills":     strings.Join(item.Skills, ", "),
			"experience": fmt.Sprintf("%d years", item.Experience),
			"score":      fmt.Sprintf("%.0f", item.Score),
		})
	}
	return report
}
