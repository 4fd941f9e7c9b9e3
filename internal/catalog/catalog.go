// Package catalog loads the immutable prompt and answer card lists the game
// engine deals from.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jason-s-yu/czar/internal/models"
)

//go:embed cards.json
var defaultCards []byte

var (
	ErrEmptyCatalog = errors.New("catalog has no prompts or no answers")
	ErrDuplicateID  = errors.New("duplicate card id")
)

// Catalog is the static card data a game session is built from.
type Catalog struct {
	Prompts []models.PromptCard `json:"prompts"`
	Answers []models.AnswerCard `json:"answers"`
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCards)
}

// Load reads a catalog from a JSON file. An empty path yields the bundled catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog JSON.
//
// Prompts without a pick count default to one blank. Card ids must be unique
// across both lists since the engine tracks every card by id.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Prompts) == 0 || len(c.Answers) == 0 {
		return nil, ErrEmptyCatalog
	}

	seen := make(map[string]struct{}, len(c.Prompts)+len(c.Answers))
	for i := range c.Prompts {
		p := &c.Prompts[i]
		if p.Pick < 1 {
			p.Pick = 1
		}
		if _, dup := seen[p.ID]; dup || p.ID == "" {
			return nil, fmt.Errorf("prompt %q: %w", p.ID, ErrDuplicateID)
		}
		seen[p.ID] = struct{}{}
	}
	for _, a := range c.Answers {
		if _, dup := seen[a.ID]; dup || a.ID == "" {
			return nil, fmt.Errorf("answer %q: %w", a.ID, ErrDuplicateID)
		}
		seen[a.ID] = struct{}{}
	}
	return &c, nil
}
