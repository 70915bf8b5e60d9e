// Package catalog loads the shop item file and resolves command templates.
// The points core never reads it directly; the front ends resolve an item
// and hand the price and command over.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

var ErrItemNotFound = errors.New("item not found in catalog")

// Item is one purchasable entry. Command may carry {implantID} and {map}
// placeholders, substituted before anything reaches the command channel.
type Item struct {
	Name    string `json:"name"`
	Price   int64  `json:"price"`
	Command string `json:"command"`
	Limit   int    `json:"limit,omitempty"`
}

// Maps the shop can deliver to. Mirrors the game's map roster.
var Maps = []string{
	"The Island", "Scorched Earth", "Aberration", "Extinction", "Genesis",
	"Genesis Part 2", "Ragnarok", "Valguero", "Crystal Isles", "Fjordur",
}

type Catalog struct {
	categories map[string][]Item
}

// Load reads a shop_items.json file: an object of category name to item
// list.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var categories map[string][]Item
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for cat, items := range categories {
		for _, item := range items {
			if item.Name == "" || item.Price <= 0 || item.Command == "" {
				return nil, fmt.Errorf("catalog category %q: item %q needs a name, a positive price and a command", cat, item.Name)
			}
		}
	}
	return &Catalog{categories: categories}, nil
}

// Categories returns the category names, sorted.
func (c *Catalog) Categories() []string {
	out := make([]string, 0, len(c.categories))
	for name := range c.categories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Items returns the items of one category in file order.
func (c *Catalog) Items(category string) []Item {
	return c.categories[category]
}

// Find looks an item up by name across all categories.
func (c *Catalog) Find(name string) (Item, error) {
	for _, items := range c.categories {
		for _, item := range items {
			if item.Name == name {
				return item, nil
			}
		}
	}
	return Item{}, ErrItemNotFound
}

// ResolveCommand substitutes the identity and map placeholders.
func ResolveCommand(command, implantID, mapName string) string {
	command = strings.ReplaceAll(command, "{implantID}", implantID)
	command = strings.ReplaceAll(command, "{map}", mapName)
	return command
}

// NeedsImplantID reports whether the command cannot be delivered without a
// player identity token.
func NeedsImplantID(command string) bool {
	return strings.Contains(command, "{implantID}")
}
