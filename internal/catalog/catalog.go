// Package catalog serves the static recycling catalog: the top-level
// categories, their subcategories and the per-item disposal guides.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

// Category is a recycling category or subcategory tile
type Category struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// Step is one titled section of a disposal guide
type Step struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}

// Guide explains how to dispose of one kind of item
type Guide struct {
	Key           string   `json:"key"`
	Name          string   `json:"name"`
	ImageURL      string   `json:"imageUrl"`
	HeaderColor   string   `json:"headerColor"`
	Subtitle      string   `json:"subtitle"`
	Steps         []Step   `json:"steps"`
	WrongExamples []string `json:"wrongExamples"`
}

// SearchResult identifies the guide a keyword resolved to
type SearchResult struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

var topCategories = []Category{
	{Name: "페트병", ImageURL: "/images/icons/pet_bottle.png"},
	{Name: "플라스틱 용기", ImageURL: "/images/icons/plastic_container.png"},
	{Name: "비닐류", ImageURL: "/images/icons/bag.png"},
	{Name: "스티로폼", ImageURL: "/images/icons/styrofoam.png"},
	{Name: "캔류", ImageURL: "/images/icons/can.png"},
	{Name: "유리병", ImageURL: "/images/icons/glass_bottle.png"},
	{Name: "종이류", ImageURL: "/images/icons/paper.png"},
	{Name: "박스/골판지", ImageURL: "/images/icons/cardboard.png"},
	{Name: "옷/섬유류", ImageURL: "/images/icons/fabric.png"},
	{Name: "소형가전", ImageURL: "/images/icons/small_appliance.png"},
	{Name: "대형가전", ImageURL: "/images/icons/large_appliance.png"},
	{Name: "형광등/전구", ImageURL: "/images/icons/bulb.png"},
}

var subCategories = map[string][]Category{
	"페트병": {
		{Name: "생수", ImageURL: "/images/sub/pet_water.png"},
	},
}

//go:embed guides.json
var guidesJSON []byte

type alias struct {
	Alias string `json:"alias"`
	Key   string `json:"key"`
}

// Catalog is immutable after construction and safe for concurrent use
type Catalog struct {
	aliases []alias
	guides  map[string]*Guide
}

// New parses the embedded guides
func New() (*Catalog, error) {
	return parse(guidesJSON)
}

func parse(data []byte) (*Catalog, error) {
	var doc struct {
		Aliases []alias  `json:"aliases"`
		Details []*Guide `json:"details"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse guides: %w", err)
	}

	c := &Catalog{aliases: doc.Aliases, guides: make(map[string]*Guide, len(doc.Details))}
	for _, g := range doc.Details {
		c.guides[g.Key] = g
	}
	for _, a := range c.aliases {
		if _, ok := c.guides[a.Key]; !ok {
			return nil, fmt.Errorf("alias %q points at unknown guide %q", a.Alias, a.Key)
		}
	}
	return c, nil
}

// Categories returns the top-level categories in display order
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), topCategories...)
}

// Subcategories returns the children of the named category, empty when unknown
func (c *Catalog) Subcategories(name string) []Category {
	return append([]Category{}, subCategories[name]...)
}

// Guide returns the guide for key
func (c *Catalog) Guide(key string) (*Guide, bool) {
	g, ok := c.guides[key]
	return g, ok
}

// Search resolves a keyword to a guide. Aliases are tried in declaration
// order; an alias matches when, ignoring case, it equals the keyword,
// contains it, or is contained in it.
func (c *Catalog) Search(keyword string) (*SearchResult, bool) {
	q := strings.ToLower(strings.TrimSpace(keyword))
	if q == "" {
		return nil, false
	}
	for _, a := range c.aliases {
		k := strings.ToLower(a.Alias)
		if k == q || strings.Contains(k, q) || strings.Contains(q, k) {
			g := c.guides[a.Key]
			return &SearchResult{Key: g.Key, Name: g.Name}, true
		}
	}
	return nil, false
}
