package catalog

import (
	"fmt"
	"sort"

	"finitefield.org/kickshop/internal/domain"
)

// SectionItems is a generated section ready for rendering.
type SectionItems struct {
	Key        string
	HeadingKey string
	Layout     string
	Items      []domain.Item
}

// Catalog is an immutable snapshot of every generated section, indexed by item id.
type Catalog struct {
	sections []SectionItems
	index    map[int]domain.Item
}

// Build generates every section in defs.
func Build(defs Definitions) (*Catalog, error) {
	c := &Catalog{index: make(map[int]domain.Item)}
	for _, section := range defs.Sections {
		if section.Currency == "" {
			section.Currency = defs.Currency
		}
		items, err := Generate(section, section.Count)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if _, dup := c.index[item.ID]; dup {
				return nil, fmt.Errorf("%w: item id %d generated twice", domain.ErrConfiguration, item.ID)
			}
			c.index[item.ID] = item
		}
		c.sections = append(c.sections, SectionItems{
			Key:        section.Key,
			HeadingKey: section.HeadingKey,
			Layout:     section.Layout,
			Items:      items,
		})
	}
	return c, nil
}

// Sections returns the generated sections in definition order.
func (c *Catalog) Sections() []SectionItems {
	if c == nil {
		return nil
	}
	out := make([]SectionItems, len(c.sections))
	for i, s := range c.sections {
		out[i] = s
		out[i].Items = append([]domain.Item(nil), s.Items...)
	}
	return out
}

// Section returns one section by key.
func (c *Catalog) Section(key string) (SectionItems, bool) {
	if c == nil {
		return SectionItems{}, false
	}
	for _, s := range c.sections {
		if s.Key == key {
			s.Items = append([]domain.Item(nil), s.Items...)
			return s, true
		}
	}
	return SectionItems{}, false
}

// Lookup resolves an item by id.
func (c *Catalog) Lookup(id int) (domain.Item, error) {
	if c != nil {
		if item, ok := c.index[id]; ok {
			return item, nil
		}
	}
	return domain.Item{}, fmt.Errorf("%w: item %d", domain.ErrNotFound, id)
}

// Has reports whether id belongs to the catalog.
func (c *Catalog) Has(id int) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[id]
	return ok
}

// Items returns every item ordered by id.
func (c *Catalog) Items() []domain.Item {
	if c == nil {
		return nil
	}
	out := make([]domain.Item, 0, len(c.index))
	for _, item := range c.index {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of generated items.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.index)
}
