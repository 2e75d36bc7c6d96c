package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"finitefield.org/kickshop/internal/domain"
)

//go:embed defaults.yaml
var defaultDefinitions []byte

// Definitions is the declarative source of the storefront catalog.
type Definitions struct {
	Currency string     `yaml:"currency"`
	Sections []Section  `yaml:"sections"`
	CartSeed []SeedItem `yaml:"cart_seed"`
}

// SeedItem is a literal cart entry. Price is kept in its formatted form and parsed on load.
type SeedItem struct {
	ID          int    `yaml:"id"`
	Title       string `yaml:"title"`
	Price       string `yaml:"price"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
}

// DefaultDefinitions returns the built-in catalog.
func DefaultDefinitions() (Definitions, error) {
	return ParseDefinitions(defaultDefinitions)
}

// LoadDefinitions reads definitions from path, or the built-in catalog when path is blank.
func LoadDefinitions(path string) (Definitions, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultDefinitions()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Definitions{}, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	defs, err := ParseDefinitions(raw)
	if err != nil {
		return Definitions{}, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return defs, nil
}

// ParseDefinitions decodes and validates YAML definitions.
func ParseDefinitions(raw []byte) (Definitions, error) {
	var defs Definitions
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return Definitions{}, fmt.Errorf("%w: decode definitions: %v", domain.ErrConfiguration, err)
	}
	defs.Currency = strings.ToUpper(strings.TrimSpace(defs.Currency))
	if defs.Currency == "" {
		defs.Currency = domain.DefaultCurrency
	}
	if err := defs.Validate(); err != nil {
		return Definitions{}, err
	}
	return defs, nil
}

// Validate checks section keys and id ranges. Generation-level rules (asset
// count, base price) are enforced by Generate.
func (d Definitions) Validate() error {
	if len(d.Sections) == 0 {
		return fmt.Errorf("%w: no sections defined", domain.ErrConfiguration)
	}
	var errs []error
	keys := make(map[string]struct{}, len(d.Sections))
	for i, s := range d.Sections {
		key := strings.TrimSpace(s.Key)
		if key == "" {
			errs = append(errs, fmt.Errorf("section[%d]: key is required", i))
			continue
		}
		if _, dup := keys[key]; dup {
			errs = append(errs, fmt.Errorf("section %q: duplicate key", key))
		}
		keys[key] = struct{}{}
		for j := 0; j < i; j++ {
			if rangesOverlap(s, d.Sections[j]) {
				errs = append(errs, fmt.Errorf("section %q: ids overlap section %q", key, d.Sections[j].Key))
			}
		}
	}
	seen := make(map[int]struct{}, len(d.CartSeed))
	for _, seed := range d.CartSeed {
		if _, dup := seen[seed.ID]; dup {
			errs = append(errs, fmt.Errorf("cart seed %d: duplicate id", seed.ID))
		}
		seen[seed.ID] = struct{}{}
		for _, s := range d.Sections {
			if seed.ID >= s.Offset && seed.ID < s.Offset+s.Count {
				errs = append(errs, fmt.Errorf("cart seed %d: id collides with section %q", seed.ID, s.Key))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// SeedItems converts the cart seed into items, parsing each formatted price.
func (d Definitions) SeedItems() ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(d.CartSeed))
	for _, seed := range d.CartSeed {
		price, err := domain.ParseMoney(seed.Price)
		if err != nil {
			return nil, fmt.Errorf("cart seed %d: %w", seed.ID, err)
		}
		items = append(items, domain.Item{
			ID:          seed.ID,
			Section:     "seed",
			Title:       strings.TrimSpace(seed.Title),
			Price:       price,
			Description: strings.TrimSpace(seed.Description),
			Detail:      strings.TrimSpace(seed.Description),
			ImageRef:    strings.TrimSpace(seed.Image),
		})
	}
	return items, nil
}

func rangesOverlap(a, b Section) bool {
	if a.Count <= 0 || b.Count <= 0 {
		return false
	}
	return a.Offset < b.Offset+b.Count && b.Offset < a.Offset+a.Count
}
