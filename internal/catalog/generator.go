package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"finitefield.org/kickshop/internal/domain"
)

// AssetCycle is the number of image assets a section rotates through.
const AssetCycle = 5

const ordinalPlaceholder = "{n}"

// Section describes how one product list is generated.
type Section struct {
	Key        string   `yaml:"key" json:"key"`
	HeadingKey string   `yaml:"heading_key" json:"headingKey"`
	Layout     string   `yaml:"layout" json:"layout"`
	Title      string   `yaml:"title" json:"title"`
	Summary    string   `yaml:"description" json:"description"`
	Detail     string   `yaml:"detail" json:"detail"`
	BasePrice  int64    `yaml:"base_price" json:"basePrice"`
	Currency   string   `yaml:"currency" json:"currency"`
	Count      int      `yaml:"count" json:"count"`
	Offset     int      `yaml:"offset" json:"offset"`
	Assets     []string `yaml:"assets" json:"assets"`
}

// Generate produces count items for the section. Ids are contiguous starting at
// section.Offset; the price of the i-th item is BasePrice*(i+1) and its image
// cycles through the first AssetCycle assets.
func Generate(section Section, count int) ([]domain.Item, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", domain.ErrInvalidArgument, count)
	}
	if len(section.Assets) < AssetCycle {
		return nil, fmt.Errorf("%w: section %q needs at least %d assets, has %d", domain.ErrConfiguration, section.Key, AssetCycle, len(section.Assets))
	}
	if section.BasePrice <= 0 {
		return nil, fmt.Errorf("%w: section %q base price must be positive", domain.ErrConfiguration, section.Key)
	}
	if section.Offset < 0 {
		return nil, fmt.Errorf("%w: section %q offset must not be negative", domain.ErrConfiguration, section.Key)
	}

	items := make([]domain.Item, 0, count)
	for i := 0; i < count; i++ {
		ordinal := strconv.Itoa(i + 1)
		description := expand(section.Summary, ordinal)
		item := domain.Item{
			ID:          section.Offset + i,
			Section:     section.Key,
			Title:       expand(section.Title, ordinal),
			Price:       domain.NewMoney(section.BasePrice*int64(i+1), section.Currency),
			Description: description,
			Detail:      composeDetail(description, expand(section.Detail, ordinal)),
			ImageRef:    section.Assets[i%AssetCycle],
		}
		items = append(items, item)
	}
	return items, nil
}

func expand(template, ordinal string) string {
	return strings.ReplaceAll(template, ordinalPlaceholder, ordinal)
}

func composeDetail(description, detail string) string {
	description = strings.TrimSpace(description)
	detail = strings.TrimSpace(detail)
	switch {
	case detail == "":
		return description
	case description == "":
		return detail
	default:
		return description + ". " + detail
	}
}
