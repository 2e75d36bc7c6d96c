// Package seo builds page meta tags and schema.org JSON-LD payloads.
package seo

import (
	"strconv"

	"finitefield.org/kickshop/internal/domain"
)

// OpenGraph holds og:* tags.
type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
}

// Meta is rendered into the document head.
type Meta struct {
	Description string
	Canonical   string
	OG          OpenGraph
	// JSONLD entries are emitted as application/ld+json scripts.
	JSONLD []map[string]any
}

// Organization returns a minimal Organization schema.
func Organization(name, url string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Organization",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	return m
}

// BreadcrumbItem maps a name to an absolute URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds a schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}

// Product returns the schema for item with an in-stock offer.
func Product(item domain.Item, url, imageURL string) map[string]any {
	m := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "Product",
		"name":        item.Title,
		"description": item.Description,
		"sku":         strconv.Itoa(item.ID),
		"offers": map[string]any{
			"@type":         "Offer",
			"price":         strconv.FormatInt(item.Price.Amount, 10),
			"priceCurrency": item.Price.Currency,
			"availability":  "https://schema.org/InStock",
		},
	}
	if url != "" {
		m["url"] = url
	}
	if imageURL != "" {
		m["image"] = imageURL
	}
	return m
}

// ProductMeta assembles the head tags for a product page.
func ProductMeta(item domain.Item, url, imageURL string, crumbs []BreadcrumbItem) Meta {
	meta := Meta{
		Description: item.Description,
		Canonical:   url,
		OG: OpenGraph{
			Title:       item.Title,
			Description: item.Description,
			Image:       imageURL,
			Type:        "product",
		},
		JSONLD: []map[string]any{Product(item, url, imageURL)},
	}
	if len(crumbs) > 0 {
		meta.JSONLD = append(meta.JSONLD, BreadcrumbList(crumbs))
	}
	return meta
}
