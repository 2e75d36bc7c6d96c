// Package content loads markdown pages with YAML front matter from disk.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"finitefield.org/kickshop/internal/domain"
)

const defaultDir = "content"

// Page is a rendered markdown page.
type Page struct {
	Slug    string
	Lang    string
	Title   string
	Summary string
	Profile Profile
	HTML    template.HTML
}

// Profile holds the contact details shown on the about page.
type Profile struct {
	Name       string `yaml:"name" json:"name"`
	Email      string `yaml:"email" json:"email"`
	University string `yaml:"university" json:"university"`
	Major      string `yaml:"major" json:"major"`
	Photo      string `yaml:"photo" json:"photo"`
}

type frontMatter struct {
	Title   string  `yaml:"title"`
	Summary string  `yaml:"summary"`
	Lang    string  `yaml:"lang"`
	Profile Profile `yaml:"profile"`
}

// Loader reads pages from dir/<lang>/<slug>.md, falling back to the default language.
type Loader struct {
	dir      string
	fallback string
	dev      bool
	md       goldmark.Markdown
	policy   *bluemonday.Policy

	mu    sync.RWMutex
	cache map[string]Page
}

// NewLoader constructs a loader. In dev mode pages are re-read on every call.
func NewLoader(dir, fallbackLang string, dev bool) *Loader {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = defaultDir
	}
	if fallbackLang == "" {
		fallbackLang = "id"
	}
	return &Loader{
		dir:      dir,
		fallback: fallbackLang,
		dev:      dev,
		md:       goldmark.New(goldmark.WithExtensions(extension.Linkify)),
		policy:   newHTMLPolicy(),
		cache:    map[string]Page{},
	}
}

func newHTMLPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").OnElements("p", "span")
	policy.RequireNoFollowOnLinks(true)
	return policy
}

// Page returns the page for slug in lang, or the fallback language. A missing
// page fails with domain.ErrNotFound.
func (l *Loader) Page(slug, lang string) (Page, error) {
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, fmt.Errorf("%w: page", domain.ErrNotFound)
	}
	priority := []string{lang}
	if lang != l.fallback {
		priority = append(priority, l.fallback)
	}
	for _, candidate := range priority {
		if candidate == "" {
			continue
		}
		page, err := l.load(slug, candidate)
		if err == nil {
			return page, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		return Page{}, err
	}
	return Page{}, fmt.Errorf("%w: page %q", domain.ErrNotFound, slug)
}

func (l *Loader) load(slug, lang string) (Page, error) {
	key := lang + "/" + slug
	if !l.dev {
		l.mu.RLock()
		page, ok := l.cache[key]
		l.mu.RUnlock()
		if ok {
			return page, nil
		}
	}
	page, err := l.read(slug, lang)
	if err != nil {
		return Page{}, err
	}
	if !l.dev {
		l.mu.Lock()
		l.cache[key] = page
		l.mu.Unlock()
	}
	return page, nil
}

func (l *Loader) read(slug, lang string) (Page, error) {
	file := filepath.Join(l.dir, lang, slug+".md")
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, fmt.Errorf("%w: %s", domain.ErrNotFound, file)
		}
		return Page{}, err
	}
	return l.Render(slug, lang, data)
}

// Render parses front matter and converts the markdown body to sanitised HTML.
func (l *Loader) Render(slug, lang string, data []byte) (Page, error) {
	fm, body := splitFrontMatter(string(data))
	front := frontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("%w: front matter of %s: %v", domain.ErrParse, slug, err)
		}
	}
	var buf bytes.Buffer
	if err := l.md.Convert([]byte(body), &buf); err != nil {
		return Page{}, fmt.Errorf("%w: markdown of %s: %v", domain.ErrParse, slug, err)
	}
	page := Page{
		Slug:    slug,
		Lang:    firstNonEmpty(strings.TrimSpace(front.Lang), lang),
		Title:   strings.TrimSpace(front.Title),
		Summary: strings.TrimSpace(front.Summary),
		Profile: front.Profile,
		HTML:    template.HTML(l.policy.SanitizeBytes(buf.Bytes())),
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	return page, nil
}

// Markdown renders a standalone markdown fragment, such as a product detail text.
func (l *Loader) Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := l.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("%w: markdown: %v", domain.ErrParse, err)
	}
	return template.HTML(l.policy.SanitizeBytes(buf.Bytes())), nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func sanitizeSlug(slug string) string {
	slug = strings.Trim(strings.TrimSpace(strings.ToLower(slug)), "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
