package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"finitefield.org/kickshop/internal/domain"
	"finitefield.org/kickshop/internal/format"
	"finitefield.org/kickshop/internal/i18n"
	"finitefield.org/kickshop/internal/platform/requestctx"
)

// renderer holds one template set per page. Each set is the shared layouts and
// partials plus a single page file, so every page can define "content".
type renderer struct {
	dir    string
	dev    bool
	bundle *i18n.Bundle

	mu    sync.RWMutex
	pages map[string]*template.Template
}

func newRenderer(dir string, dev bool, bundle *i18n.Bundle) (*renderer, error) {
	rd := &renderer{dir: dir, dev: dev, bundle: bundle}
	pages, err := rd.parse()
	if err != nil {
		return nil, err
	}
	rd.pages = pages
	return rd, nil
}

func (rd *renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"t": func(lang, key string) string {
			if rd.bundle == nil {
				return key
			}
			return rd.bundle.T(lang, key)
		},
		"money": func(m domain.Money) string { return format.Money(m) },
		"image": imageURL,
		"date":  format.FmtDate,
		"now":   time.Now,
	}
}

func (rd *renderer) parse() (map[string]*template.Template, error) {
	var shared, pages []string
	err := filepath.WalkDir(rd.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmpl") {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) == "pages" {
			pages = append(pages, path)
		} else {
			shared = append(shared, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page templates found under %s", rd.dir)
	}
	base, err := template.New("_root").Funcs(rd.funcs()).ParseFiles(shared...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFiles(page); err != nil {
			return nil, err
		}
		out[strings.TrimSuffix(filepath.Base(page), ".tmpl")] = clone
	}
	return out, nil
}

func (rd *renderer) set(page string) (*template.Template, error) {
	if rd.dev {
		pages, err := rd.parse()
		if err != nil {
			return nil, fmt.Errorf("template parse error: %w", err)
		}
		rd.mu.Lock()
		rd.pages = pages
		rd.mu.Unlock()
	}
	rd.mu.RLock()
	defer rd.mu.RUnlock()
	t, ok := rd.pages[page]
	if !ok {
		return nil, fmt.Errorf("template %q not found", page)
	}
	return t, nil
}

// page executes the base layout of the given page.
func (rd *renderer) page(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	rd.execute(w, r, status, page, "base", data)
}

// fragment executes a named partial; any page set carries the partials.
func (rd *renderer) fragment(w http.ResponseWriter, r *http.Request, name string, data any) {
	rd.execute(w, r, http.StatusOK, "home", name, data)
}

func (rd *renderer) execute(w http.ResponseWriter, r *http.Request, status int, page, name string, data any) {
	t, err := rd.set(page)
	if err != nil {
		requestctx.Logger(r.Context()).Error("template lookup failed", zap.String("page", page), zap.Error(err))
		http.Error(w, "template not initialized", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		requestctx.Logger(r.Context()).Error("template exec failed", zap.String("page", page), zap.String("template", name), zap.Error(err))
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// imageURL resolves an opaque image reference to its static asset path.
func imageURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "/assets/img/placeholder.svg"
	}
	if strings.HasPrefix(ref, "/") || strings.Contains(ref, "://") {
		return ref
	}
	if filepath.Ext(ref) == "" {
		ref += ".svg"
	}
	return "/assets/img/" + ref
}
