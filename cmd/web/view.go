package main

import (
	"html/template"
	"net/http"
	"strconv"

	"finitefield.org/kickshop/internal/cart"
	"finitefield.org/kickshop/internal/catalog"
	"finitefield.org/kickshop/internal/content"
	"finitefield.org/kickshop/internal/domain"
	"finitefield.org/kickshop/internal/format"
	"finitefield.org/kickshop/internal/nav"
	"finitefield.org/kickshop/internal/seo"
	"finitefield.org/kickshop/internal/session"
)

const appTitle = "RyzKickShop"

// PageData is the view model every page renders through the shared layout.
type PageData struct {
	Title       string
	AppTitle    string
	Lang        string
	Path        string
	CSRFToken   string
	Tabs        []nav.RenderedTab
	Breadcrumbs []nav.Crumb
	CanGoBack   bool
	CartCount   int
	Flash       string
	SEO         *seo.Meta

	Home     *HomeView
	Detail   *DetailView
	Cart     *CartView
	Order    *OrderView
	About    *content.Page
	NotFound *NotFoundView
}

// ProductCard is one item tile in a section.
type ProductCard struct {
	ID          int
	Title       string
	Description string
	Price       string
	Image       string
	Href        string
}

// SectionView is a rendered catalog section.
type SectionView struct {
	Key        string
	HeadingKey string
	Layout     string
	Items      []ProductCard
}

// HomeView lists every catalog section.
type HomeView struct {
	Sections []SectionView
}

// DetailView is the product page.
type DetailView struct {
	Item      ProductCard
	Detail    template.HTML
	InCart    int
	CSRFToken string
	Lang      string
}

// CartView aggregates all data needed for the cart page and its table fragment.
type CartView struct {
	Lang      string
	CSRFToken string
	Empty     bool
	Lines     []CartLineView
	Count     int
	Total     string
}

// CartLineView represents a line in the cart table.
type CartLineView struct {
	ID          int
	Title       string
	Description string
	Image       string
	Price       string
	Quantity    int
	Subtotal    string
}

// OrderView is the checkout confirmation.
type OrderView struct {
	ID       string
	Units    int
	Total    string
	PlacedAt string
	Lines    []CartLineView
}

// NotFoundView explains a fallback page.
type NotFoundView struct {
	MessageKey string
	HintKey    string
	Detail     string
}

func productCard(item domain.Item) ProductCard {
	return ProductCard{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Price:       format.Money(item.Price),
		Image:       imageURL(item.ImageRef),
		Href:        nav.Detail(item.ID).Path(),
	}
}

func buildHomeView(c *catalog.Catalog) *HomeView {
	sections := c.Sections()
	view := &HomeView{Sections: make([]SectionView, 0, len(sections))}
	for _, s := range sections {
		sv := SectionView{Key: s.Key, HeadingKey: s.HeadingKey, Layout: s.Layout}
		for _, item := range s.Items {
			sv.Items = append(sv.Items, productCard(item))
		}
		view.Sections = append(view.Sections, sv)
	}
	return view
}

func buildCartView(store *cart.Store, lang, csrf string) *CartView {
	lines := store.Lines()
	view := &CartView{
		Lang:      lang,
		CSRFToken: csrf,
		Empty:     len(lines) == 0,
		Count:     store.Count(),
		Total:     format.Money(store.Total()),
		Lines:     cartLines(lines),
	}
	return view
}

func cartLines(lines []cart.Line) []CartLineView {
	out := make([]CartLineView, 0, len(lines))
	for _, l := range lines {
		out = append(out, CartLineView{
			ID:          l.Item.ID,
			Title:       l.Item.Title,
			Description: l.Item.Description,
			Image:       imageURL(l.Item.ImageRef),
			Price:       format.Money(l.Item.Price),
			Quantity:    l.Quantity,
			Subtotal:    format.Money(l.Subtotal()),
		})
	}
	return out
}

func buildOrderView(o cart.Order, lang string) *OrderView {
	return &OrderView{
		ID:       o.ID,
		Units:    o.Units,
		Total:    format.Money(o.Total),
		PlacedAt: format.FmtDate(o.PlacedAt, lang),
		Lines:    cartLines(o.Lines),
	}
}

// chrome fills the fields every page shares from the session state.
func (a *app) chrome(st *session.State, lang, csrf, path string) PageData {
	current := st.Router.Current()
	return PageData{
		AppTitle:    appTitle,
		Lang:        lang,
		Path:        path,
		CSRFToken:   csrf,
		Tabs:        nav.Build(current),
		Breadcrumbs: nav.Breadcrumbs(st.Router.BackStack()),
		CanGoBack:   st.Router.Depth() > 1,
		CartCount:   st.Cart.Count(),
	}
}

func parseItemID(raw string) (int, bool) {
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// absoluteURL resolves path against the request host. X-Forwarded-Proto wins
// over the connection when set.
func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return scheme + "://" + r.Host + path
}
