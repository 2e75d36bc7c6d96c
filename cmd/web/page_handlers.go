package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/kickshop/internal/domain"
	mw "finitefield.org/kickshop/internal/middleware"
	"finitefield.org/kickshop/internal/nav"
	"finitefield.org/kickshop/internal/platform/observability"
	"finitefield.org/kickshop/internal/seo"
	"finitefield.org/kickshop/internal/session"
)

// navigateOptions returns the options a GET for route applies. Bottom-bar links
// carry ?tab=1 and use the tab's pop rules; every GET is single-top so reloads
// and post-redirect-get never stack duplicates.
func navigateOptions(r *http.Request, route nav.Route) []nav.NavigateOption {
	if r.URL.Query().Get("tab") == "1" {
		if tab, ok := nav.TabFor(route); ok {
			return tab.Options()
		}
	}
	return []nav.NavigateOption{nav.SingleTop()}
}

// HomeHandler regenerates the catalog and renders both sections.
func (a *app) homeHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	var vm PageData
	err := a.withState(r, func(st *session.State) error {
		if err := st.EnterHome(); err != nil {
			return err
		}
		if err := st.Router.Navigate(nav.Home, navigateOptions(r, nav.Home)...); err != nil {
			return err
		}
		a.metrics.Navigation(nav.KindHome.String())
		vm = a.chrome(st, lang, mw.CSRFToken(r), r.URL.Path)
		vm.Home = buildHomeView(st.Catalog)
		vm.SEO = &seo.Meta{
			Canonical: absoluteURL(r, nav.Home.Path()),
			JSONLD:    []map[string]any{seo.Organization(appTitle, absoluteURL(r, nav.Home.Path()))},
		}
		return nil
	})
	if err != nil {
		a.pageError(w, r, err)
		return
	}
	vm.Title = a.bundle.T(lang, "app.title")
	a.render.page(w, r, http.StatusOK, "home", vm)
}

// detailHandler renders a product, or the unavailable fallback with 404.
func (a *app) detailHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	id, ok := parseItemID(chi.URLParam(r, "itemID"))
	var vm PageData
	err := a.withState(r, func(st *session.State) error {
		if !ok {
			vm = a.chrome(st, lang, mw.CSRFToken(r), r.URL.Path)
			return domain.ErrNotFound
		}
		route := nav.Detail(id)
		navErr := st.Router.Navigate(route, navigateOptions(r, route)...)
		vm = a.chrome(st, lang, mw.CSRFToken(r), r.URL.Path)
		if navErr != nil {
			return navErr
		}
		item, err := st.Catalog.Lookup(id)
		if err != nil {
			return err
		}
		a.metrics.Navigation(nav.KindDetail.String())
		line, _ := st.Cart.Line(id)
		detail, err := a.pages.Markdown(item.Detail)
		if err != nil {
			return err
		}
		card := productCard(item)
		meta := seo.ProductMeta(item, absoluteURL(r, card.Href), absoluteURL(r, card.Image), []seo.BreadcrumbItem{
			{Name: a.bundle.T(lang, "nav.home"), Item: absoluteURL(r, nav.Home.Path())},
			{Name: item.Title, Item: absoluteURL(r, card.Href)},
		})
		vm.SEO = &meta
		vm.Detail = &DetailView{
			Item:      card,
			Detail:    detail,
			InCart:    line.Quantity,
			CSRFToken: vm.CSRFToken,
			Lang:      lang,
		}
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		a.metrics.NotFound(nav.KindDetail.String())
		vm.Title = a.bundle.T(lang, "detail.unavailable")
		vm.NotFound = &NotFoundView{MessageKey: "detail.unavailable", HintKey: "detail.unavailable_hint"}
		a.render.page(w, r, http.StatusNotFound, "not_found", vm)
		return
	}
	if err != nil {
		a.pageError(w, r, err)
		return
	}
	if r.URL.Query().Get("added") == "1" {
		vm.Flash = a.bundle.T(lang, "detail.added")
	}
	vm.Title = vm.Detail.Item.Title
	a.render.page(w, r, http.StatusOK, "detail", vm)
}

// cartHandler renders the cart page: placeholder when empty, lines and total otherwise.
func (a *app) cartHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	var vm PageData
	err := a.withState(r, func(st *session.State) error {
		if err := st.Router.Navigate(nav.Cart, navigateOptions(r, nav.Cart)...); err != nil {
			return err
		}
		a.metrics.Navigation(nav.KindCart.String())
		vm = a.chrome(st, lang, mw.CSRFToken(r), r.URL.Path)
		vm.Cart = buildCartView(st.Cart, lang, vm.CSRFToken)
		return nil
	})
	if err != nil {
		a.pageError(w, r, err)
		return
	}
	vm.Title = a.bundle.T(lang, "cart.title")
	a.render.page(w, r, http.StatusOK, "cart", vm)
}

// aboutHandler renders the markdown profile page.
func (a *app) aboutHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	page, pageErr := a.pages.Page("about", lang)
	var vm PageData
	err := a.withState(r, func(st *session.State) error {
		if err := st.Router.Navigate(nav.About, navigateOptions(r, nav.About)...); err != nil {
			return err
		}
		a.metrics.Navigation(nav.KindAbout.String())
		vm = a.chrome(st, lang, mw.CSRFToken(r), r.URL.Path)
		return nil
	})
	if err != nil {
		a.pageError(w, r, err)
		return
	}
	if pageErr != nil {
		observability.FromContext(r.Context()).Warn("about page unavailable", zap.Error(pageErr))
		a.metrics.NotFound(nav.KindAbout.String())
		vm.Title = a.bundle.T(lang, "error.not_found")
		vm.NotFound = &NotFoundView{MessageKey: "error.not_found"}
		a.render.page(w, r, http.StatusNotFound, "not_found", vm)
		return
	}
	vm.Title = page.Title
	vm.About = &page
	a.render.page(w, r, http.StatusOK, "about", vm)
}

// backHandler pops the stack and redirects to whatever is now on top.
func (a *app) backHandler(w http.ResponseWriter, r *http.Request) {
	target := nav.Home
	err := a.withState(r, func(st *session.State) error {
		st.Router.NavigateUp()
		target = st.Router.Current()
		return nil
	})
	if err != nil {
		a.pageError(w, r, err)
		return
	}
	http.Redirect(w, r, target.Path(), http.StatusSeeOther)
}

// notFoundHandler answers unknown routes: JSON under the API prefix, HTML elsewhere.
func (a *app) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	a.metrics.NotFound("route")
	vm := PageData{
		AppTitle:  appTitle,
		Title:     a.bundle.T(lang, "error.not_found"),
		Lang:      lang,
		Path:      r.URL.Path,
		CSRFToken: mw.CSRFToken(r),
		NotFound:  &NotFoundView{MessageKey: "error.not_found"},
	}
	_ = a.withState(r, func(st *session.State) error {
		vm = a.chrome(st, lang, vm.CSRFToken, r.URL.Path)
		vm.Title = a.bundle.T(lang, "error.not_found")
		vm.NotFound = &NotFoundView{MessageKey: "error.not_found"}
		return nil
	})
	a.render.page(w, r, http.StatusNotFound, "not_found", vm)
}

// pageError renders the generic error page. Domain errors never end the session.
func (a *app) pageError(w http.ResponseWriter, r *http.Request, err error) {
	lang := mw.Lang(r)
	status := http.StatusInternalServerError
	key := "error.generic"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, key = http.StatusNotFound, "error.not_found"
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrParse):
		status = http.StatusBadRequest
	default:
		observability.FromContext(r.Context()).Error("page request failed", zap.Error(err))
	}
	vm := PageData{
		AppTitle:  appTitle,
		Title:     a.bundle.T(lang, key),
		Lang:      lang,
		Path:      r.URL.Path,
		CSRFToken: mw.CSRFToken(r),
		Tabs:      nav.Build(nav.Route{Kind: -1}),
		NotFound:  &NotFoundView{MessageKey: key},
	}
	if status < http.StatusInternalServerError {
		vm.NotFound.Detail = err.Error()
	}
	a.render.page(w, r, status, "not_found", vm)
}
