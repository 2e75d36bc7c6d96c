package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"finitefield.org/kickshop/internal/cart"
	"finitefield.org/kickshop/internal/domain"
	"finitefield.org/kickshop/internal/format"
	"finitefield.org/kickshop/internal/nav"
	"finitefield.org/kickshop/internal/platform/httpx"
	"finitefield.org/kickshop/internal/session"
)

const maxAPIBody = 1 << 16

type priceJSON struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

type itemJSON struct {
	ID          int       `json:"id"`
	Section     string    `json:"section"`
	Title       string    `json:"title"`
	Price       priceJSON `json:"price"`
	Description string    `json:"description"`
	Detail      string    `json:"detail,omitempty"`
	Image       string    `json:"image"`
}

type sectionJSON struct {
	Key    string     `json:"key"`
	Layout string     `json:"layout"`
	Items  []itemJSON `json:"items"`
}

type cartLineJSON struct {
	Item     itemJSON  `json:"item"`
	Quantity int       `json:"quantity"`
	Subtotal priceJSON `json:"subtotal"`
}

type cartJSON struct {
	Lines   []cartLineJSON `json:"lines"`
	Count   int            `json:"count"`
	Empty   bool           `json:"empty"`
	Total   priceJSON      `json:"total"`
	Removed *bool          `json:"removed,omitempty"`
}

type navJSON struct {
	Current   nav.Route   `json:"current"`
	BackStack []nav.Route `json:"back_stack"`
	CanGoUp   bool        `json:"can_go_up"`
	Popped    *bool       `json:"popped,omitempty"`
}

type orderJSON struct {
	ID       string         `json:"id"`
	Units    int            `json:"units"`
	Total    priceJSON      `json:"total"`
	Lines    []cartLineJSON `json:"lines"`
	PlacedAt string         `json:"placed_at"`
}

type addItemRequest struct {
	ItemID *int `json:"item_id"`
}

type navigateRequest struct {
	Route     string `json:"route"`
	PopUpTo   string `json:"popUpTo"`
	Inclusive bool   `json:"inclusive"`
	SingleTop bool   `json:"singleTop"`
}

func (a *app) apiRoutes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/catalog", a.apiCatalog)
	r.Get("/catalog/items/{itemID}", a.apiCatalogItem)
	r.Get("/cart", a.apiCart)
	r.With(a.idem.Handler).Post("/cart/items", a.apiCartAdd)
	r.Delete("/cart/items/{itemID}", a.apiCartRemove)
	r.With(a.idem.Handler).Post("/cart/checkout", a.apiCheckout)
	r.Get("/nav", a.apiNav)
	r.Post("/nav/navigate", a.apiNavigate)
	r.Post("/nav/up", a.apiNavigateUp)
}

func toPriceJSON(m domain.Money) priceJSON {
	return priceJSON{Amount: m.Amount, Currency: m.Currency, Display: format.Money(m)}
}

func toItemJSON(item domain.Item, withDetail bool) itemJSON {
	out := itemJSON{
		ID:          item.ID,
		Section:     item.Section,
		Title:       item.Title,
		Price:       toPriceJSON(item.Price),
		Description: item.Description,
		Image:       item.ImageRef,
	}
	if withDetail {
		out.Detail = item.Detail
	}
	return out
}

func toLinesJSON(lines []cart.Line) []cartLineJSON {
	out := make([]cartLineJSON, 0, len(lines))
	for _, l := range lines {
		out = append(out, cartLineJSON{Item: toItemJSON(l.Item, false), Quantity: l.Quantity, Subtotal: toPriceJSON(l.Subtotal())})
	}
	return out
}

func toCartJSON(store *cart.Store) cartJSON {
	return cartJSON{
		Lines: toLinesJSON(store.Lines()),
		Count: store.Count(),
		Empty: store.IsEmpty(),
		Total: toPriceJSON(store.Total()),
	}
}

func toNavJSON(r *nav.Router) navJSON {
	return navJSON{Current: r.Current(), BackStack: r.BackStack(), CanGoUp: r.Depth() > 1}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

func (a *app) apiCatalog(w http.ResponseWriter, r *http.Request) {
	var out []sectionJSON
	err := a.withState(r, func(st *session.State) error {
		for _, s := range st.Catalog.Sections() {
			sec := sectionJSON{Key: s.Key, Layout: s.Layout, Items: make([]itemJSON, 0, len(s.Items))}
			for _, item := range s.Items {
				sec.Items = append(sec.Items, toItemJSON(item, false))
			}
			out = append(out, sec)
		}
		return nil
	})
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"sections": out})
}

func (a *app) apiCatalogItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(chi.URLParam(r, "itemID"))
	if !ok {
		a.writeAPIError(w, r, fmt.Errorf("%w: item %q", domain.ErrNotFound, chi.URLParam(r, "itemID")))
		return
	}
	var out itemJSON
	err := a.withState(r, func(st *session.State) error {
		item, err := st.Catalog.Lookup(id)
		if err != nil {
			return err
		}
		out = toItemJSON(item, true)
		return nil
	})
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (a *app) apiCart(w http.ResponseWriter, r *http.Request) {
	var out cartJSON
	err := a.withState(r, func(st *session.State) error {
		out = toCartJSON(st.Cart)
		return nil
	})
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (a *app) apiCartAdd(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	if req.ItemID == nil {
		a.writeAPIError(w, r, fmt.Errorf("%w: item_id is required", domain.ErrInvalidArgument))
		return
	}
	var out cartJSON
	err := a.withState(r, func(st *session.State) error {
		item, err := st.Catalog.Lookup(*req.ItemID)
		if err != nil {
			return err
		}
		if err := st.Cart.Add(item); err != nil {
			return err
		}
		a.metrics.CartMutation("add")
		out = toCartJSON(st.Cart)
		return nil
	})
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

func (a *app) apiCartRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(chi.URLParam(r, "itemID"))
	if !ok {
		a.writeAPIError(w, r, fmt.Errorf("%w: item %q", domain.ErrInvalidArgument, chi.URLParam(r, "itemID")))
		return
	}
	all := r.URL.Query().Get("all") == "1"
	var out cartJSON
	err := a.withState(r, func(st *session.State) error {
		var removed bool
		if all {
			removed = st.Cart.RemoveLine(id)
		} else {
			removed = st.Cart.Remove(id)
		}
		if removed {
			a.metrics.CartMutation(removeOp(all))
		}
		out = toCartJSON(st.Cart)
		out.Removed = &removed
		return nil
	})
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (a *app) apiCheckout(w http.ResponseWriter, r *http.Request) {
	var out orderJSON
	err := a.withState(r, func(st *session.State) error {
		order, err := st.Cart.Checkout(a.now())
		if err != nil {
			return err
		}
		st.LastOrder = &order
		a.metrics.Checkout()
		out = orderJSON{
			ID:       order.ID,
			Units:    order.Units,
			Total:    toPriceJSON(order.Total),
			Lines:    toLinesJSON(order.Lines),
			PlacedAt: order.PlacedAt.UTC().Format(time.RFC3339),
		}
		return nil
	})
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

func (a *app) apiNav(w http.ResponseWriter, r *http.Request) {
	var out navJSON
	err := a.withState(r, func(st *session.State) error {
		out = toNavJSON(st.Router)
		return nil
	})
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// apiNavigate applies a navigation. Entering home regenerates the catalog, as the HTML view does.
func (a *app) apiNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	route, err := nav.ParseRoute(req.Route)
	if err != nil || strings.TrimSpace(req.Route) == "" {
		a.writeAPIError(w, r, fmt.Errorf("%w: route %q", domain.ErrNotFound, req.Route))
		return
	}
	var opts []nav.NavigateOption
	if strings.TrimSpace(req.PopUpTo) != "" {
		target, err := nav.ParseRoute(req.PopUpTo)
		if err != nil {
			a.writeAPIError(w, r, fmt.Errorf("%w: popUpTo %q", domain.ErrInvalidArgument, req.PopUpTo))
			return
		}
		opts = append(opts, nav.PopUpTo(target, req.Inclusive))
	}
	if req.SingleTop {
		opts = append(opts, nav.SingleTop())
	}
	var out navJSON
	err = a.withState(r, func(st *session.State) error {
		if err := st.Router.Navigate(route, opts...); err != nil {
			return err
		}
		if route.Kind == nav.KindHome {
			if err := st.EnterHome(); err != nil {
				return err
			}
		}
		a.metrics.Navigation(route.Kind.String())
		out = toNavJSON(st.Router)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.metrics.NotFound(route.Kind.String())
		}
		a.writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (a *app) apiNavigateUp(w http.ResponseWriter, r *http.Request) {
	var out navJSON
	err := a.withState(r, func(st *session.State) error {
		popped := st.Router.NavigateUp()
		out = toNavJSON(st.Router)
		out.Popped = &popped
		return nil
	})
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
