package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"finitefield.org/kickshop/internal/domain"
	mw "finitefield.org/kickshop/internal/middleware"
	"finitefield.org/kickshop/internal/nav"
	"finitefield.org/kickshop/internal/session"
)

// cartAddHandler adds one unit from the detail page. "Beli Sekarang" (buy=1)
// continues to the cart with home kept underneath; otherwise the detail page
// is shown again with a confirmation.
func (a *app) cartAddHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.pageError(w, r, domain.ErrInvalidArgument)
		return
	}
	id, ok := parseItemID(r.PostFormValue("item_id"))
	if !ok {
		a.pageError(w, r, domain.ErrInvalidArgument)
		return
	}
	buy := r.PostFormValue("buy") == "1"
	err := a.withState(r, func(st *session.State) error {
		item, err := st.Catalog.Lookup(id)
		if err != nil {
			return err
		}
		if err := st.Cart.Add(item); err != nil {
			return err
		}
		a.metrics.CartMutation("add")
		if buy {
			return st.Router.Navigate(nav.Cart, nav.PopUpTo(nav.Home, false))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.metrics.NotFound(nav.KindDetail.String())
		}
		a.pageError(w, r, err)
		return
	}
	if buy {
		http.Redirect(w, r, nav.Cart.Path(), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, nav.Detail(id).Path()+"?added=1", http.StatusSeeOther)
}

// cartRemoveHandler takes one unit out (or the whole line with all=1). htmx
// callers get the refreshed table fragment.
// removeOp labels a cart removal for the mutation counter.
func removeOp(all bool) string {
	if all {
		return "remove_line"
	}
	return "remove"
}

func (a *app) cartRemoveHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(chi.URLParam(r, "itemID"))
	if !ok {
		a.pageError(w, r, domain.ErrInvalidArgument)
		return
	}
	all := r.PostFormValue("all") == "1"
	lang := mw.Lang(r)
	var view *CartView
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
		view = buildCartView(st.Cart, lang, mw.CSRFToken(r))
		return nil
	})
	if err != nil {
		a.pageError(w, r, err)
		return
	}
	if mw.IsHTMX(r.Context()) {
		w.Header().Set("HX-Trigger", `{"cart-updated":{"count":`+strconv.Itoa(view.Count)+`}}`)
		a.render.fragment(w, r, "cart_table", view)
		return
	}
	http.Redirect(w, r, nav.Cart.Path(), http.StatusSeeOther)
}

// cartTableFrag renders the line items table fragment.
func (a *app) cartTableFrag(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	var view *CartView
	err := a.withState(r, func(st *session.State) error {
		view = buildCartView(st.Cart, lang, mw.CSRFToken(r))
		return nil
	})
	if err != nil {
		a.pageError(w, r, err)
		return
	}
	a.render.fragment(w, r, "cart_table", view)
}

// checkoutHandler turns the cart into an order confirmation. An empty cart
// just shows the cart again.
func (a *app) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	var vm PageData
	err := a.withState(r, func(st *session.State) error {
		order, err := st.Cart.Checkout(a.now())
		if err != nil {
			return err
		}
		st.LastOrder = &order
		a.metrics.Checkout()
		vm = a.chrome(st, lang, mw.CSRFToken(r), r.URL.Path)
		vm.Order = buildOrderView(order, lang)
		return nil
	})
	if errors.Is(err, domain.ErrInvalidArgument) {
		http.Redirect(w, r, nav.Cart.Path(), http.StatusSeeOther)
		return
	}
	if err != nil {
		a.pageError(w, r, err)
		return
	}
	vm.Title = a.bundle.T(lang, "cart.order_placed")
	a.render.page(w, r, http.StatusOK, "order", vm)
}
