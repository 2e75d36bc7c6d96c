package nav

import (
	"fmt"

	"finitefield.org/kickshop/internal/domain"
)

// DefaultMaxDepth bounds the back stack when no explicit limit is configured.
const DefaultMaxDepth = 32

// ItemResolver reports whether a product id exists.
type ItemResolver interface {
	Has(id int) bool
}

// Router owns the back stack for one session. The current route is always the
// top of the stack and the stack never becomes empty. Not safe for concurrent use.
type Router struct {
	stack    []Route
	items    ItemResolver
	maxDepth int
}

// RouterOption customises a Router.
type RouterOption func(*Router)

// WithItems sets the resolver used to validate detail routes.
func WithItems(items ItemResolver) RouterOption {
	return func(r *Router) { r.items = items }
}

// WithMaxDepth bounds the stack; values below 2 fall back to DefaultMaxDepth.
func WithMaxDepth(n int) RouterOption {
	return func(r *Router) {
		if n >= 2 {
			r.maxDepth = n
		}
	}
}

// NewRouter starts at home.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{stack: []Route{Home}, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RestoreRouter rebuilds a router from a saved stack. An empty stack restarts at home.
func RestoreRouter(stack []Route, opts ...RouterOption) *Router {
	r := NewRouter(opts...)
	if len(stack) > 0 {
		r.stack = append([]Route(nil), stack...)
	}
	return r
}

// SetItems swaps the resolver, e.g. after the catalog is regenerated.
func (r *Router) SetItems(items ItemResolver) { r.items = items }

// Current returns the top of the back stack.
func (r *Router) Current() Route { return r.stack[len(r.stack)-1] }

// BackStack returns a copy of the stack, bottom first.
func (r *Router) BackStack() []Route {
	return append([]Route(nil), r.stack...)
}

// Depth returns the stack size.
func (r *Router) Depth() int { return len(r.stack) }

type navigateOptions struct {
	popUpTo   *Route
	inclusive bool
	singleTop bool
}

// NavigateOption customises a single Navigate call.
type NavigateOption func(*navigateOptions)

// PopUpTo removes every entry above target (and target itself when inclusive)
// before pushing. The occurrence of target nearest the root wins, so repeated
// entries collapse too. When target is not on the stack the whole stack is cleared.
func PopUpTo(target Route, inclusive bool) NavigateOption {
	return func(o *navigateOptions) {
		t := target
		o.popUpTo = &t
		o.inclusive = inclusive
	}
}

// SingleTop skips the push when route is already current.
func SingleTop() NavigateOption {
	return func(o *navigateOptions) { o.singleTop = true }
}

// Navigate pushes route. Detail routes for unknown items fail with
// domain.ErrNotFound and leave the stack untouched.
func (r *Router) Navigate(route Route, opts ...NavigateOption) error {
	if err := r.validate(route); err != nil {
		return err
	}
	var o navigateOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.popUpTo != nil {
		r.popUpTo(*o.popUpTo, o.inclusive)
	}
	if o.singleTop && len(r.stack) > 0 && r.Current() == route {
		return nil
	}
	r.stack = append(r.stack, route)
	r.trim()
	return nil
}

// NavigateUp pops the current route. It is a no-op at the root and reports whether it popped.
func (r *Router) NavigateUp() bool {
	if len(r.stack) <= 1 {
		return false
	}
	r.stack = r.stack[:len(r.stack)-1]
	return true
}

func (r *Router) validate(route Route) error {
	switch route.Kind {
	case KindHome, KindCart, KindAbout:
		return nil
	case KindDetail:
		if route.ItemID < 0 || r.items == nil || !r.items.Has(route.ItemID) {
			return fmt.Errorf("%w: item %d", domain.ErrNotFound, route.ItemID)
		}
		return nil
	default:
		return fmt.Errorf("%w: route kind %d", domain.ErrNotFound, route.Kind)
	}
}

func (r *Router) popUpTo(target Route, inclusive bool) {
	idx := -1
	for i := range r.stack {
		if r.stack[i] == target {
			idx = i
			break
		}
	}
	switch {
	case idx < 0:
		r.stack = r.stack[:0]
	case inclusive:
		r.stack = r.stack[:idx]
	default:
		r.stack = r.stack[:idx+1]
	}
}

// trim drops the oldest entries above the root once the stack exceeds maxDepth.
func (r *Router) trim() {
	if r.maxDepth <= 0 || len(r.stack) <= r.maxDepth {
		return
	}
	excess := len(r.stack) - r.maxDepth
	r.stack = append(r.stack[:1], r.stack[1+excess:]...)
}
