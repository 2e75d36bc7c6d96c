package nav

import (
	"fmt"
	"strconv"
	"strings"

	"finitefield.org/kickshop/internal/domain"
)

// Kind enumerates the storefront destinations.
type Kind int

const (
	KindHome Kind = iota
	KindDetail
	KindCart
	KindAbout
)

func (k Kind) String() string {
	switch k {
	case KindHome:
		return "home"
	case KindDetail:
		return "detail"
	case KindCart:
		return "cart"
	case KindAbout:
		return "about"
	default:
		return "unknown"
	}
}

// Route is a destination. ItemID is only meaningful for KindDetail.
type Route struct {
	Kind   Kind
	ItemID int
}

// Home, Cart and About are the parameterless routes.
var (
	Home  = Route{Kind: KindHome}
	Cart  = Route{Kind: KindCart}
	About = Route{Kind: KindAbout}
)

// Detail returns the product route for id.
func Detail(id int) Route { return Route{Kind: KindDetail, ItemID: id} }

// String serialises the route: "home", "detail/3", "cart", "about".
func (r Route) String() string {
	if r.Kind == KindDetail {
		return "detail/" + strconv.Itoa(r.ItemID)
	}
	return r.Kind.String()
}

// Path returns the URL path that renders the route.
func (r Route) Path() string {
	switch r.Kind {
	case KindHome:
		return "/"
	case KindDetail:
		return "/detail/" + strconv.Itoa(r.ItemID)
	default:
		return "/" + r.Kind.String()
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Route) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Route) UnmarshalText(b []byte) error {
	parsed, err := ParseRoute(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRoute is the inverse of Route.String. Unknown or malformed routes fail with domain.ErrNotFound.
func ParseRoute(s string) (Route, error) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	switch s {
	case "home", "":
		return Home, nil
	case "cart":
		return Cart, nil
	case "about":
		return About, nil
	}
	if rest, ok := strings.CutPrefix(s, "detail/"); ok {
		id, err := parseItemID(rest)
		if err != nil {
			return Route{}, fmt.Errorf("%w: route %q", domain.ErrNotFound, s)
		}
		return Detail(id), nil
	}
	return Route{}, fmt.Errorf("%w: route %q", domain.ErrNotFound, s)
}

// RouteFromPath maps a URL path back to its route.
func RouteFromPath(p string) (Route, error) {
	return ParseRoute(p)
}

func parseItemID(raw string) (int, error) {
	if raw == "" || strings.ContainsAny(raw, "+-") {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(raw)
}
