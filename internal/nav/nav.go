package nav

import "strconv"

// Tab is a bottom-bar destination.
type Tab struct {
	Route     Route
	LabelKey  string // i18n key, e.g. "nav.home"
	Icon      string
	PopTarget Route
	Inclusive bool
}

// RenderedTab is a view model for templates.
type RenderedTab struct {
	Href     string
	LabelKey string
	Icon     string
	Active   bool
}

// Crumb represents a breadcrumb entry. If LabelKey is empty, use Label.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Tabs is the bottom bar. Home clears the stack down to a fresh home; the
// other tabs keep home underneath.
var Tabs = []Tab{
	{Route: Home, LabelKey: "nav.home", Icon: "home", PopTarget: Home, Inclusive: true},
	{Route: Cart, LabelKey: "nav.cart", Icon: "cart", PopTarget: Home},
	{Route: About, LabelKey: "nav.about", Icon: "person", PopTarget: Home},
}

// TabFor returns the bottom-bar tab for route.
func TabFor(route Route) (Tab, bool) {
	for _, t := range Tabs {
		if t.Route == route {
			return t, true
		}
	}
	return Tab{}, false
}

// Options returns the navigate options a tab click applies.
func (t Tab) Options() []NavigateOption {
	return []NavigateOption{PopUpTo(t.PopTarget, t.Inclusive), SingleTop()}
}

// Build renders the bottom bar with active state for the current route.
// Detail pages highlight no tab.
func Build(current Route) []RenderedTab {
	items := make([]RenderedTab, 0, len(Tabs))
	for _, t := range Tabs {
		items = append(items, RenderedTab{
			Href:     t.Route.Path() + "?tab=1",
			LabelKey: t.LabelKey,
			Icon:     t.Icon,
			Active:   t.Route == current,
		})
	}
	return items
}

// Breadcrumbs renders the back stack bottom first; the last crumb is the current route.
func Breadcrumbs(stack []Route) []Crumb {
	if len(stack) == 0 {
		stack = []Route{Home}
	}
	crumbs := make([]Crumb, 0, len(stack))
	for i, r := range stack {
		c := Crumb{Href: r.Path(), LabelKey: labelKey(r), Active: i == len(stack)-1}
		if r.Kind == KindDetail {
			c.Label = "#" + strconv.Itoa(r.ItemID)
		}
		crumbs = append(crumbs, c)
	}
	return crumbs
}

func labelKey(r Route) string {
	switch r.Kind {
	case KindHome:
		return "nav.home"
	case KindCart:
		return "nav.cart"
	case KindAbout:
		return "nav.about"
	case KindDetail:
		return "nav.detail"
	}
	return ""
}
