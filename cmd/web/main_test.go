package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"finitefield.org/kickshop/internal/platform/config"
)

type testClient struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newTestApp(t *testing.T, overrides map[string]string) *app {
	t.Helper()
	env := map[string]string{
		"SHOP_TEMPLATES_DIR":       "../../templates",
		"SHOP_LOCALES_DIR":         "../../locales",
		"SHOP_CONTENT_DIR":         "../../content",
		"SHOP_PUBLIC_DIR":          "../../public",
		"SHOP_SESSION_SIGNING_KEY": "test-signing-key-0123456789",
		"SHOP_RATELIMIT_PER_SEC":   "1000",
		"SHOP_RATELIMIT_BURST":     "1000",
	}
	for k, v := range overrides {
		env[k] = v
	}
	cfg, err := config.Load(context.Background(), config.WithEnvMap(env), config.WithoutSystemEnv(), config.WithEnvFile(""))
	require.NoError(t, err)
	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	return a
}

func newTestClient(t *testing.T, overrides map[string]string) *testClient {
	t.Helper()
	a := newTestApp(t, overrides)
	srv := httptest.NewServer(a.routes())
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testClient{t: t, srv: srv, client: client}
}

func (c *testClient) do(req *http.Request) *http.Response {
	c.t.Helper()
	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (c *testClient) get(path string, header ...string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.srv.URL+path, nil)
	require.NoError(c.t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return c.do(req)
}

func (c *testClient) page(path string) (*goquery.Document, int) {
	c.t.Helper()
	resp := c.get(path)
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(c.t, err)
	return doc, resp.StatusCode
}

func (c *testClient) csrf() string {
	c.t.Helper()
	u, err := url.Parse(c.srv.URL)
	require.NoError(c.t, err)
	for _, ck := range c.client.Jar.Cookies(u) {
		if ck.Name == "csrf_token" {
			return ck.Value
		}
	}
	// first contact issues the session and token
	c.get("/healthz")
	c.get("/cart/table")
	for _, ck := range c.client.Jar.Cookies(u) {
		if ck.Name == "csrf_token" {
			return ck.Value
		}
	}
	c.t.Fatal("csrf cookie not issued")
	return ""
}

func (c *testClient) postForm(path string, form url.Values, header ...string) *http.Response {
	c.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", c.csrf())
	req, err := http.NewRequest(http.MethodPost, c.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return c.do(req)
}

func (c *testClient) api(method, path string, body any, out any) int {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	token := ""
	if method != http.MethodGet {
		token = c.csrf()
	}
	req, err := http.NewRequest(method, c.srv.URL+apiPrefix+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-CSRF-Token", token)
	}
	resp := c.do(req)
	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *testClient) apiWithKey(path, key string, out any) (int, string) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.srv.URL+apiPrefix+path, strings.NewReader(`{}`))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", c.csrf())
	req.Header.Set("Idempotency-Key", key)
	resp := c.do(req)
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode, resp.Header.Get("X-Idempotent-Replay")
}

func (c *testClient) nav() navState {
	c.t.Helper()
	var out navState
	require.Equal(c.t, http.StatusOK, c.api(http.MethodGet, "/nav", nil, &out))
	return out
}

type navState struct {
	Current   string   `json:"current"`
	BackStack []string `json:"back_stack"`
	CanGoUp   bool     `json:"can_go_up"`
	Popped    *bool    `json:"popped"`
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	resp := c.get("/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
}

func TestHomeRendersBothSections(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	doc, status := c.page("/")
	require.Equal(t, http.StatusOK, status)

	popular := doc.Find(`[data-section="popular"]`)
	require.Equal(t, 1, popular.Length())
	require.Equal(t, "Produk Popular", strings.TrimSpace(popular.Find(".section-heading").Text()))
	require.Equal(t, 15, popular.Find(".product-card").Length())
	first := popular.Find(".product-card").First()
	require.Equal(t, "/detail/0", first.AttrOr("href", ""))
	require.Equal(t, "Produk Popular 1", strings.TrimSpace(first.Find(".product-title").Text()))
	require.Equal(t, "Rp 50,000", strings.TrimSpace(first.Find(".product-price").Text()))
	require.Equal(t, "/assets/img/adidas1.svg", first.Find("img").AttrOr("src", ""))

	recommended := doc.Find(`[data-section="recommended"] .product-card`)
	require.Equal(t, 15, recommended.Length())
	require.Equal(t, "/detail/15", recommended.First().AttrOr("href", ""))
	require.Equal(t, "Rp 75,000", strings.TrimSpace(recommended.First().Find(".product-price").Text()))
	require.Equal(t, "Rp 1,125,000", strings.TrimSpace(recommended.Last().Find(".product-price").Text()))

	active := doc.Find(".bottom-nav-item.active")
	require.Equal(t, 1, active.Length())
	require.Equal(t, "/?tab=1", active.AttrOr("href", ""))
	require.Equal(t, 0, doc.Find(".topbar-back").Length())
}

func TestDetailRendersItem(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	c.get("/")
	doc, status := c.page("/detail/3")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Produk Popular 4", strings.TrimSpace(doc.Find(".detail-title").Text()))
	require.Equal(t, "Rp 200,000", strings.TrimSpace(doc.Find(".detail-price").Text()))
	require.Contains(t, doc.Find(".detail-body").Text(), "sepatu")
	require.Equal(t, "3", doc.Find(`.detail-actions input[name="item_id"]`).AttrOr("value", ""))
	require.Equal(t, 1, doc.Find(`.detail-actions input[name="csrf_token"]`).Length())
	require.Equal(t, "Tambah ke Keranjang", strings.TrimSpace(doc.Find(".btn-add").Text()))
	require.Equal(t, "Beli Sekarang", strings.TrimSpace(doc.Find(".btn-buy").Text()))
	require.Equal(t, 1, doc.Find(".topbar-back").Length())
	require.Equal(t, 0, doc.Find(".bottom-nav-item.active").Length())

	require.Equal(t, "product", doc.Find(`meta[property="og:type"]`).AttrOr("content", ""))
	require.True(t, strings.HasSuffix(doc.Find(`link[rel="canonical"]`).AttrOr("href", ""), "/detail/3"))
	var product map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc.Find(`script[type="application/ld+json"]`).First().Text()), &product))
	require.Equal(t, "Product", product["@type"])
	require.Equal(t, "200000", product["offers"].(map[string]any)["price"])
}

func TestDetailUnknownItemFallsBack(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	c.get("/")
	for _, path := range []string{"/detail/999", "/detail/abc"} {
		doc, status := c.page(path)
		require.Equal(t, http.StatusNotFound, status, path)
		require.Equal(t, "Produk tidak tersedia", strings.TrimSpace(doc.Find(".not-found-message").Text()), path)
	}
	state := c.nav()
	require.Equal(t, "home", state.Current)
	require.Equal(t, []string{"home"}, state.BackStack)
}

func TestCartShowsSeedAndTotal(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	doc, status := c.page("/cart")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 3, doc.Find(".cart-line").Length())
	require.Equal(t, "Sneakers 1", strings.TrimSpace(doc.Find(".cart-line-title").First().Text()))
	require.Equal(t, "Rp 500,000", strings.TrimSpace(doc.Find(".cart-line-price").First().Text()))
	require.Equal(t, "Rp 1,800,000", strings.TrimSpace(doc.Find(".cart-total").Text()))
	require.Equal(t, 1, doc.Find(".cart-checkout").Length())
}

func TestCartEmptyPlaceholder(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, map[string]string{"SHOP_CART_SEED": "false"})
	doc, status := c.page("/cart")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Keranjang Anda Kosong", strings.TrimSpace(doc.Find(".cart-empty").Text()))
	require.Equal(t, 0, doc.Find(".cart-total").Length())
	require.Equal(t, 0, doc.Find(".cart-checkout").Length())
}

func TestAddToCartStaysOnDetail(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	c.get("/")
	c.get("/detail/3")

	resp := c.postForm("/cart/items", url.Values{"item_id": {"3"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/detail/3?added=1", resp.Header.Get("Location"))

	doc, status := c.page("/detail/3?added=1")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Produk ditambahkan ke keranjang", strings.TrimSpace(doc.Find(".flash").Text()))
	require.Equal(t, "4", strings.TrimSpace(doc.Find("#cart-count").Text()))
	require.Equal(t, []string{"home", "detail/3"}, c.nav().BackStack)

	cart, _ := c.page("/cart")
	require.Equal(t, 4, cart.Find(".cart-line").Length())
	require.Equal(t, "Rp 2,000,000", strings.TrimSpace(cart.Find(".cart-total").Text()))
}

func TestAddUnknownItemIsNotFound(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	resp := c.postForm("/cart/items", url.Values{"item_id": {"999"}})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBuyNowGoesToCartKeepingHome(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	c.get("/")
	c.get("/detail/2")
	c.get("/detail/5")

	resp := c.postForm("/cart/items", url.Values{"item_id": {"5"}, "buy": {"1"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/cart", resp.Header.Get("Location"))

	doc, _ := c.page("/cart")
	require.Equal(t, 4, doc.Find(".cart-line").Length())

	state := c.nav()
	require.Equal(t, "cart", state.Current)
	require.Equal(t, []string{"home", "cart"}, state.BackStack)
}

func TestBackPopsStack(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	c.get("/")
	c.get("/detail/2")
	c.get("/detail/4")

	resp := c.get("/back")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/detail/2", resp.Header.Get("Location"))
	// following the redirect must not push a duplicate
	c.get("/detail/2")
	require.Equal(t, []string{"home", "detail/2"}, c.nav().BackStack)

	resp = c.get("/back")
	require.Equal(t, "/", resp.Header.Get("Location"))
	resp = c.get("/back")
	require.Equal(t, "/", resp.Header.Get("Location"))
	require.Equal(t, []string{"home"}, c.nav().BackStack)
}

func TestBottomBarPops(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	c.get("/")
	c.get("/detail/1")
	c.get("/detail/7")

	c.get("/cart?tab=1")
	require.Equal(t, []string{"home", "cart"}, c.nav().BackStack)

	c.get("/about?tab=1")
	require.Equal(t, []string{"home", "about"}, c.nav().BackStack)

	c.get("/?tab=1")
	require.Equal(t, []string{"home"}, c.nav().BackStack)
}

func TestHomeTabResetsAfterRepeatedHome(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	c.get("/cart")
	c.get("/")
	require.Equal(t, []string{"home", "cart", "home"}, c.nav().BackStack)

	c.get("/?tab=1")
	require.Equal(t, []string{"home"}, c.nav().BackStack)
}

func TestRemoveLineViaHTMX(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	resp := c.postForm("/cart/items/101/remove", url.Values{"all": {"1"}}, "HX-Request", "true")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("HX-Trigger"), `"count":2`)

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	require.Equal(t, 2, doc.Find(".cart-line").Length())
	require.Equal(t, 0, doc.Find(`.cart-line[data-item-id="101"]`).Length())
	require.Equal(t, "Rp 1,300,000", strings.TrimSpace(doc.Find(".cart-total").Text()))
}

func TestRemoveWithoutHTMXRedirects(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	resp := c.postForm("/cart/items/102/remove", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/cart", resp.Header.Get("Location"))

	doc, _ := c.page("/cart")
	require.Equal(t, 2, doc.Find(".cart-line").Length())
}

func TestCheckoutClearsCart(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	resp := c.postForm("/cart/checkout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(strings.TrimSpace(doc.Find(".order-id code").Text()), "ord_"))
	require.Equal(t, "Rp 1,800,000", strings.TrimSpace(doc.Find(".order-total strong").Text()))
	require.Equal(t, 3, doc.Find(".order-lines li").Length())

	cart, _ := c.page("/cart")
	require.Equal(t, 1, cart.Find(".cart-empty").Length())

	resp = c.postForm("/cart/checkout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/cart", resp.Header.Get("Location"))
}

func TestPostWithoutCSRFIsRejected(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	c.get("/")
	req, err := http.NewRequest(http.MethodPost, c.srv.URL+"/cart/items", strings.NewReader("item_id=1"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := c.do(req)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRateLimitedMutations(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, map[string]string{"SHOP_RATELIMIT_PER_SEC": "0.001", "SHOP_RATELIMIT_BURST": "1"})
	c.get("/")
	resp := c.postForm("/cart/items", url.Values{"item_id": {"1"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp = c.postForm("/cart/items", url.Values{"item_id": {"1"}})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestAboutPageLocales(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	doc, status := c.page("/about")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Muhammad Rayhan Hadinugraha", strings.TrimSpace(doc.Find(".profile-name").Text()))
	require.Contains(t, doc.Find("title").Text(), "Tentang Saya")
	require.Equal(t, "/assets/img/profile.svg", doc.Find(".profile-photo").AttrOr("src", ""))

	doc, _ = c.page("/about?hl=en")
	require.Contains(t, doc.Find("title").Text(), "About Me")
	require.Equal(t, "Home", strings.TrimSpace(doc.Find(".bottom-nav-item").First().Text()))
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	doc, status := c.page("/nowhere")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "Halaman tidak ditemukan", strings.TrimSpace(doc.Find(".not-found-message").Text()))
}

func TestStaticAssets(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	resp := c.get("/assets/css/app.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = c.get("/assets/img/sneakers4.svg")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsExposed(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	c.get("/")
	c.get("/detail/999")
	resp := c.get("/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "kickshop_")
}

func TestCartRemovalMetricsMatchAcrossSurfaces(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	require.Equal(t, http.StatusOK, c.api(http.MethodDelete, "/cart/items/101?all=1", nil, nil))
	resp := c.postForm("/cart/items/102/remove", url.Values{"all": {"1"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = c.get("/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `kickshop_cart_mutations_total{op="remove_line"} 2`)
	require.NotContains(t, string(body), `kickshop_cart_mutations_total{op="remove"}`)
}

func TestAPICatalog(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	var out struct {
		Sections []sectionJSON `json:"sections"`
	}
	require.Equal(t, http.StatusOK, c.api(http.MethodGet, "/catalog", nil, &out))
	require.Len(t, out.Sections, 2)
	require.Equal(t, "popular", out.Sections[0].Key)
	require.Len(t, out.Sections[0].Items, 15)
	require.Equal(t, int64(50000), out.Sections[0].Items[0].Price.Amount)
	require.Equal(t, "IDR", out.Sections[0].Items[0].Price.Currency)
	require.Equal(t, "Rp 50,000", out.Sections[0].Items[0].Price.Display)

	var item itemJSON
	require.Equal(t, http.StatusOK, c.api(http.MethodGet, "/catalog/items/16", nil, &item))
	require.Equal(t, "Produk Rekomendasi 2", item.Title)
	require.NotEmpty(t, item.Detail)

	var apiErr map[string]any
	require.Equal(t, http.StatusNotFound, c.api(http.MethodGet, "/catalog/items/999", nil, &apiErr))
	require.NotEmpty(t, apiErr["error"])
	require.EqualValues(t, http.StatusNotFound, apiErr["status"])
}

func TestAPICartLifecycle(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)

	var cart cartJSON
	require.Equal(t, http.StatusOK, c.api(http.MethodGet, "/cart", nil, &cart))
	require.Equal(t, 3, cart.Count)
	require.Equal(t, int64(1_800_000), cart.Total.Amount)

	require.Equal(t, http.StatusCreated, c.api(http.MethodPost, "/cart/items", map[string]int{"item_id": 3}, &cart))
	require.Equal(t, 4, cart.Count)
	require.Equal(t, 3, cart.Lines[3].Item.ID)

	require.Equal(t, http.StatusCreated, c.api(http.MethodPost, "/cart/items", map[string]int{"item_id": 3}, &cart))
	require.Len(t, cart.Lines, 4)
	require.Equal(t, 2, cart.Lines[3].Quantity)

	require.Equal(t, http.StatusOK, c.api(http.MethodDelete, "/cart/items/3", nil, &cart))
	require.NotNil(t, cart.Removed)
	require.True(t, *cart.Removed)
	require.Equal(t, 1, cart.Lines[3].Quantity)

	require.Equal(t, http.StatusOK, c.api(http.MethodDelete, "/cart/items/3?all=1", nil, &cart))
	require.Len(t, cart.Lines, 3)

	cart = cartJSON{}
	require.Equal(t, http.StatusOK, c.api(http.MethodDelete, "/cart/items/3", nil, &cart))
	require.False(t, *cart.Removed)

	require.Equal(t, http.StatusBadRequest, c.api(http.MethodPost, "/cart/items", map[string]string{"sku": "x"}, nil))
	require.Equal(t, http.StatusNotFound, c.api(http.MethodPost, "/cart/items", map[string]int{"item_id": 999}, nil))

	var order orderJSON
	require.Equal(t, http.StatusCreated, c.api(http.MethodPost, "/cart/checkout", nil, &order))
	require.True(t, strings.HasPrefix(order.ID, "ord_"))
	require.Equal(t, 3, order.Units)
	require.Equal(t, http.StatusBadRequest, c.api(http.MethodPost, "/cart/checkout", nil, nil))
}

func TestAPINavigation(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)

	var state navState
	require.Equal(t, http.StatusOK, c.api(http.MethodPost, "/nav/navigate", map[string]any{"route": "detail/3"}, &state))
	require.Equal(t, "detail/3", state.Current)
	require.True(t, state.CanGoUp)

	require.Equal(t, http.StatusOK, c.api(http.MethodPost, "/nav/navigate", map[string]any{"route": "detail/3", "singleTop": true}, &state))
	require.Equal(t, []string{"home", "detail/3"}, state.BackStack)

	require.Equal(t, http.StatusNotFound, c.api(http.MethodPost, "/nav/navigate", map[string]any{"route": "detail/999"}, nil))
	require.Equal(t, []string{"home", "detail/3"}, c.nav().BackStack)

	require.Equal(t, http.StatusOK, c.api(http.MethodPost, "/nav/navigate", map[string]any{"route": "cart", "popUpTo": "home"}, &state))
	require.Equal(t, []string{"home", "cart"}, state.BackStack)

	require.Equal(t, http.StatusOK, c.api(http.MethodPost, "/nav/navigate", map[string]any{"route": "home", "popUpTo": "home", "inclusive": true}, &state))
	require.Equal(t, []string{"home"}, state.BackStack)

	require.Equal(t, http.StatusOK, c.api(http.MethodPost, "/nav/up", nil, &state))
	require.NotNil(t, state.Popped)
	require.False(t, *state.Popped)
	require.Equal(t, "home", state.Current)
}

func TestAPIUnknownRouteIsJSON(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)
	var apiErr map[string]any
	require.Equal(t, http.StatusNotFound, c.api(http.MethodGet, "/nope", nil, &apiErr))
	require.Equal(t, "route_not_found", apiErr["error"])
}

func TestCatalogCommandPrintsTable(t *testing.T) {
	t.Parallel()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"catalog", "--file", ""})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "Produk Popular 1")
	require.Contains(t, out.String(), "Rp 1,125,000")

	out.Reset()
	cmd = rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"catalog", "--file", "", "-o", "json"})
	require.NoError(t, cmd.Execute())
	var decoded struct {
		Sections []sectionJSON `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded.Sections, 2)
}

func TestAPICheckoutIsIdempotent(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil)

	var first, second orderJSON
	status, replay := c.apiWithKey("/cart/checkout", "order-1", &first)
	require.Equal(t, http.StatusCreated, status)
	require.Empty(t, replay)

	status, replay = c.apiWithKey("/cart/checkout", "order-1", &second)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "true", replay)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Total, second.Total)
}
