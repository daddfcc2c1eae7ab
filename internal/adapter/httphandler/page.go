package httphandler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/niksmo/fakestore/internal/core/domain"
	"github.com/niksmo/fakestore/internal/core/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templatesFS, "templates/page.html"))

const (
	noticeInvalidPrice     = "invalid_price"
	noticeProductNotFound  = "product_not_found"
	noticeInvalidQuantity  = "invalid_quantity"
	noticeInvalidProductID = "invalid_product_id"
)

var notices = map[string]string{
	noticeInvalidPrice:     "Prices must be empty or non-negative numbers. The previous filter is kept.",
	noticeProductNotFound:  "That product is not in the catalog.",
	noticeInvalidQuantity:  "Quantity must be a whole number.",
	noticeInvalidProductID: "Unknown product.",
}

type (
	pageData struct {
		Notice       string
		Loading      bool
		Categories   []categoryOption
		MinPrice     string
		MaxPrice     string
		Products     []productView
		Cart         cartView
		PanelVisible bool
	}

	categoryOption struct {
		Value    string
		Label    string
		Selected bool
	}

	productView struct {
		ID       int64
		Title    string
		Price    string
		Category string
		Image    string
	}

	cartView struct {
		Lines []cartLineView
		Count int
		Total string
	}

	cartLineView struct {
		ID       int64
		Title    string
		Image    string
		Quantity int
		Subtotal string
	}
)

// PageHandler serves the server-rendered storefront.
//
// Every form posts, mutates the session storefront
// and redirects back to the page.
type PageHandler struct{}

func (h PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	const op = "PageHandler.Index"
	log := slog.With("op", op)

	sf := storefrontFrom(r.Context())
	data := newPageData(sf, notices[r.URL.Query().Get("notice")])

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		log.Error("failed to render page", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		log.Error("failed to write response body", "err", err)
	}
}

func (h PageHandler) PostFilter(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFrom(r.Context())
	err := sf.SetFilter(
		r.PostFormValue("category"),
		r.PostFormValue("min_price"),
		r.PostFormValue("max_price"),
	)
	if errors.Is(err, domain.ErrInvalidPrice) {
		redirectHome(w, r, noticeInvalidPrice)
		return
	}
	redirectHome(w, r, "")
}

func (h PageHandler) PostCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.PostFormValue("product_id"), 10, 64)
	if err != nil {
		redirectHome(w, r, noticeInvalidProductID)
		return
	}

	sf := storefrontFrom(r.Context())
	if err := sf.AddToCart(productID); err != nil {
		redirectHome(w, r, noticeProductNotFound)
		return
	}
	redirectHome(w, r, "")
}

// PostQuantity steps a line by one with op=inc|dec
// or sets it to an absolute quantity.
func (h PageHandler) PostQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := formProductID(w, r)
	if !ok {
		return
	}
	sf := storefrontFrom(r.Context())

	switch r.PostFormValue("op") {
	case "inc":
		sf.ChangeQuantity(productID, 1)
	case "dec":
		sf.ChangeQuantity(productID, -1)
	case "":
		quantity, err := strconv.Atoi(r.PostFormValue("quantity"))
		if err != nil {
			redirectHome(w, r, noticeInvalidQuantity)
			return
		}
		sf.UpdateQuantity(productID, quantity)
	default:
		redirectHome(w, r, noticeInvalidQuantity)
		return
	}
	redirectHome(w, r, "")
}

func (h PageHandler) PostRemove(w http.ResponseWriter, r *http.Request) {
	productID, ok := formProductID(w, r)
	if !ok {
		return
	}
	storefrontFrom(r.Context()).RemoveFromCart(productID)
	redirectHome(w, r, "")
}

func (h PageHandler) PostClear(w http.ResponseWriter, r *http.Request) {
	storefrontFrom(r.Context()).ClearCart()
	redirectHome(w, r, "")
}

// PostPanel sets the cart panel visibility from the "visible" field
// or toggles it when the field is absent.
func (h PageHandler) PostPanel(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFrom(r.Context())

	raw := r.PostFormValue("visible")
	if raw == "" {
		sf.TogglePanel()
		redirectHome(w, r, "")
		return
	}

	visible, err := strconv.ParseBool(raw)
	if err != nil {
		http.Error(w, "invalid visibility", http.StatusBadRequest)
		return
	}
	sf.SetPanelVisible(visible)
	redirectHome(w, r, "")
}

func formProductID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		redirectHome(w, r, noticeInvalidProductID)
		return 0, false
	}
	return productID, true
}

func redirectHome(w http.ResponseWriter, r *http.Request, notice string) {
	target := "/"
	if notice != "" {
		target += "?" + url.Values{"notice": {notice}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func newPageData(sf *service.Storefront, notice string) pageData {
	criteria := sf.Criteria()
	cart := sf.Cart()

	categories := sf.Categories()
	options := make([]categoryOption, len(categories))
	for i, c := range categories {
		options[i] = categoryOption{
			Value:    c,
			Label:    capitalize(c),
			Selected: c == criteria.Category,
		}
	}

	filtered := sf.FilteredProducts()
	products := make([]productView, len(filtered))
	for i, p := range filtered {
		products[i] = productView{
			ID:       p.ID,
			Title:    p.Title,
			Price:    domain.FormatMoney(p.Price),
			Category: p.Category,
			Image:    p.Image,
		}
	}

	lines := cart.Lines()
	lineViews := make([]cartLineView, len(lines))
	for i, l := range lines {
		lineViews[i] = cartLineView{
			ID:       l.ID,
			Title:    l.Title,
			Image:    l.Image,
			Quantity: l.Quantity,
			Subtotal: sf.LineSubtotal(l),
		}
	}

	return pageData{
		Notice:     notice,
		Loading:    sf.Loading(),
		Categories: options,
		MinPrice:   domain.FormatPriceBound(criteria.MinPrice),
		MaxPrice:   domain.FormatPriceBound(criteria.MaxPrice),
		Products:   products,
		Cart: cartView{
			Lines: lineViews,
			Count: cart.ItemsCount(),
			Total: domain.FormatMoney(cart.Total()),
		},
		PanelVisible: sf.PanelVisible(),
	}
}

// capitalize upper-cases the first letter only: "men's clothing" is "Men's clothing".
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
