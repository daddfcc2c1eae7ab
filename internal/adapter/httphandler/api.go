package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/niksmo/fakestore/internal/core/domain"
)

// APIHandler serves the JSON storefront API of the request session.
type APIHandler struct{}

func (h APIHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFrom(r.Context())
	categories := sf.Categories()
	respondJSON(w, http.StatusOK, Catalog{
		Loading:    sf.Loading(),
		Categories: categories,
		Count:      sf.CatalogSize(),
	})
}

func (h APIHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFrom(r.Context())
	respondJSON(w, http.StatusOK, Products{
		Loading:  sf.Loading(),
		Filter:   toFilter(sf.Criteria()),
		Products: toProducts(sf.FilteredProducts()),
	})
}

func (h APIHandler) GetFilter(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFrom(r.Context())
	respondJSON(w, http.StatusOK, toFilter(sf.Criteria()))
}

func (h APIHandler) PutFilter(w http.ResponseWriter, r *http.Request) {
	const op = "APIHandler.PutFilter"
	log := slog.With("op", op)

	var req Filter
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sf := storefrontFrom(r.Context())
	if err := sf.SetFilter(req.Category, req.MinPrice, req.MaxPrice); err != nil {
		log.Debug("filter rejected", "err", err)
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toFilter(sf.Criteria()))
}

func (h APIHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFrom(r.Context())
	respondJSON(w, http.StatusOK, toCart(sf.Cart()))
}

func (h APIHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	sf := storefrontFrom(r.Context())
	if err := sf.AddToCart(req.ProductID); err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCart(sf.Cart()))
}

// UpdateQuantity sets the line quantity, quantities below 1 leave the cart as is.
func (h APIHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sf := storefrontFrom(r.Context())
	sf.UpdateQuantity(productID, req.Quantity)
	respondJSON(w, http.StatusOK, toCart(sf.Cart()))
}

func (h APIHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	sf := storefrontFrom(r.Context())
	sf.RemoveFromCart(productID)
	respondJSON(w, http.StatusOK, toCart(sf.Cart()))
}

func (h APIHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFrom(r.Context())
	sf.ClearCart()
	respondJSON(w, http.StatusOK, toCart(sf.Cart()))
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "op", "httphandler.respondJSON", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPrice):
		respondError(w, http.StatusBadRequest, "invalid_price", "price must be empty or a non-negative number")
	case errors.Is(err, domain.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
