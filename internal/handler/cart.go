package handler

import (
	"errors"
	"net/http"
	"strconv"

	"fakestore-offline/internal/model"
	"fakestore-offline/internal/service"
	"fakestore-offline/pkg/apierror"
	"fakestore-offline/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// CartHandler exposes the cart store.
type CartHandler struct {
	cart *service.CartStore
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(cart *service.CartStore) *CartHandler {
	return &CartHandler{cart: cart}
}

// CartResponse is the cart state plus derived totals. Persisted is false when
// the mutation applied in memory but could not be written durably.
type CartResponse struct {
	Items     []model.CartItem `json:"items"`
	Version   int64            `json:"version"`
	ItemCount int              `json:"item_count"`
	Total     decimal.Decimal  `json:"total"`
	Persisted bool             `json:"persisted"`
}

func cartResponse(state model.CartState, persisted bool) CartResponse {
	totals := state.Totals()
	items := state.Items
	if items == nil {
		items = []model.CartItem{}
	}
	return CartResponse{
		Items:     items,
		Version:   state.Version,
		ItemCount: totals.ItemCount,
		Total:     totals.Total,
		Persisted: persisted,
	}
}

// respond writes the state. Persistence failures still answer 200.
func (h *CartHandler) respond(w http.ResponseWriter, state model.CartState, err error) {
	if err != nil {
		if !errors.Is(err, model.ErrPersistence) {
			response.Error(w, err)
			return
		}
		log.WithField("component", "CartHandler").Warnf("cart not persisted: %v", err)
		response.OK(w, cartResponse(state, false))
		return
	}
	response.OK(w, cartResponse(state, true))
}

// Get handles GET /api/v1/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.OK(w, cartResponse(h.cart.State(), true))
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var p model.ProductSnapshot
	if err := decodeJSON(r, &p, false); err != nil {
		response.Error(w, err)
		return
	}

	var details []apierror.FieldError
	if p.ID <= 0 {
		details = append(details, apierror.FieldError{Field: "id", Message: "must be a positive integer"})
	}
	if p.Price.IsNegative() {
		details = append(details, apierror.FieldError{Field: "price", Message: "must not be negative"})
	}
	if len(details) > 0 {
		response.Error(w, apierror.ValidationError("invalid product", details...))
		return
	}

	state, err := h.cart.AddItem(r.Context(), p)
	h.respond(w, state, err)
}

// UpdateQuantityRequest is the body of PUT /api/v1/cart/items/{id}.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// UpdateQuantity handles PUT /api/v1/cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.Error(w, err)
		return
	}
	if req.Quantity == nil {
		response.Error(w, apierror.ValidationError("quantity is required",
			apierror.FieldError{Field: "quantity", Message: "required"}))
		return
	}

	state, err := h.cart.UpdateQuantity(r.Context(), id, *req.Quantity)
	h.respond(w, state, err)
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	state, err := h.cart.RemoveItem(r.Context(), id)
	h.respond(w, state, err)
}

// Clear handles DELETE /api/v1/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	state, err := h.cart.ClearCart(r.Context())
	h.respond(w, state, err)
}

// Refresh handles POST /api/v1/cart/refresh. It re-reads the durable
// snapshot written by other instances.
func (h *CartHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	state, err := h.cart.Rehydrate(r.Context())
	h.respond(w, state, err)
}

func productID(w http.ResponseWriter, r *http.Request) (model.ProductID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, apierror.BadRequest("id must be a positive integer"))
		return 0, false
	}
	return model.ProductID(id), true
}
