package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/http/response"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/service"
)

// subjectHeader is set by the gateway from the validated token.
const subjectHeader = "X-Auth-Subject"

type ProductHandler struct {
	svc service.ProductService
}

func NewProductHandler(svc service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

func (b productRequest) input() service.ProductInput {
	return service.ProductInput{Name: b.Name, Description: b.Description, Price: b.Price}
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body productRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	created, err := h.svc.Create(r.Context(), body.input())
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to create product", nil)
		return
	}

	auditProduct(r, "create", created.ID, "name", created.Name)
	response.JSON(w, r, http.StatusCreated, created)
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListAll(r.Context())
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list products", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, products)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	var body productRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	id, err := h.svc.Update(r.Context(), productID, body.input())
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to update product", nil)
		return
	}

	auditProduct(r, "update", id, "name", strings.TrimSpace(body.Name))
	response.JSON(w, r, http.StatusOK, id)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if err := h.svc.Delete(r.Context(), productID); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to delete product", nil)
		return
	}

	auditProduct(r, "delete", productID)
	response.NoContent(w)
}

// auditProduct records a successful mutation attributed to the subject the
// gateway forwarded. Direct calls to the catalog carry no actor.
func auditProduct(r *http.Request, action, productID string, attrs ...any) {
	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "product." + action,
		ActorUserID: strings.TrimSpace(r.Header.Get(subjectHeader)),
		TargetType:  "product",
		TargetID:    productID,
		Action:      action,
		Outcome:     "success",
		Reason:      "product_" + action + "d",
	}, attrs...)
}
