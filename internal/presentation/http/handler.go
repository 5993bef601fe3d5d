package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	appCart "github.com/mgallardo/gamestore/internal/application/cart"
	appCatalog "github.com/mgallardo/gamestore/internal/application/catalog"
	appCheckout "github.com/mgallardo/gamestore/internal/application/checkout"
	appPurchase "github.com/mgallardo/gamestore/internal/application/purchase"
	appSettlement "github.com/mgallardo/gamestore/internal/application/settlement"
	domcart "github.com/mgallardo/gamestore/internal/domain/cart"
	domcatalog "github.com/mgallardo/gamestore/internal/domain/catalog"
	dompayment "github.com/mgallardo/gamestore/internal/domain/payment"
	dompurchase "github.com/mgallardo/gamestore/internal/domain/purchase"
	domtransaction "github.com/mgallardo/gamestore/internal/domain/transaction"
	"github.com/mgallardo/gamestore/internal/observability"
)

const (
	componentHTTPHandler = "http_server"
	headerUserID         = "X-User-ID"
	tokenQueryParam      = "token_ws"
	abortTokenQueryParam = "TBK_TOKEN"
	flagQueryParam       = "FLAG"
)

type Handler struct {
	catalog    *appCatalog.Service
	cart       *appCart.Service
	checkout   *appCheckout.Service
	settlement *appSettlement.Service
	purchases  *appPurchase.Service
	validate   *validator.Validate
	log        observability.Logger
	tel        observability.Observability
}

func NewHandler(
	catalogSvc *appCatalog.Service,
	cartSvc *appCart.Service,
	checkoutSvc *appCheckout.Service,
	settlementSvc *appSettlement.Service,
	purchaseSvc *appPurchase.Service,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		catalog:    catalogSvc,
		cart:       cartSvc,
		checkout:   checkoutSvc,
		settlement: settlementSvc,
		purchases:  purchaseSvc,
		validate:   validator.New(),
		log:        tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:        tel,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(ObservabilityMiddleware(h.log, h.tel.Metrics()))

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.handleListProducts)
		r.Get("/products/{productID}", h.handleGetProduct)
		r.Put("/products/{productID}/stock", h.handleSetStock)

		r.Group(func(r chi.Router) {
			r.Use(h.requireUser)

			r.Get("/cart", h.handleViewCart)
			r.Delete("/cart", h.handleClearCart)
			r.Post("/cart/items", h.handleAddItem)
			r.Put("/cart/items/{productID}", h.handleUpdateQuantity)
			r.Delete("/cart/items/{productID}", h.handleRemoveItem)
			r.Post("/cart/fast", h.handleSetFastItem)

			r.Post("/payment/create", h.handleCreatePayment)
			r.Get("/purchases", h.handleListPurchases)
			r.Get("/purchases/{purchaseID}", h.handleGetPurchase)
		})

		// The gateway redirects the payer's browser here; there is no
		// session header to require. Both verbs arrive in the wild.
		r.Get("/payment/return", h.handlePaymentReturn)
		r.Post("/payment/return", h.handlePaymentReturn)
		r.Get("/payment/status", h.handlePaymentStatus)
	})

	return r
}

// requireUser resolves the caller from the X-User-ID header. Session
// verification lives at the edge proxy; by the time a request reaches
// this service the header is trusted.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get(headerUserID)
		if uid == "" {
			writeError(w, http.StatusUnauthorized, errors.New("missing "+headerUserID+" header"))
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithUser(r.Context(), uid)))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type productResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	Photo       string `json:"photo"`
}

func toProductResponse(p *domcatalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Photo:       p.Photo,
	}
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

type setStockRequest struct {
	Stock int `json:"stock" validate:"gte=0"`
}

func (h *Handler) handleSetStock(w http.ResponseWriter, r *http.Request) {
	var req setStockRequest
	if err := h.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.catalog.SetStock(r.Context(), chi.URLParam(r, "productID"), req.Stock); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cartItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
	Photo     string `json:"photo"`
}

type cartResponse struct {
	Kind  string             `json:"kind"`
	Items []cartItemResponse `json:"items"`
	Total int64              `json:"total"`
}

func toCartResponse(c *domcart.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal,
			Photo:     it.Photo,
		})
	}
	return cartResponse{Kind: string(c.Kind), Items: items, Total: c.Total()}
}

func cartKindFromQuery(r *http.Request) domcart.Kind {
	if kind, ok := domcart.ParseKind(r.URL.Query().Get("kind")); ok {
		return kind
	}
	return domcart.KindShop
}

func (h *Handler) handleViewCart(w http.ResponseWriter, r *http.Request) {
	crt, err := h.cart.View(r.Context(), userFromContext(r.Context()), cartKindFromQuery(r))
	if errors.Is(err, domcart.ErrNotFound) {
		writeJSON(w, http.StatusOK, cartResponse{
			Kind:  string(cartKindFromQuery(r)),
			Items: []cartItemResponse{},
		})
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(crt))
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context(), userFromContext(r.Context()), cartKindFromQuery(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := h.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	crt, err := h.cart.AddItem(r.Context(), userFromContext(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(crt))
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

func (h *Handler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := h.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	crt, err := h.cart.UpdateQuantity(r.Context(), userFromContext(r.Context()), chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(crt))
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	crt, err := h.cart.RemoveItem(r.Context(), userFromContext(r.Context()), chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(crt))
}

func (h *Handler) handleSetFastItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := h.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	crt, err := h.cart.SetFastItem(r.Context(), userFromContext(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(crt))
}

type createPaymentRequest struct {
	Kind string `json:"kind" validate:"required,oneof=SHOP FAST"`
}

type createPaymentResponse struct {
	Token    string `json:"token"`
	BuyOrder string `json:"buy_order"`
	Amount   int64  `json:"amount"`
	URL      string `json:"url"`
}

func (h *Handler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := h.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	kind, _ := domcart.ParseKind(req.Kind)

	result, err := h.checkout.Execute(r.Context(), appCheckout.InitiateInput{
		UserID: userFromContext(r.Context()),
		Kind:   kind,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createPaymentResponse{
		Token:    result.Token,
		BuyOrder: result.BuyOrder,
		Amount:   result.Amount,
		URL:      result.RedirectURL,
	})
}

type purchaseItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
	Photo     string `json:"photo"`
}

type purchaseResponse struct {
	ID            string                 `json:"id"`
	TransactionID string                 `json:"transaction_id"`
	BuyOrder      string                 `json:"buy_order"`
	Total         int64                  `json:"total"`
	Date          time.Time              `json:"date"`
	PaymentType   string                 `json:"payment_type"`
	Items         []purchaseItemResponse `json:"items"`
}

func toPurchaseResponse(p *dompurchase.Purchase) purchaseResponse {
	items := make([]purchaseItemResponse, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, purchaseItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal,
			Photo:     it.Photo,
		})
	}
	return purchaseResponse{
		ID:            p.ID,
		TransactionID: p.TransactionID,
		BuyOrder:      p.BuyOrder,
		Total:         p.Total,
		Date:          p.Date,
		PaymentType:   p.PaymentType,
		Items:         items,
	}
}

type paymentReturnResponse struct {
	Status   string            `json:"status"`
	Replayed bool              `json:"replayed"`
	Warning  string            `json:"warning,omitempty"`
	Purchase *purchaseResponse `json:"purchase,omitempty"`
}

// handlePaymentReturn is where the suspended checkout resumes. The
// browser arrives carrying only token_ws and FLAG; everything else is
// reconstructed from the recorded session.
func (h *Handler) handlePaymentReturn(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get(tokenQueryParam)
	if token == "" {
		// Some abort paths POST the token as a form field instead.
		token = r.FormValue(tokenQueryParam)
	}
	if token == "" {
		if abortToken := firstNonEmpty(r.URL.Query().Get(abortTokenQueryParam), r.FormValue(abortTokenQueryParam)); abortToken != "" {
			// The payer backed out at the gateway; nothing to settle.
			writeJSON(w, http.StatusOK, paymentReturnResponse{Status: "ABORTED"})
			return
		}
	}

	result, err := h.settlement.Confirm(r.Context(), appSettlement.ConfirmInput{
		Token: token,
		Flag:  r.URL.Query().Get(flagQueryParam),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := paymentReturnResponse{
		Status:   result.Status,
		Replayed: result.Replayed,
	}
	if result.InventoryWarning != nil {
		resp.Warning = result.InventoryWarning.Error()
	}
	if result.Purchase != nil {
		pr := toPurchaseResponse(result.Purchase)
		resp.Purchase = &pr
	}
	writeJSON(w, http.StatusOK, resp)
}

type paymentStatusResponse struct {
	Status   string `json:"status"`
	BuyOrder string `json:"buy_order"`
	Amount   int64  `json:"amount"`
}

func (h *Handler) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	res, err := h.settlement.QueryStatus(r.Context(), r.URL.Query().Get(tokenQueryParam))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentStatusResponse{
		Status:   res.Status,
		BuyOrder: res.BuyOrder,
		Amount:   res.Amount,
	})
}

func (h *Handler) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.purchases.History(r.Context(), userFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, toPurchaseResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := h.purchases.Get(r.Context(), chi.URLParam(r, "purchaseID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if p.UserID != userFromContext(r.Context()) {
		writeError(w, http.StatusNotFound, dompurchase.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toPurchaseResponse(p))
}

func (h *Handler) decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domcatalog.ErrNotFound),
		errors.Is(err, domcart.ErrNotFound),
		errors.Is(err, domcart.ErrItemNotFound),
		errors.Is(err, dompurchase.ErrNotFound),
		errors.Is(err, domtransaction.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domcart.ErrInvalidQuantity),
		errors.Is(err, domcart.ErrQuantityExceedsStock),
		errors.Is(err, domcatalog.ErrInvalidStock),
		errors.Is(err, appCheckout.ErrEmptyCart),
		errors.Is(err, appSettlement.ErrMissingToken),
		errors.Is(err, dompayment.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, appSettlement.ErrInFlight),
		errors.Is(err, appSettlement.ErrCartResolution):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, dompayment.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

type userKey struct{}

func contextWithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

func userFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(userKey{}).(string)
	return uid
}
