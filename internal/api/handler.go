package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pharmapos/m/domain"
	"pharmapos/m/internal/pos"
	"pharmapos/m/internal/report"
	"pharmapos/m/internal/store"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxRole   ctxKey = "role"
)

// maxSaleAttempts bounds the retry loop around transient store failures.
// The coordinator itself never retries; replays are safe because a
// failed attempt leaves no partial state and the idempotency key pins
// the committed outcome.
const maxSaleAttempts = 3

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	store       *store.Store
	coordinator *pos.Coordinator
	reports     *report.Aggregator
	secret      string
	logger      *zap.Logger
}

// New constructs a Handler.
func New(st *store.Store, coordinator *pos.Coordinator, reports *report.Aggregator, secret string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: st, coordinator: coordinator, reports: reports, secret: secret, logger: logger}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/medicines", func(r chi.Router) {
			r.Get("/", h.listMedicines)
			r.Post("/", h.createMedicine)
			r.Get("/low-stock", h.lowStockMedicines)
			r.Get("/{id}", h.getMedicine)
			r.Put("/{id}", h.updateMedicine)
			r.Delete("/{id}", h.deactivateMedicine)
		})

		pr.Route("/customers", func(r chi.Router) {
			r.Get("/", h.listCustomers)
			r.Post("/", h.createCustomer)
			r.Get("/{id}", h.getCustomer)
			r.Put("/{id}", h.updateCustomer)
		})

		pr.Route("/purchases", func(r chi.Router) {
			r.Post("/", h.createPurchase)
			r.Get("/", h.listPurchases)
			r.Get("/{id}", h.getPurchase)
		})

		pr.Route("/sales", func(r chi.Router) {
			r.Post("/", h.createSale)
			r.Get("/{id}", h.getSale)
			r.Get("/customer/{customerId}", h.customerSales)
		})

		pr.Route("/admin", func(r chi.Router) {
			r.Get("/users", h.listUsers)
			r.Post("/users/{id}/activate", h.activateUser)
			r.Post("/users/{id}/deactivate", h.deactivateUser)
			r.Get("/reports/sales", h.salesReport)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type authClaims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID int64, role string) (string, error) {
	claims := authClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	role := r.Context().Value(ctxRole)
	if role == nil {
		respondError(w, http.StatusUnauthorized, "missing role")
		return false
	}
	current := role.(string)
	for _, allowedRole := range allowed {
		if current == allowedRole {
			return true
		}
	}
	respondError(w, http.StatusForbidden, "insufficient permissions")
	return false
}

// Auth handlers

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}
	if req.Role == "" {
		req.Role = "staff"
	}
	if req.Role != "staff" && req.Role != "admin" {
		respondError(w, http.StatusBadRequest, "role must be staff or admin")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	user := &domain.User{
		Username: req.Username,
		Email:    strings.ToLower(req.Email),
		Password: string(hashed),
		Role:     req.Role,
	}
	id, err := h.store.CreateUser(r.Context(), user)
	if err != nil {
		respondError(w, http.StatusConflict, "email already exists")
		return
	}
	user.ID = id

	token, err := h.generateToken(id, req.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	user.Password = ""
	user.IsActive = true
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: *user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.IsActive {
		respondError(w, http.StatusUnauthorized, "account is deactivated")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(user.ID, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	user.Password = ""
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: *user})
}

// Medicine handlers

type medicineRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	LockVersion int64           `json:"lock_version"`
}

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.store.ListMedicines(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list medicines")
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	medicine, err := h.store.GetMedicine(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch medicine")
		return
	}
	respondJSON(w, http.StatusOK, medicine)
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Price.IsNegative() || req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "name is required; price and quantity must not be negative")
		return
	}

	medicine := &domain.Medicine{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
		ExpiryDate:  req.ExpiryDate,
		IsActive:    true,
	}
	id, err := h.store.CreateMedicine(r.Context(), medicine)
	if err != nil {
		respondError(w, http.StatusConflict, "medicine name already exists")
		return
	}
	medicine.ID = id
	respondJSON(w, http.StatusCreated, medicine)
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "name is required and price must not be negative")
		return
	}

	medicine := &domain.Medicine{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		ExpiryDate:  req.ExpiryDate,
		LockVersion: req.LockVersion,
	}
	switch err := h.store.UpdateMedicine(r.Context(), medicine); {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "medicine not found")
	case errors.Is(err, store.ErrStaleRecord):
		respondError(w, http.StatusConflict, "medicine was modified concurrently, reload and retry")
	case err != nil:
		respondError(w, http.StatusInternalServerError, "unable to update medicine")
	default:
		respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func (h *Handler) deactivateMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	medicine, err := h.store.GetMedicine(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch medicine")
		return
	}
	switch err := h.store.DeactivateMedicine(r.Context(), id, medicine.LockVersion); {
	case errors.Is(err, store.ErrStaleRecord):
		respondError(w, http.StatusConflict, "medicine was modified concurrently, retry")
	case err != nil:
		respondError(w, http.StatusInternalServerError, "unable to deactivate medicine")
	default:
		respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
	}
}

func (h *Handler) lowStockMedicines(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.ParseInt(r.URL.Query().Get("threshold"), 10, 64)
	if threshold <= 0 {
		threshold = 10
	}
	medicines, err := h.store.LowStockMedicines(r.Context(), threshold)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list low stock medicines")
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

// Customer handlers

type customerRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	IsActive *bool  `json:"is_active,omitempty"`
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.ListCustomers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list customers")
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	customer, err := h.store.GetCustomer(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "customer not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch customer")
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	customer := &domain.Customer{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  req.Address,
		IsActive: true,
	}
	id, err := h.store.CreateCustomer(r.Context(), customer)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create customer")
		return
	}
	customer.ID = id
	respondJSON(w, http.StatusCreated, customer)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	customer := &domain.Customer{
		ID:       id,
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  req.Address,
		IsActive: active,
	}
	switch err := h.store.UpdateCustomer(r.Context(), customer); {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "customer not found")
	case err != nil:
		respondError(w, http.StatusInternalServerError, "unable to update customer")
	default:
		respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

// Purchase handlers

type purchaseRequest struct {
	MedicineID int64           `json:"medicine_id"`
	Quantity   int64           `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Supplier   string          `json:"supplier"`
}

func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MedicineID <= 0 || req.Quantity <= 0 || req.UnitCost.IsNegative() {
		respondError(w, http.StatusBadRequest, "medicine_id, positive quantity and non-negative unit_cost are required")
		return
	}

	userID := r.Context().Value(ctxUserID).(int64)
	var purchase *domain.Purchase
	err := h.withRetry(r.Context(), func() error {
		var err error
		purchase, err = h.coordinator.RecordPurchase(r.Context(), pos.PurchaseRequest{
			MedicineID: req.MedicineID,
			Quantity:   req.Quantity,
			UnitCost:   req.UnitCost,
			Supplier:   req.Supplier,
			UserID:     userID,
		})
		return err
	})
	if err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, purchase)
}

func (h *Handler) getPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid purchase id")
		return
	}
	purchase, err := h.store.GetPurchase(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "purchase not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch purchase")
		return
	}
	respondJSON(w, http.StatusOK, purchase)
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.store.ListPurchases(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list purchases")
		return
	}
	respondJSON(w, http.StatusOK, purchases)
}

// Sale handlers

type saleItemRequest struct {
	MedicineID int64 `json:"medicine_id"`
	Quantity   int64 `json:"quantity"`
}

type saleRequest struct {
	CustomerID     int64             `json:"customer_id"`
	Items          []saleItemRequest `json:"items"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines := make([]pos.SaleLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, pos.SaleLine{MedicineID: item.MedicineID, Quantity: item.Quantity})
	}
	key := req.IdempotencyKey
	if key == "" {
		// Generated keys only protect this handler's own retry loop;
		// clients that want cross-request idempotence must supply one.
		key = uuid.NewString()
	}

	userID := r.Context().Value(ctxUserID).(int64)
	posReq := pos.SaleRequest{
		CustomerID:     req.CustomerID,
		UserID:         userID,
		IdempotencyKey: key,
		Lines:          lines,
	}

	var sale *domain.Sale
	err := h.withRetry(r.Context(), func() error {
		var err error
		sale, err = h.coordinator.CreateSale(r.Context(), posReq)
		return err
	})
	if err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sale)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	sale, err := h.store.GetSale(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "sale not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch sale")
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

func (h *Handler) customerSales(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	sales, err := h.store.ListSalesByCustomer(r.Context(), customerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list sales")
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

// Admin handlers

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *Handler) activateUser(w http.ResponseWriter, r *http.Request) {
	h.setUserActive(w, r, true)
}

func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	h.setUserActive(w, r, false)
}

func (h *Handler) setUserActive(w http.ResponseWriter, r *http.Request, active bool) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	switch err := h.store.SetUserActive(r.Context(), id, active); {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "user not found")
	case err != nil:
		respondError(w, http.StatusInternalServerError, "unable to update user")
	default:
		respondJSON(w, http.StatusOK, map[string]bool{"is_active": active})
	}
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	end := time.Now()
	start := end.AddDate(0, 0, -30)

	if raw := strings.TrimSpace(r.URL.Query().Get("start_date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "start_date must be in YYYY-MM-DD format")
			return
		}
		start = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("end_date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "end_date must be in YYYY-MM-DD format")
			return
		}
		end = parsed
	}

	rep, err := h.reports.SalesBetween(r.Context(), start, end)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to build sales report")
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// withRetry re-invokes fn while it fails transiently, up to
// maxSaleAttempts times with linear backoff.
func (h *Handler) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !store.IsTransient(err) || attempt == maxSaleAttempts {
			return err
		}
		h.logger.Warn("transient store failure, retrying", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
}

// respondCoordinatorError maps the coordinator's error taxonomy onto
// HTTP statuses without losing the identifying detail.
func (h *Handler) respondCoordinatorError(w http.ResponseWriter, err error) {
	var (
		notFound *pos.MedicineNotFoundError
		inactive *pos.MedicineInactiveError
		short    *pos.InsufficientStockError
	)
	switch {
	case errors.Is(err, pos.ErrEmptyCart),
		errors.Is(err, pos.ErrInvalidQuantity),
		errors.Is(err, pos.ErrNoCustomer):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		respondJSON(w, http.StatusConflict, map[string]any{
			"error":       notFound.Error(),
			"medicine_id": notFound.MedicineID,
		})
	case errors.As(err, &inactive):
		respondJSON(w, http.StatusConflict, map[string]any{
			"error":       inactive.Error(),
			"medicine_id": inactive.MedicineID,
		})
	case errors.As(err, &short):
		respondJSON(w, http.StatusConflict, map[string]any{
			"error":       short.Error(),
			"medicine_id": short.MedicineID,
			"requested":   short.Requested,
			"available":   short.Available,
		})
	case store.IsTransient(err):
		respondError(w, http.StatusServiceUnavailable, "store is busy, retry later")
	case errors.Is(err, pos.ErrTotalMismatch):
		h.logger.Error("sale total invariant violated", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	default:
		respondError(w, http.StatusInternalServerError, "unable to process request")
	}
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
