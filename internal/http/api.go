package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"digital-wallet/internal/auth"
	"digital-wallet/internal/domain"
	"digital-wallet/internal/repository"
	"digital-wallet/internal/service"
	"digital-wallet/internal/storage"
)

const contextCustomerID = "customerID"

// Handler wires HTTP routes to domain services.
type Handler struct {
	customers service.CustomerService
	auth      service.AuthService
	tokens    *auth.TokenIssuer
	snapshots storage.Service
	bucket    string
	keyPrefix string
}

func NewHandler(
	customers service.CustomerService,
	authSvc service.AuthService,
	tokens *auth.TokenIssuer,
	snapshots storage.Service,
	bucket, keyPrefix string,
) *Handler {
	return &Handler{
		customers: customers,
		auth:      authSvc,
		tokens:    tokens,
		snapshots: snapshots,
		bucket:    bucket,
		keyPrefix: keyPrefix,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/customers", h.createCustomer)
		api.POST("/auth/login", h.login)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		authorized := api.Group("")
		authorized.Use(h.requireAuth())
		{
			authorized.GET("/customers", h.listCustomers)
			authorized.GET("/customers/:id", h.getCustomer)
			authorized.PATCH("/customers/:id", h.updateCustomer)
			authorized.GET("/customers/:id/balance", h.getBalance)
			authorized.GET("/snapshots", h.listSnapshots)
			authorized.GET("/snapshots/url", h.getSnapshotURL)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requireAuth validates the bearer token and records its subject on the
// request context.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		customerID, err := h.tokens.Validate(strings.TrimSpace(header[len(prefix):]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(contextCustomerID, customerID)
		c.Next()
	}
}

type createCustomerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer, err := h.customers.Create(c.Request.Context(), service.CreateCustomer{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customerToResponse(*customer))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer, token, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"customer": customerToResponse(*customer),
		"token":    token,
	})
}

func (h *Handler) getCustomer(c *gin.Context) {
	customer, err := h.customers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customerToResponse(*customer))
}

func (h *Handler) listCustomers(c *gin.Context) {
	filter := repository.ListFilter{
		Name:  strings.TrimSpace(c.Query("name")),
		Email: strings.TrimSpace(c.Query("email")),
	}
	if raw := c.Query("role"); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Role = role
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "30"))

	customers, err := h.customers.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]CustomerResponse, len(customers))
	for i := range customers {
		resp[i] = customerToResponse(customers[i])
	}
	c.JSON(http.StatusOK, resp)
}

type updateCustomerRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

func (h *Handler) updateCustomer(c *gin.Context) {
	id := c.Param("id")
	if !h.callerMayAccess(c, id) {
		return
	}

	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer, err := h.customers.Update(c.Request.Context(), id, service.UpdateCustomer{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customerToResponse(*customer))
}

func (h *Handler) getBalance(c *gin.Context) {
	id := c.Param("id")
	if !h.callerMayAccess(c, id) {
		return
	}

	customer, err := h.customers.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customerToBalanceResponse(*customer))
}

func (h *Handler) listSnapshots(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	if h.snapshots == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot storage is not configured"})
		return
	}

	objects, err := h.snapshots.ListObjects(c.Request.Context(), h.bucket, h.keyPrefix)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]SnapshotResponse, len(objects))
	for i, obj := range objects {
		resp[i] = SnapshotResponse{Key: obj.Key, Size: obj.Size}
		if obj.LastModified != nil && !obj.LastModified.IsZero() {
			v := obj.LastModified.Format(time.RFC3339)
			resp[i].LastModified = &v
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getSnapshotURL(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	if h.snapshots == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot storage is not configured"})
		return
	}
	key := c.Query("key")
	if key == "" || !strings.HasPrefix(key, h.keyPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snapshot key"})
		return
	}

	url, err := h.snapshots.GetObjectURL(c.Request.Context(), h.bucket, key, 15*time.Minute)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// callerMayAccess allows a customer through to its own record and admins
// through to any. It writes the response itself when access is denied.
func (h *Handler) callerMayAccess(c *gin.Context, id string) bool {
	callerID := c.GetString(contextCustomerID)
	if callerID == id {
		return true
	}
	return h.requireAdmin(c)
}

func (h *Handler) requireAdmin(c *gin.Context) bool {
	caller, err := h.customers.Get(c.Request.Context(), c.GetString(contextCustomerID))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown token subject"})
		return false
	}
	if caller.Role != domain.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return false
	}
	return true
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, service.ErrMissingEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAuthFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "customer does not exist"})
	case errors.Is(err, repository.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		// storage or allocator trouble: whatever detail the error carries
		// stays in the logs, not the payload
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// CustomerResponse is the profile view: never the digest, never the balance.
type CustomerResponse struct {
	ID            string `json:"id"`
	AccountNumber int64  `json:"account_number"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	CreatedAt     string `json:"created_at"`
}

// BalanceResponse is the profile view plus the balance projection.
type BalanceResponse struct {
	CustomerResponse
	Balance float64 `json:"balance"`
}

type SnapshotResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func customerToResponse(customer domain.Customer) CustomerResponse {
	return CustomerResponse{
		ID:            customer.ID,
		AccountNumber: customer.AccountNumber,
		Name:          customer.Name,
		Email:         customer.Email,
		Role:          string(customer.Role),
		CreatedAt:     customer.CreatedAt.Format(time.RFC3339),
	}
}

func customerToBalanceResponse(customer domain.Customer) BalanceResponse {
	return BalanceResponse{
		CustomerResponse: customerToResponse(customer),
		Balance:          customer.Balance,
	}
}
