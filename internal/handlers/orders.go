package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/middle0128/Aitravel/internal/auth"
	dom "github.com/middle0128/Aitravel/internal/domain"
	"github.com/middle0128/Aitravel/internal/dto"
	"github.com/middle0128/Aitravel/internal/repo"
	"github.com/middle0128/Aitravel/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderHandler handles the order listing, creation and deletion endpoints.
type OrderHandler struct {
	svc *service.OrderService
}

// NewOrderHandler returns a new OrderHandler.
func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// List godoc
// @Summary      List orders
// @Tags         orders
// @Produce      json
// @Security     CookieAuth
// @Param        page      query  int     false  "Page number, 1-based"
// @Param        page_size query  int     false  "Page size (default 10)"
// @Param        status    query  string  false  "All | Planning | Confirmed | is_priority | has_issue"
// @Param        q         query  string  false  "Search group code, client or contact"
// @Success      200  {object}  dto.ListOrdersResponse
// @Failure      500  {object}  map[string]string
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	f := repo.ListFilter{
		Status: c.DefaultQuery("status", "All"),
		Search: c.Query("q"),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	items, total, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ListOrdersResponse{
		Items:    ordersToResponses(items),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// Create godoc
// @Summary      Create an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        body  body      dto.CreateOrderRequest  true  "Order body"
// @Success      201   {object}  dto.OrderResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o := dom.Order{
		ID:          req.ID,
		ClientName:  req.ClientName,
		StartDate:   req.StartDate.Time(),
		EndDate:     req.EndDate.Time(),
		MainContact: req.MainContact,
	}
	created, err := h.svc.Create(c.Request.Context(), o, auth.ActorNameFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields), errors.Is(err, service.ErrInvalidDateRange):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrOrderIDTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "order id already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, orderToResponse(created))
}

// GetByID godoc
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      string  true  "Group code"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetByID(c *gin.Context) {
	o, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, orderToResponse(o))
}

// Exists godoc
// @Summary      Check a group code for duplicates
// @Tags         orders
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      string  true  "Group code"
// @Success      200  {object}  dto.ExistsResponse
// @Failure      500  {object}  map[string]string
// @Router       /orders/{id}/exists [get]
func (h *OrderHandler) Exists(c *gin.Context) {
	exists, err := h.svc.Exists(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ExistsResponse{Exists: exists})
}

// Delete godoc
// @Summary      Delete an order and all of its tasks
// @Tags         orders
// @Security     CookieAuth
// @Param        id   path  string  true  "Group code"
// @Success      204
// @Failure      500  {object}  map[string]string
// @Router       /orders/{id} [delete]
func (h *OrderHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func orderToResponse(o dom.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:          o.ID,
		ClientName:  o.ClientName,
		StartDate:   dto.NewDate(o.StartDate),
		EndDate:     dto.NewDate(o.EndDate),
		MainContact: o.MainContact,
		Status:      o.Status,
		IsPriority:  o.IsPriority,
		HasIssue:    o.HasIssue,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func ordersToResponses(list []dom.Order) []dto.OrderResponse {
	out := make([]dto.OrderResponse, len(list))
	for i := range list {
		out[i] = orderToResponse(list[i])
	}
	return out
}
