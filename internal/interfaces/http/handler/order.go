package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appintegration "github.com/shiphub/backend/internal/application/integration"
	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/interfaces/http/dto"
)

// OrderReader reads the caller's synced orders
type OrderReader interface {
	ListOrders(ctx context.Context, userID uuid.UUID, q appintegration.ListOrdersQuery) (*appintegration.OrderListResponse, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*appintegration.OrderResponse, error)
}

// LabelRequester hands an order off to the label service
type LabelRequester interface {
	RequestLabel(ctx context.Context, userID, orderID uuid.UUID) (*integration.LabelResult, error)
}

// OrderHandler handles order read and label endpoints
type OrderHandler struct {
	BaseHandler
	orders OrderReader
	labels LabelRequester
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderReader, labels LabelRequester) *OrderHandler {
	return &OrderHandler{orders: orders, labels: labels}
}

// List godoc
// @ID           listOrders
// @Summary      List the caller's orders
// @Description  Returns one page of synced orders with their items, newest first
// @Tags         orders
// @Produce      json
// @Param        marketplace query string false "Marketplace filter" Enums(VEEQO, TRENDYOL, SHIPPO)
// @Param        status query string false "Status filter"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Param        sort_by query string false "Sort column" Enums(created_at, updated_at, marketplace, marketplace_key, customer_name, status, ship_by_date, total_price)
// @Param        sort_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]appintegration.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var q appintegration.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, err.Error())
		return
	}

	page, err := h.orders.ListOrders(c.Request.Context(), userID, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Orders, page.Total, page.Page, page.PageSize)
}

// Get godoc
// @ID           getOrder
// @Summary      Get one order
// @Description  Returns the order with its items and shipping record
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[appintegration.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	userID, orderID, ok := h.orderParams(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// RequestLabel godoc
// @ID           requestOrderLabel
// @Summary      Request a shipping label
// @Description  Builds the label request for the order and hands it to the label service
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[integration.LabelResult]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/label [post]
func (h *OrderHandler) RequestLabel(c *gin.Context) {
	userID, orderID, ok := h.orderParams(c)
	if !ok {
		return
	}

	result, err := h.labels.RequestLabel(c.Request.Context(), userID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *OrderHandler) orderParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid order ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, uuid.MustParse(req.ID), true
}
