package integration

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shiphub/backend/internal/domain/integration"
)

// OrderQueryService serves read access to a user's reconciled orders
type OrderQueryService struct {
	orders   integration.OrderRepository
	shipping integration.OrderShippingRepository
}

// NewOrderQueryService creates an OrderQueryService
func NewOrderQueryService(orders integration.OrderRepository, shipping integration.OrderShippingRepository) *OrderQueryService {
	return &OrderQueryService{orders: orders, shipping: shipping}
}

// ListOrders returns one page of the user's orders with their items
func (s *OrderQueryService) ListOrders(ctx context.Context, userID uuid.UUID, q ListOrdersQuery) (*OrderListResponse, error) {
	if userID == uuid.Nil {
		return nil, integration.ErrInvalidUserID
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}

	filter := integration.OrderFilter{
		UserID:   userID,
		Status:   strings.ToUpper(strings.TrimSpace(q.Status)),
		Page:     q.Page,
		PageSize: q.PageSize,
		OrderBy:  q.SortBy,
		OrderDir: q.SortDir,
	}
	if q.Marketplace != "" {
		code, err := integration.ParseMarketplaceCode(q.Marketplace)
		if err != nil {
			return nil, err
		}
		filter.Marketplace = code
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := &OrderListResponse{
		Orders:   make([]OrderResponse, len(orders)),
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	for i := range orders {
		resp.Orders[i] = ToOrderResponse(&orders[i])
	}
	return resp, nil
}

// GetOrder returns one order with items and, when present, its shipping record
func (s *OrderQueryService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	resp := ToOrderResponse(order)
	shipping, err := s.shipping.FindByOrderID(ctx, order.ID)
	switch {
	case err == nil:
		resp.Shipping = ToOrderShippingResponse(shipping)
	case !errors.Is(err, integration.ErrShippingNotFound):
		return nil, err
	}
	return &resp, nil
}
