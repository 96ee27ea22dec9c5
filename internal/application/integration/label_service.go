package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxLabelResponseSize = 1 << 20

// LabelTokenIssuer mints the short-lived bearer token sent with one label job.
type LabelTokenIssuer interface {
	IssueLabelToken(userID, orderID uuid.UUID) (string, error)
}

// LabelService prepares shipping label requests and hands them to the
// external label script.
type LabelService struct {
	orders   integration.OrderRepository
	shipping integration.OrderShippingRepository
	profiles integration.ShipperProfileRepository
	tokens   LabelTokenIssuer

	endpointURL string
	httpClient  *http.Client
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewLabelService creates a LabelService posting to endpointURL
func NewLabelService(
	orders integration.OrderRepository,
	shipping integration.OrderShippingRepository,
	profiles integration.ShipperProfileRepository,
	tokens LabelTokenIssuer,
	endpointURL string,
	timeout time.Duration,
	logger *zap.Logger,
) *LabelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabelService{
		orders:      orders,
		shipping:    shipping,
		profiles:    profiles,
		tokens:      tokens,
		endpointURL: strings.TrimSpace(endpointURL),
		httpClient:  &http.Client{Timeout: timeout},
		validate:    newLabelValidator(),
		logger:      logger.Named("label"),
	}
}

func newLabelValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// BuildLabelRequest assembles and validates the label request for one order.
func (s *LabelService) BuildLabelRequest(ctx context.Context, userID, orderID uuid.UUID) (*integration.LabelRequest, error) {
	order, err := s.orders.FindByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	shipTo := addressFromOrder(order)
	shipping, err := s.shipping.FindByOrderID(ctx, orderID)
	switch {
	case err == nil:
		shipTo = addressFromShipping(shipping, profile)
	case !errors.Is(err, integration.ErrShippingNotFound):
		return nil, err
	}

	req := &integration.LabelRequest{
		OrderID:     order.ID.String(),
		OrderKey:    order.MarketplaceKey,
		Marketplace: order.Marketplace,
		ShipTo:      shipTo,
		ShipFrom: integration.LabelAddress{
			Name:    strings.TrimSpace(profile.Name),
			Company: profile.Company,
			Email:   profile.Email,
			Street1: profile.Street1,
			Street2: profile.Street2,
			City:    profile.City,
			State:   profile.State,
			Zip:     profile.Zip,
			Country: profile.Country,
			Phone:   profile.DefaultPhone(),
		},
		Currency:          strings.ToUpper(firstNonBlank(profile.DefaultCurrency, order.Currency)),
		DutiesPaymentType: strings.ToUpper(firstNonBlank(profile.DutiesPaymentType, integration.DefaultDutiesPaymentType)),
	}

	declared := decimal.Zero
	for _, item := range order.Items {
		req.Items = append(req.Items, integration.LabelItem{
			SKU:         item.SKU,
			Description: item.ProductName,
			Quantity:    item.Quantity,
			UnitValue:   item.UnitPrice,
		})
		declared = declared.Add(item.TotalPrice)
	}
	if declared.IsZero() {
		declared = order.TotalPrice
	}
	req.DeclaredValue = declared.Round(2)

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", integration.ErrLabelRequestInvalid, describeValidation(err))
	}
	return req, nil
}

// RequestLabel builds the label request and posts it to the label script.
func (s *LabelService) RequestLabel(ctx context.Context, userID, orderID uuid.UUID) (*integration.LabelResult, error) {
	if s.endpointURL == "" {
		return nil, integration.ErrLabelEndpointNotConfigured
	}

	req, err := s.BuildLabelRequest(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.IssueLabelToken(userID, orderID)
	if err != nil {
		return nil, fmt.Errorf("issue label token: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode label request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build label request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrLabelServiceFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxLabelResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", integration.ErrLabelServiceFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", integration.ErrLabelServiceFailed, resp.StatusCode, string(respBody))
	}

	var out struct {
		integration.LabelResult
		Error string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", integration.ErrLabelServiceFailed, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s", integration.ErrLabelServiceFailed, out.Error)
	}
	if out.LabelURL == "" {
		return nil, fmt.Errorf("%w: response has no label url", integration.ErrLabelServiceFailed)
	}

	s.logger.Info("Label created",
		zap.String("user_id", userID.String()),
		zap.String("order_id", orderID.String()),
		zap.String("tracking_number", out.TrackingNumber))
	return &out.LabelResult, nil
}

func addressFromOrder(o *integration.Order) integration.LabelAddress {
	a := o.ShippingAddress
	return integration.LabelAddress{
		Name:    firstNonBlank(a.Name, o.CustomerName),
		Company: a.Company,
		Street1: a.Street1,
		Street2: a.Street2,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: a.Country,
		Phone:   integration.DigitsOnly(a.Phone),
	}
}

func addressFromShipping(s *integration.OrderShipping, profile *integration.ShipperProfile) integration.LabelAddress {
	phone := s.Phone
	if phone == "" {
		phone = profile.DefaultPhone()
	}
	return integration.LabelAddress{
		Name:    s.FullName(),
		Company: s.Company,
		Email:   s.Email,
		Street1: s.Street1,
		Street2: s.Street2,
		City:    s.City,
		State:   s.State,
		Zip:     s.Zip,
		Country: s.Country,
		Phone:   phone,
	}
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
