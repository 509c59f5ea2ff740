package pedidosya

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ordersync/internal/aggregator/adapters"
	"github.com/smallbiznis/ordersync/internal/aggregator/domain"
	"github.com/smallbiznis/ordersync/internal/aggregator/transform"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	"github.com/smallbiznis/ordersync/pkg/integration"
)

const (
	fieldClientID     = "client_id"
	fieldClientSecret = "client_secret"

	displayName = "PedidosYa"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() integration.Provider {
	return integration.ProviderPedidosYa
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Adapter, error) {
	restaurantID := strings.TrimSpace(cfg.StoreID)
	clientID := strings.TrimSpace(cfg.Field(fieldClientID))
	clientSecret := strings.TrimSpace(cfg.Field(fieldClientSecret))
	if restaurantID == "" || clientID == "" || clientSecret == "" {
		return nil, domain.ErrInvalidConfig
	}

	return &Adapter{
		cfg:          cfg,
		restaurantID: restaurantID,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       integration.NewClient(integration.ProviderPedidosYa, cfg.Endpoint.BaseURL, cfg.Endpoint.Timeout),
	}, nil
}

type Adapter struct {
	cfg          domain.AdapterConfig
	restaurantID string
	clientID     string
	clientSecret string
	client       *integration.Client
}

func (a *Adapter) Provider() integration.Provider {
	return integration.ProviderPedidosYa
}

func (a *Adapter) AcquireAccessToken(ctx context.Context) (domain.Token, error) {
	return adapters.ClientCredentialsToken(ctx, integration.ProviderPedidosYa, a.client.HTTPClient(), a.cfg.Endpoint, a.clientID, a.clientSecret)
}

func (a *Adapter) FetchOrders(ctx context.Context, token domain.Token, window domain.Window) ([]domain.RawOrder, error) {
	query := url.Values{}
	query.Set("restaurant_id", a.restaurantID)
	for k, v := range adapters.WindowQuery(window) {
		query.Set(k, v)
	}

	var body json.RawMessage
	err := a.client.Do(ctx, integration.Request{
		Method: http.MethodGet,
		Path:   "/orders",
		Query:  query,
		Header: adapters.BearerHeader(token),
	}, &body)
	if err != nil {
		return nil, err
	}
	return transform.DecodeOrders(body)
}

func (a *Adapter) TestConnection(ctx context.Context) domain.TestResult {
	token, err := a.AcquireAccessToken(ctx)
	if err == nil {
		var restaurant map[string]any
		err = a.client.Do(ctx, integration.Request{
			Method: http.MethodGet,
			Path:   "/restaurants/" + url.PathEscape(a.restaurantID),
			Header: adapters.BearerHeader(token),
		}, &restaurant)
		if err == nil {
			return domain.TestResult{Success: true, Message: "Connected to " + displayName, Detail: restaurant}
		}
	}

	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "Failed to connect to " + displayName
	}
	return domain.TestResult{Success: false, Message: msg}
}

type pedidosYaOrder struct {
	ID       any `json:"id"`
	Customer struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"customer"`
	DeliveryAddress struct {
		Address string `json:"address"`
	} `json:"delivery_address"`
	Products []struct {
		Name     string          `json:"name"`
		Quantity int             `json:"quantity"`
		Price    decimal.Decimal `json:"price"`
		Options  []struct {
			Name  string          `json:"name"`
			Price decimal.Decimal `json:"price"`
		} `json:"options"`
	} `json:"products"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	Tax                   decimal.Decimal `json:"tax"`
	Shipping              decimal.Decimal `json:"shipping"`
	Total                 decimal.Decimal `json:"total"`
	PaymentMethod         string          `json:"payment_method"`
	CreatedAt             string          `json:"created_at"`
	EstimatedDeliveryTime string          `json:"estimated_delivery_time"`
}

func (a *Adapter) TransformOrder(raw domain.RawOrder) (orderdomain.CanonicalOrder, error) {
	return Transform(raw, a.cfg.PhoneRegion)
}

// Transform maps a PedidosYa order payload onto the canonical order.
func Transform(raw domain.RawOrder, phoneRegion string) (orderdomain.CanonicalOrder, error) {
	var src pedidosYaOrder
	if err := json.Unmarshal(raw.Payload, &src); err != nil {
		return orderdomain.CanonicalOrder{}, transform.InvalidOrder(err)
	}

	orderTime, err := transform.ParseTime(src.CreatedAt)
	if err != nil {
		return orderdomain.CanonicalOrder{}, transform.InvalidOrder(err)
	}

	number := raw.ExternalID
	if number == "" {
		number = transform.IDString(src.ID)
	}

	items := make([]orderdomain.Item, 0, len(src.Products))
	for _, p := range src.Products {
		modifiers := make([]orderdomain.Modifier, 0, len(p.Options))
		for _, o := range p.Options {
			modifiers = append(modifiers, orderdomain.Modifier{Name: o.Name, Price: o.Price})
		}
		items = append(items, orderdomain.Item{
			Name:      p.Name,
			Quantity:  p.Quantity,
			Price:     p.Price,
			Modifiers: modifiers,
		})
	}

	return transform.Finalize(orderdomain.CanonicalOrder{
		OrderNumber: number,
		Customer: orderdomain.Customer{
			Name:    transform.CustomerName(src.Customer.Name),
			Phone:   transform.Phone(src.Customer.Phone, phoneRegion),
			Address: strings.TrimSpace(src.DeliveryAddress.Address),
		},
		Items:         items,
		Subtotal:      src.Subtotal,
		Tax:           src.Tax,
		DeliveryFee:   src.Shipping,
		Total:         src.Total,
		PaymentMethod: transform.PaymentMethod(src.PaymentMethod),
		OrderTime:     orderTime,
		DeliveryTime:  transform.OptionalTime(src.EstimatedDeliveryTime),
	})
}
