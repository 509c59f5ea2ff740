package rappi

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
	fieldAPIKey    = "api_key"
	fieldSecretKey = "secret_key"

	apiKeyHeader = "api-key"
	apiPrefix    = "/restaurants-integrations-public-api"
	displayName  = "Rappi"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() integration.Provider {
	return integration.ProviderRappi
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Adapter, error) {
	storeID := strings.TrimSpace(cfg.StoreID)
	apiKey := strings.TrimSpace(cfg.Field(fieldAPIKey))
	if storeID == "" || apiKey == "" {
		return nil, domain.ErrInvalidConfig
	}

	return &Adapter{
		cfg:     cfg,
		storeID: storeID,
		apiKey:  apiKey,
		client:  integration.NewClient(integration.ProviderRappi, cfg.Endpoint.BaseURL, cfg.Endpoint.Timeout),
	}, nil
}

// Adapter authenticates every call with the store api key; Rappi has no
// token exchange.
type Adapter struct {
	cfg     domain.AdapterConfig
	storeID string
	apiKey  string
	client  *integration.Client
}

func (a *Adapter) Provider() integration.Provider {
	return integration.ProviderRappi
}

func (a *Adapter) AcquireAccessToken(ctx context.Context) (domain.Token, error) {
	return domain.Token{AccessToken: a.apiKey}, nil
}

func (a *Adapter) header(token domain.Token) http.Header {
	key := token.AccessToken
	if key == "" {
		key = a.apiKey
	}
	h := http.Header{}
	h.Set(apiKeyHeader, key)
	return h
}

func (a *Adapter) FetchOrders(ctx context.Context, token domain.Token, window domain.Window) ([]domain.RawOrder, error) {
	query := url.Values{}
	query.Set("store_id", a.storeID)
	for k, v := range adapters.WindowQuery(window) {
		query.Set(k, v)
	}

	var body json.RawMessage
	err := a.client.Do(ctx, integration.Request{
		Method: http.MethodGet,
		Path:   apiPrefix + "/orders",
		Query:  query,
		Header: a.header(token),
	}, &body)
	if err != nil {
		return nil, err
	}
	return transform.DecodeOrders(body)
}

func (a *Adapter) TestConnection(ctx context.Context) domain.TestResult {
	var store map[string]any
	err := a.client.Do(ctx, integration.Request{
		Method: http.MethodGet,
		Path:   apiPrefix + "/stores/" + url.PathEscape(a.storeID),
		Header: a.header(domain.Token{}),
	}, &store)
	if err != nil {
		msg := strings.TrimSpace(err.Error())
		if msg == "" {
			msg = "Failed to connect to " + displayName
		}
		return domain.TestResult{Success: false, Message: msg}
	}
	return domain.TestResult{Success: true, Message: "Connected to " + displayName, Detail: store}
}

type rappiOrder struct {
	ID     any `json:"id"`
	Client struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"client"`
	Address struct {
		FullAddress string `json:"full_address"`
	} `json:"address"`
	Products []struct {
		Name     string          `json:"name"`
		Quantity int             `json:"quantity"`
		Price    decimal.Decimal `json:"price"`
		Toppings []struct {
			Name  string          `json:"name"`
			Price decimal.Decimal `json:"price"`
		} `json:"toppings"`
	} `json:"products"`
	TotalValue            decimal.Decimal `json:"total_value"`
	DeliveryFee           decimal.Decimal `json:"delivery_fee"`
	Tax                   decimal.Decimal `json:"tax"`
	PaymentMethod         string          `json:"payment_method"`
	CreatedAt             string          `json:"created_at"`
	EstimatedDeliveryTime string          `json:"estimated_delivery_time"`
}

func (a *Adapter) TransformOrder(raw domain.RawOrder) (orderdomain.CanonicalOrder, error) {
	return Transform(raw, a.cfg.PhoneRegion)
}

// Transform maps a Rappi order payload onto the canonical order. Rappi sends
// amounts in major units and no explicit subtotal.
func Transform(raw domain.RawOrder, phoneRegion string) (orderdomain.CanonicalOrder, error) {
	var src rappiOrder
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
		modifiers := make([]orderdomain.Modifier, 0, len(p.Toppings))
		for _, t := range p.Toppings {
			modifiers = append(modifiers, orderdomain.Modifier{Name: t.Name, Price: t.Price})
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
			Name:    transform.CustomerName(src.Client.Name),
			Phone:   transform.Phone(src.Client.Phone, phoneRegion),
			Address: strings.TrimSpace(src.Address.FullAddress),
		},
		Items:         items,
		Subtotal:      src.TotalValue.Sub(src.DeliveryFee),
		Tax:           src.Tax,
		DeliveryFee:   src.DeliveryFee,
		Total:         src.TotalValue,
		PaymentMethod: transform.PaymentMethod(src.PaymentMethod),
		OrderTime:     orderTime,
		DeliveryTime:  transform.OptionalTime(src.EstimatedDeliveryTime),
	})
}
