package uber

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

	displayName = "Uber Eats"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() integration.Provider {
	return integration.ProviderUber
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Adapter, error) {
	storeID := strings.TrimSpace(cfg.StoreID)
	clientID := strings.TrimSpace(cfg.Field(fieldClientID))
	clientSecret := strings.TrimSpace(cfg.Field(fieldClientSecret))
	if storeID == "" || clientID == "" || clientSecret == "" {
		return nil, domain.ErrInvalidConfig
	}

	return &Adapter{
		cfg:          cfg,
		storeID:      storeID,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       integration.NewClient(integration.ProviderUber, cfg.Endpoint.BaseURL, cfg.Endpoint.Timeout),
	}, nil
}

type Adapter struct {
	cfg          domain.AdapterConfig
	storeID      string
	clientID     string
	clientSecret string
	client       *integration.Client
}

func (a *Adapter) Provider() integration.Provider {
	return integration.ProviderUber
}

func (a *Adapter) AcquireAccessToken(ctx context.Context) (domain.Token, error) {
	return adapters.ClientCredentialsToken(ctx, integration.ProviderUber, a.client.HTTPClient(), a.cfg.Endpoint, a.clientID, a.clientSecret)
}

func (a *Adapter) FetchOrders(ctx context.Context, token domain.Token, window domain.Window) ([]domain.RawOrder, error) {
	query := url.Values{}
	for k, v := range adapters.WindowQuery(window) {
		query.Set(k, v)
	}

	var body json.RawMessage
	err := a.client.Do(ctx, integration.Request{
		Method: http.MethodGet,
		Path:   "/stores/" + url.PathEscape(a.storeID) + "/orders",
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
	if err != nil {
		return domain.TestResult{Success: false, Message: failureMessage(err)}
	}

	var store map[string]any
	err = a.client.Do(ctx, integration.Request{
		Method: http.MethodGet,
		Path:   "/stores/" + url.PathEscape(a.storeID),
		Header: adapters.BearerHeader(token),
	}, &store)
	if err != nil {
		return domain.TestResult{Success: false, Message: failureMessage(err)}
	}
	return domain.TestResult{Success: true, Message: "Connected to " + displayName, Detail: store}
}

func failureMessage(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return "Failed to connect to " + displayName
}

type uberOrder struct {
	ID        string `json:"id"`
	DisplayID string `json:"display_id"`
	Eater     struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Phone     string `json:"phone"`
	} `json:"eater"`
	Delivery struct {
		Location struct {
			Address string `json:"address"`
		} `json:"location"`
	} `json:"delivery"`
	Cart struct {
		Items []uberItem `json:"items"`
	} `json:"cart"`
	Payment struct {
		Type    string `json:"type"`
		Charges struct {
			Subtotal    decimal.Decimal `json:"subtotal"`
			Tax         decimal.Decimal `json:"tax"`
			DeliveryFee decimal.Decimal `json:"delivery_fee"`
			Total       decimal.Decimal `json:"total"`
		} `json:"charges"`
	} `json:"payment"`
	PlacedAt                  string `json:"placed_at"`
	EstimatedReadyForPickupAt string `json:"estimated_ready_for_pickup_at"`
}

type uberItem struct {
	Title                  string          `json:"title"`
	Quantity               int             `json:"quantity"`
	Price                  decimal.Decimal `json:"price"`
	SelectedModifierGroups []struct {
		SelectedItems []struct {
			Title string          `json:"title"`
			Price decimal.Decimal `json:"price"`
		} `json:"selected_items"`
	} `json:"selected_modifier_groups"`
}

// Uber amounts are minor units.
func minor(d decimal.Decimal) decimal.Decimal {
	return d.Shift(-2)
}

func (a *Adapter) TransformOrder(raw domain.RawOrder) (orderdomain.CanonicalOrder, error) {
	return Transform(raw, a.cfg.PhoneRegion)
}

// Transform maps an Uber Eats order payload onto the canonical order.
func Transform(raw domain.RawOrder, phoneRegion string) (orderdomain.CanonicalOrder, error) {
	var src uberOrder
	if err := json.Unmarshal(raw.Payload, &src); err != nil {
		return orderdomain.CanonicalOrder{}, transform.InvalidOrder(err)
	}

	orderTime, err := transform.ParseTime(src.PlacedAt)
	if err != nil {
		return orderdomain.CanonicalOrder{}, transform.InvalidOrder(err)
	}

	number := strings.TrimSpace(src.DisplayID)
	if number == "" {
		number = strings.TrimSpace(src.ID)
	}

	items := make([]orderdomain.Item, 0, len(src.Cart.Items))
	for _, it := range src.Cart.Items {
		modifiers := []orderdomain.Modifier{}
		for _, group := range it.SelectedModifierGroups {
			for _, sel := range group.SelectedItems {
				modifiers = append(modifiers, orderdomain.Modifier{
					Name:  sel.Title,
					Price: minor(sel.Price),
				})
			}
		}
		items = append(items, orderdomain.Item{
			Name:      it.Title,
			Quantity:  it.Quantity,
			Price:     minor(it.Price),
			Modifiers: modifiers,
		})
	}

	charges := src.Payment.Charges
	return transform.Finalize(orderdomain.CanonicalOrder{
		OrderNumber: number,
		Customer: orderdomain.Customer{
			Name:    transform.CustomerName(src.Eater.FirstName, src.Eater.LastName),
			Phone:   transform.Phone(src.Eater.Phone, phoneRegion),
			Address: strings.TrimSpace(src.Delivery.Location.Address),
		},
		Items:         items,
		Subtotal:      minor(charges.Subtotal),
		Tax:           minor(charges.Tax),
		DeliveryFee:   minor(charges.DeliveryFee),
		Total:         minor(charges.Total),
		PaymentMethod: transform.PaymentMethod(src.Payment.Type),
		OrderTime:     orderTime,
		DeliveryTime:  transform.OptionalTime(src.EstimatedReadyForPickupAt),
	})
}
