package loyverse

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/smallbiznis/ordersync/internal/config"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	"github.com/smallbiznis/ordersync/pkg/integration"
)

// Factory builds per tenant clients against the configured Loyverse endpoint.
type Factory struct {
	endpoint config.Endpoint
}

func NewFactory(cfg config.IntegrationsConfig) *Factory {
	return &Factory{endpoint: cfg.Loyverse}
}

func (f *Factory) NewClient(accessToken string) *Client {
	return NewClient(f.endpoint, accessToken)
}

type Client struct {
	http *integration.Client
}

func NewClient(endpoint config.Endpoint, accessToken string) *Client {
	c := integration.NewClient(integration.ProviderLoyverse, endpoint.BaseURL, endpoint.Timeout)
	c.SetHeader("Authorization", "Bearer "+strings.TrimSpace(accessToken))
	return &Client{http: c}
}

type Store struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

type Item struct {
	ID         string `json:"id"`
	ItemName   string `json:"item_name"`
	CategoryID string `json:"category_id,omitempty"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type PaymentType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ReceiptResult is the part of the created receipt the sync engine keeps.
type ReceiptResult struct {
	ReceiptNumber string `json:"receipt_number"`
	ReceiptType   string `json:"receipt_type,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

type TestResult struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Stores  []Store `json:"stores,omitempty"`
}

func (c *Client) TestConnection(ctx context.Context) TestResult {
	stores, err := c.ListStores(ctx)
	if err != nil {
		msg := strings.TrimSpace(err.Error())
		if msg == "" {
			msg = "Failed to connect to Loyverse"
		}
		return TestResult{Success: false, Message: msg}
	}
	return TestResult{Success: true, Message: "Connected to Loyverse", Stores: stores}
}

func (c *Client) ListStores(ctx context.Context) ([]Store, error) {
	var resp struct {
		Stores []Store `json:"stores"`
	}
	if err := c.http.Do(ctx, integration.Request{Method: http.MethodGet, Path: "/stores"}, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Stores), nil
}

func (c *Client) ListItems(ctx context.Context, query url.Values) ([]Item, error) {
	var resp struct {
		Items []Item `json:"items"`
	}
	if err := c.http.Do(ctx, integration.Request{Method: http.MethodGet, Path: "/items", Query: query}, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Items), nil
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var resp struct {
		Categories []Category `json:"categories"`
	}
	if err := c.http.Do(ctx, integration.Request{Method: http.MethodGet, Path: "/categories"}, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Categories), nil
}

func (c *Client) ListPaymentTypes(ctx context.Context) ([]PaymentType, error) {
	var resp struct {
		PaymentTypes []PaymentType `json:"payment_types"`
	}
	if err := c.http.Do(ctx, integration.Request{Method: http.MethodGet, Path: "/payment_types"}, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.PaymentTypes), nil
}

func (c *Client) ListReceipts(ctx context.Context, query url.Values) ([]ReceiptResult, error) {
	var resp struct {
		Receipts []ReceiptResult `json:"receipts"`
	}
	if err := c.http.Do(ctx, integration.Request{Method: http.MethodGet, Path: "/receipts", Query: query}, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Receipts), nil
}

// CreateReceipt posts order as a SELL receipt. A 4xx with a body becomes a
// *integration.PosRejectedError carrying the Loyverse detail verbatim.
func (c *Client) CreateReceipt(ctx context.Context, order orderdomain.CanonicalOrder, settings ReceiptSettings) (*ReceiptResult, error) {
	receipt := BuildReceipt(order, settings)

	var result ReceiptResult
	err := c.http.Do(ctx, integration.Request{
		Method: http.MethodPost,
		Path:   "/receipts",
		Body:   receipt,
	}, &result)
	if err != nil {
		return nil, classify(err)
	}
	return &result, nil
}

func classify(err error) error {
	var upstream *integration.UpstreamError
	if errors.As(err, &upstream) && upstream.ClientError() && !upstream.Unauthorized() && strings.TrimSpace(upstream.Message) != "" {
		return &integration.PosRejectedError{StatusCode: upstream.StatusCode, Reason: upstream.Message}
	}
	return err
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
