package domain

import (
	"context"
	"errors"
	"net/url"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	synclogdomain "github.com/smallbiznis/ordersync/internal/synclog/domain"
)

type Service interface {
	SyncPendingOrders(ctx context.Context, tenantID snowflake.ID) (RunSummary, error)
	IngestNewOrders(ctx context.Context, tenantID snowflake.ID, provider string) (IngestResult, error)
	FullSync(ctx context.Context, tenantID snowflake.ID, provider string) (FullSyncResult, error)
	RetryOrder(ctx context.Context, tenantID, orderID snowflake.ID) (*orderdomain.Order, error)
	TestConnection(ctx context.Context, tenantID snowflake.ID, provider string) (TestResult, error)
	GetSyncStatus(ctx context.Context, tenantID snowflake.ID) (Status, error)
	SimulateOrder(ctx context.Context, tenantID snowflake.ID) (*orderdomain.Order, error)
	ListCatalog(ctx context.Context, tenantID snowflake.ID, catalog Catalog, query url.Values) (any, error)
}

// Catalog names a Loyverse listing used when mapping payment types and items.
type Catalog string

const (
	CatalogStores       Catalog = "stores"
	CatalogItems        Catalog = "items"
	CatalogCategories   Catalog = "categories"
	CatalogPaymentTypes Catalog = "payment_types"
	CatalogReceipts     Catalog = "receipts"
)

func (c Catalog) Valid() bool {
	switch c {
	case CatalogStores, CatalogItems, CatalogCategories, CatalogPaymentTypes, CatalogReceipts:
		return true
	default:
		return false
	}
}

// RunSummary mirrors the SyncLog written for one SyncPendingOrders run.
type RunSummary struct {
	SyncLogID      string                     `json:"sync_log_id,omitempty"`
	Status         synclogdomain.Status       `json:"status"`
	ItemsProcessed int                        `json:"items_processed"`
	ItemsSuccess   int                        `json:"items_success"`
	ItemsFailed    int                        `json:"items_failed"`
	Errors         []synclogdomain.ErrorEntry `json:"errors"`
}

type IngestError struct {
	OrderID string `json:"order_id"`
	Error   string `json:"error"`
}

type IngestResult struct {
	NewOrders   int           `json:"new_orders"`
	TotalOrders int           `json:"total_orders"`
	Skipped     int           `json:"skipped"`
	Errors      []IngestError `json:"errors"`
}

type FullSyncResult struct {
	Ingest IngestResult `json:"ingest"`
	Sync   RunSummary   `json:"sync"`
}

type TestResult struct {
	Provider string `json:"provider"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Detail   any    `json:"detail,omitempty"`
}

// Status flattens the order counts next to the latest SyncLog.
type Status struct {
	orderdomain.StatusCounts
	LastSyncLog *synclogdomain.SyncLog `json:"last_sync_log"`
}

var (
	ErrInvalidTenant   = errors.New("invalid_tenant")
	ErrInvalidProvider = errors.New("invalid_provider")
	ErrSyncInProgress  = errors.New("sync_in_progress")
	ErrUnknownCatalog  = errors.New("unknown_catalog")
)
