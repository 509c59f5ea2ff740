package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ordersync/internal/aggregator/adapters"
	aggregatordomain "github.com/smallbiznis/ordersync/internal/aggregator/domain"
	"github.com/smallbiznis/ordersync/internal/clock"
	"github.com/smallbiznis/ordersync/internal/config"
	credentialdomain "github.com/smallbiznis/ordersync/internal/credential/domain"
	credentialrepo "github.com/smallbiznis/ordersync/internal/credential/repository"
	credentialservice "github.com/smallbiznis/ordersync/internal/credential/service"
	"github.com/smallbiznis/ordersync/internal/lock"
	lockmock "github.com/smallbiznis/ordersync/internal/lock/mock"
	"github.com/smallbiznis/ordersync/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	orderrepo "github.com/smallbiznis/ordersync/internal/order/repository"
	"github.com/smallbiznis/ordersync/internal/pos/loyverse"
	"github.com/smallbiznis/ordersync/internal/sync/domain"
	"github.com/smallbiznis/ordersync/internal/sync/service"
	synclogdomain "github.com/smallbiznis/ordersync/internal/synclog/domain"
	synclogrepo "github.com/smallbiznis/ordersync/internal/synclog/repository"
	synclogservice "github.com/smallbiznis/ordersync/internal/synclog/service"
	"github.com/smallbiznis/ordersync/pkg/integration"
	"github.com/smallbiznis/ordersync/pkg/secretbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSyncPendingOrdersIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()
	f.configureLoyverse(t, tenantID)
	f.pos.reject.Store("UE-B")

	a := f.insertOrder(t, tenantID, "UE-A", base)
	b := f.insertOrder(t, tenantID, "UE-B", base.Add(time.Minute))
	c := f.insertOrder(t, tenantID, "UE-C", base.Add(2*time.Minute))

	summary, err := f.svc.SyncPendingOrders(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, synclogdomain.StatusPartial, summary.Status)
	assert.Equal(t, 3, summary.ItemsProcessed)
	assert.Equal(t, 2, summary.ItemsSuccess)
	assert.Equal(t, 1, summary.ItemsFailed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "UE-B", summary.Errors[0].ItemID)
	assert.Equal(t, "Payment type not found", summary.Errors[0].Error)

	synced := f.order(t, tenantID, a.ID)
	assert.Equal(t, orderdomain.StatusSynced, synced.Status)
	require.NotNil(t, synced.LoyverseReceiptID)
	assert.Equal(t, "1-0001", *synced.LoyverseReceiptID)

	failed := f.order(t, tenantID, b.ID)
	assert.Equal(t, orderdomain.StatusError, failed.Status)
	assert.Equal(t, "Payment type not found", failed.ErrorMessage)
	assert.Equal(t, 1, failed.SyncAttempts)
	assert.Nil(t, failed.ClaimToken)

	assert.Equal(t, orderdomain.StatusSynced, f.order(t, tenantID, c.ID).Status)

	status, err := f.svc.GetSyncStatus(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), status.Synced)
	assert.Equal(t, int64(1), status.Error)
	assert.Equal(t, int64(3), status.Total)
	require.NotNil(t, status.LastSyncLog)
	assert.Equal(t, "uber", status.LastSyncLog.AggregatorType)
	assert.Equal(t, synclogdomain.StatusPartial, status.LastSyncLog.Status)
	assert.Equal(t, summary.SyncLogID, status.LastSyncLog.ID.String())

	assert.Equal(t, 1, f.logs.FilterMessage("sync run finished").Len())
	assert.Equal(t, int32(3), f.pos.receipts.Load())
}

func TestSyncPendingOrdersWithoutPOSConfigLogsError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()
	pending := f.insertOrder(t, tenantID, "UE-1", base)

	summary, err := f.svc.SyncPendingOrders(ctx, tenantID)
	require.Error(t, err)
	assert.ErrorIs(t, err, integration.ErrConfigMissing)
	assert.Equal(t, synclogdomain.StatusError, summary.Status)

	latest, err := f.synclogs.Latest(ctx, tenantID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, synclogdomain.StatusError, latest.Status)
	assert.Equal(t, "loyverse", latest.AggregatorType)
	assert.Equal(t, 0, latest.ItemsProcessed)
	details := latest.Details.Data()
	require.Len(t, details.Errors, 1)
	assert.Equal(t, synclogdomain.GeneralItemID, details.Errors[0].ItemID)
	assert.Contains(t, details.Errors[0].Error, "loyverse")

	assert.Equal(t, orderdomain.StatusPending, f.order(t, tenantID, pending.ID).Status)
	assert.Equal(t, int32(0), f.pos.receipts.Load())
}

func TestSyncPendingOrdersWithNothingPendingLogsSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()
	f.configureLoyverse(t, tenantID)

	summary, err := f.svc.SyncPendingOrders(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, synclogdomain.StatusSuccess, summary.Status)
	assert.Equal(t, 0, summary.ItemsProcessed)
	assert.Empty(t, summary.Errors)

	latest, err := f.synclogs.Latest(ctx, tenantID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "loyverse", latest.AggregatorType)
}

func TestSyncPendingOrdersSkipsOtherTenants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()
	otherTenant := f.node.Generate()
	f.configureLoyverse(t, tenantID)

	other := f.insertOrder(t, otherTenant, "UE-OTHER", base)

	summary, err := f.svc.SyncPendingOrders(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ItemsProcessed)
	assert.Equal(t, orderdomain.StatusPending, f.order(t, otherTenant, other.ID).Status)
}

func TestSyncPendingOrdersRejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()
	f.configureLoyverse(t, tenantID)
	f.insertOrder(t, tenantID, "UE-1", base)

	_, ok, err := f.locker.TryLock(ctx, "sync:tenant:"+tenantID.String(), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	summary, err := f.svc.SyncPendingOrders(ctx, tenantID)
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
	assert.Equal(t, synclogdomain.StatusError, summary.Status)

	latest, err := f.synclogs.Latest(ctx, tenantID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, synclogdomain.StatusError, latest.Status)
	assert.Equal(t, 0, latest.ItemsProcessed)
	details := latest.Details.Data()
	require.Len(t, details.Errors, 1)
	assert.Equal(t, synclogdomain.GeneralItemID, details.Errors[0].ItemID)
	assert.Equal(t, domain.ErrSyncInProgress.Error(), details.Errors[0].Error)
	assert.Equal(t, int32(0), f.pos.receipts.Load())

	expected := `
# HELP ordersync_sync_lock_contended_total Sync runs rejected because the tenant lock was held.
# TYPE ordersync_sync_lock_contended_total counter
ordersync_sync_lock_contended_total{env="test",service="ordersync"} 1
`
	require.NoError(t, testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "ordersync_sync_lock_contended_total"))
}

func TestSyncPendingOrdersProceedsWhenLockBackendFails(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	locker := lockmock.NewMockLocker(ctrl)

	f := newFixture(t, func(p *service.Params) { p.Locker = locker })
	tenantID := f.node.Generate()
	f.configureLoyverse(t, tenantID)
	pending := f.insertOrder(t, tenantID, "UE-1", base)

	locker.EXPECT().
		TryLock(gomock.Any(), "sync:tenant:"+tenantID.String(), 2*time.Minute).
		Return("", false, errors.New("dial tcp: connection refused"))

	summary, err := f.svc.SyncPendingOrders(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, synclogdomain.StatusSuccess, summary.Status)
	assert.Equal(t, orderdomain.StatusSynced, f.order(t, tenantID, pending.ID).Status)
	assert.Equal(t, 1, f.logs.FilterMessage("sync lock unavailable").Len())
}

func TestSyncPendingOrdersReleasesLock(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	locker := lockmock.NewMockLocker(ctrl)

	f := newFixture(t, func(p *service.Params) { p.Locker = locker })
	tenantID := f.node.Generate()
	key := "sync:tenant:" + tenantID.String()

	gomock.InOrder(
		locker.EXPECT().TryLock(gomock.Any(), key, 2*time.Minute).Return("lease-1", true, nil),
		locker.EXPECT().Release(gomock.Any(), key, "lease-1").Return(nil),
	)

	// No POS config: the run fails but the lease is still returned.
	_, err := f.svc.SyncPendingOrders(ctx, tenantID)
	assert.ErrorIs(t, err, integration.ErrConfigMissing)
}

func TestSyncPendingOrdersRefreshesLockPerOrder(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	locker := lockmock.NewMockLocker(ctrl)

	f := newFixture(t, func(p *service.Params) { p.Locker = locker })
	tenantID := f.node.Generate()
	key := "sync:tenant:" + tenantID.String()
	f.configureLoyverse(t, tenantID)
	f.insertOrder(t, tenantID, "UE-1", base)
	f.insertOrder(t, tenantID, "UE-2", base.Add(time.Minute))

	gomock.InOrder(
		locker.EXPECT().TryLock(gomock.Any(), key, 2*time.Minute).Return("lease-1", true, nil),
		locker.EXPECT().Refresh(gomock.Any(), key, "lease-1", 2*time.Minute).Return(true, nil),
		locker.EXPECT().Refresh(gomock.Any(), key, "lease-1", 2*time.Minute).Return(false, nil),
		locker.EXPECT().Release(gomock.Any(), key, "lease-1").Return(nil),
	)

	summary, err := f.svc.SyncPendingOrders(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ItemsSuccess)
	assert.Equal(t, 1, f.logs.FilterMessage("sync lock lost").Len())
}

func TestSyncPendingOrdersParksOrderWhenReceiptNotRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()
	f.configureLoyverse(t, tenantID)
	order := f.insertOrder(t, tenantID, "UE-1", base)

	var writes atomic.Int32
	require.NoError(t, f.db.Callback().Raw().Before("gorm:raw").Register("test:fail_mark_synced", func(tx *gorm.DB) {
		if strings.Contains(tx.Statement.SQL.String(), "loyverse_receipt_id = ?") {
			writes.Add(1)
			_ = tx.AddError(errors.New("database is locked"))
		}
	}))

	summary, err := f.svc.SyncPendingOrders(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, synclogdomain.StatusError, summary.Status)
	assert.Equal(t, 1, summary.ItemsFailed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "UE-1", summary.Errors[0].ItemID)
	assert.Contains(t, summary.Errors[0].Error, "receipt 1-0001 created")
	assert.Equal(t, int32(2), writes.Load())

	parked := f.order(t, tenantID, order.ID)
	assert.Equal(t, orderdomain.StatusError, parked.Status)
	assert.Contains(t, parked.ErrorMessage, "1-0001")
	assert.Nil(t, parked.ClaimToken)

	// Past the claim TTL nothing is picked up again.
	f.clock.Advance(6 * time.Minute)
	again, err := f.svc.SyncPendingOrders(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.ItemsProcessed)
	assert.Equal(t, int32(1), f.pos.receipts.Load())
}

func TestGetSyncStatusJSONIsFlat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()
	f.insertOrder(t, tenantID, "UE-1", base)

	status, err := f.svc.GetSyncStatus(ctx, tenantID)
	require.NoError(t, err)

	raw, err := json.Marshal(status)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, float64(1), body["pending"])
	assert.Equal(t, float64(0), body["synced"])
	assert.Equal(t, float64(0), body["error"])
	assert.Equal(t, float64(1), body["total"])
	assert.Contains(t, body, "last_sync_log")
	assert.NotContains(t, body, "counts")
}

func TestRetryOrderOnlyFromError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()
	f.configureLoyverse(t, tenantID)
	f.pos.reject.Store("UE-RETRY")

	order := f.insertOrder(t, tenantID, "UE-RETRY", base)
	_, err := f.svc.RetryOrder(ctx, tenantID, order.ID)
	assert.ErrorIs(t, err, orderdomain.ErrInvalidTransition)

	_, err = f.svc.SyncPendingOrders(ctx, tenantID)
	require.NoError(t, err)
	require.Equal(t, orderdomain.StatusError, f.order(t, tenantID, order.ID).Status)

	f.pos.reject.Store("")
	retried, err := f.svc.RetryOrder(ctx, tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusSynced, retried.Status)
	assert.Empty(t, retried.ErrorMessage)
	require.NotNil(t, retried.LoyverseReceiptID)

	_, err = f.svc.RetryOrder(ctx, tenantID, order.ID)
	assert.ErrorIs(t, err, orderdomain.ErrInvalidTransition)

	_, err = f.svc.RetryOrder(ctx, tenantID, f.node.Generate())
	assert.ErrorIs(t, err, orderdomain.ErrNotFound)
}

func TestRetryOrderKeepsResetWhenConfigMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()

	order := f.insertOrder(t, tenantID, "UE-1", base)
	require.NoError(t, f.db.Exec(
		`UPDATE orders SET status = ?, error_message = ? WHERE id = ?`,
		orderdomain.StatusError, "boom", order.ID,
	).Error)

	_, err := f.svc.RetryOrder(ctx, tenantID, order.ID)
	assert.ErrorIs(t, err, integration.ErrConfigMissing)

	reset := f.order(t, tenantID, order.ID)
	assert.Equal(t, orderdomain.StatusPending, reset.Status)
	assert.Empty(t, reset.ErrorMessage)
}

func TestIngestNewOrdersIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()
	f.configureUber(t, tenantID)
	f.adapter.raws = []aggregatordomain.RawOrder{
		rawOrder("UE-1", "12.50"),
		rawOrder("UE-2", "8.00"),
		rawOrder("UE-3", ""),
	}

	first, err := f.svc.IngestNewOrders(ctx, tenantID, "Uber")
	require.NoError(t, err)
	assert.Equal(t, 3, first.TotalOrders)
	assert.Equal(t, 2, first.NewOrders)
	require.Len(t, first.Errors, 1)
	assert.Equal(t, "UE-3", first.Errors[0].OrderID)
	assert.Equal(t, "total missing", first.Errors[0].Error)

	second, err := f.svc.IngestNewOrders(ctx, tenantID, "uber")
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewOrders)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, second.Errors, 1)

	assert.Equal(t, 1, f.adapter.tokenCalls, "cached token must be reused")
	assert.Equal(t, []string{"tok-1", "tok-1"}, f.adapter.fetchTokens)
	assert.Equal(t, tenantID, f.adapter.cfg.TenantID)
	assert.Equal(t, "store-1", f.adapter.cfg.StoreID)
	assert.Equal(t, "secret-1", f.adapter.cfg.Field(credentialdomain.FieldClientSecret))

	counts, err := f.orders.CountByStatus(ctx, f.db, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Pending)

	exists, err := f.orders.Exists(ctx, f.db, "uber", "UE-1")
	require.NoError(t, err)
	assert.True(t, exists)

	summary, err := f.creds.Get(ctx, tenantID, "uber")
	require.NoError(t, err)
	assert.NotNil(t, summary.LastSync)
}

func TestIngestNewOrdersValidatesProvider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()

	_, err := f.svc.IngestNewOrders(ctx, tenantID, "loyverse")
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)

	_, err = f.svc.IngestNewOrders(ctx, tenantID, "uber")
	assert.ErrorIs(t, err, integration.ErrConfigMissing)
	assert.Equal(t, 0, f.adapter.tokenCalls)
}

func TestIngestNewOrdersSurfacesAuthError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()
	f.configureUber(t, tenantID)
	f.adapter.tokenErr = &integration.AuthError{Provider: integration.ProviderUber, Message: "invalid_client"}

	_, err := f.svc.IngestNewOrders(ctx, tenantID, "uber")
	require.Error(t, err)
	assert.True(t, integration.IsAuth(err))
	assert.Equal(t, "invalid_client", err.Error())
}

func TestFullSyncIngestsThenPushes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()
	f.configureUber(t, tenantID)
	f.configureLoyverse(t, tenantID)
	f.adapter.raws = []aggregatordomain.RawOrder{rawOrder("UE-9", "20.00")}

	result, err := f.svc.FullSync(ctx, tenantID, "uber")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Ingest.NewOrders)
	assert.Equal(t, 1, result.Sync.ItemsSuccess)
	assert.Equal(t, synclogdomain.StatusSuccess, result.Sync.Status)

	counts, err := f.orders.CountByStatus(ctx, f.db, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Synced)
}

func TestTestConnectionActivatesAggregator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()
	f.configureUber(t, tenantID)

	f.adapter.probe = aggregatordomain.TestResult{Success: false, Message: "store not found"}
	res, err := f.svc.TestConnection(ctx, tenantID, "uber")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "store not found", res.Message)
	summary, err := f.creds.Get(ctx, tenantID, "uber")
	require.NoError(t, err)
	assert.False(t, summary.IsActive)

	f.adapter.probe = aggregatordomain.TestResult{Success: true, Message: "Connected to Uber Eats"}
	res, err = f.svc.TestConnection(ctx, tenantID, "uber")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "uber", res.Provider)
	summary, err = f.creds.Get(ctx, tenantID, "uber")
	require.NoError(t, err)
	assert.True(t, summary.IsActive)
}

func TestTestConnectionLoyverseListsStores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()

	_, err := f.svc.TestConnection(ctx, tenantID, "loyverse")
	assert.ErrorIs(t, err, integration.ErrConfigMissing)

	f.configureLoyverse(t, tenantID)
	res, err := f.svc.TestConnection(ctx, tenantID, "loyverse")
	require.NoError(t, err)
	assert.True(t, res.Success)
	stores, ok := res.Detail.([]loyverse.Store)
	require.True(t, ok)
	require.Len(t, stores, 1)
	assert.Equal(t, "lv-store", stores[0].ID)

	_, err = f.svc.TestConnection(ctx, tenantID, "glovo")
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)
}

func TestListCatalogUsesPOSCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()

	_, err := f.svc.ListCatalog(ctx, tenantID, domain.CatalogPaymentTypes, nil)
	assert.ErrorIs(t, err, integration.ErrConfigMissing)

	_, err = f.svc.ListCatalog(ctx, tenantID, domain.Catalog("discounts"), nil)
	assert.ErrorIs(t, err, domain.ErrUnknownCatalog)

	f.configureLoyverse(t, tenantID)
	got, err := f.svc.ListCatalog(ctx, tenantID, domain.CatalogPaymentTypes, nil)
	require.NoError(t, err)
	types, ok := got.([]loyverse.PaymentType)
	require.True(t, ok)
	require.Len(t, types, 1)
	assert.Equal(t, "pt-cash", types[0].ID)

	got, err = f.svc.ListCatalog(ctx, tenantID, domain.CatalogItems, url.Values{"limit": {"10"}})
	require.NoError(t, err)
	items, ok := got.([]loyverse.Item)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "Burger", items[0].ItemName)
}

func TestSimulateOrderStoresPendingUberOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenantID := f.node.Generate()

	order, err := f.svc.SimulateOrder(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "uber", order.AggregatorType)
	assert.True(t, strings.HasPrefix(order.AggregatorOrderID, "UBER-SIM-"))
	assert.Equal(t, orderdomain.StatusPending, order.Status)

	stored := f.order(t, tenantID, order.ID)
	canonical, err := stored.Canonical()
	require.NoError(t, err)
	assert.Equal(t, order.AggregatorOrderID, canonical.OrderNumber)
	assert.NotEmpty(t, canonical.Items)
}

func TestOperationsRequireTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SyncPendingOrders(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
	_, err = f.svc.IngestNewOrders(ctx, 0, "uber")
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
	_, err = f.svc.GetSyncStatus(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
	_, err = f.svc.SimulateOrder(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
}

type fakePOS struct {
	srv      *httptest.Server
	reject   atomic.Value
	receipts atomic.Int32
}

func newFakePOS(t *testing.T) *fakePOS {
	t.Helper()
	pos := &fakePOS{}
	pos.reject.Store("")
	pos.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer lv-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/receipts":
			var body struct {
				StoreID string `json:"store_id"`
				Note    string `json:"note"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "lv-store", body.StoreID)
			pos.receipts.Add(1)
			if reject := pos.reject.Load().(string); reject != "" && strings.Contains(body.Note, reject) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"errors":[{"code":"BAD_REQUEST","details":"Payment type not found"}]}`))
				return
			}
			n := pos.receipts.Load()
			_, _ = fmt.Fprintf(w, `{"receipt_number":"1-%04d","receipt_type":"SALE"}`, n)
		case r.Method == http.MethodGet && r.URL.Path == "/stores":
			_, _ = w.Write([]byte(`{"stores":[{"id":"lv-store","name":"Main"}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/payment_types":
			_, _ = w.Write([]byte(`{"payment_types":[{"id":"pt-cash","name":"Cash","type":"CASH"}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/items":
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"items":[{"id":"it-1","item_name":"Burger"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(pos.srv.Close)
	return pos
}

type fakeFactory struct {
	adapter *fakeAdapter
}

func (f *fakeFactory) Provider() integration.Provider { return integration.ProviderUber }

func (f *fakeFactory) NewAdapter(cfg aggregatordomain.AdapterConfig) (aggregatordomain.Adapter, error) {
	f.adapter.cfg = cfg
	return f.adapter, nil
}

type fakeAdapter struct {
	cfg         aggregatordomain.AdapterConfig
	raws        []aggregatordomain.RawOrder
	tokenErr    error
	tokenCalls  int
	fetchTokens []string
	probe       aggregatordomain.TestResult
}

func (a *fakeAdapter) Provider() integration.Provider { return integration.ProviderUber }

func (a *fakeAdapter) AcquireAccessToken(ctx context.Context) (aggregatordomain.Token, error) {
	if a.tokenErr != nil {
		return aggregatordomain.Token{}, a.tokenErr
	}
	a.tokenCalls++
	return aggregatordomain.Token{
		AccessToken: fmt.Sprintf("tok-%d", a.tokenCalls),
		ExpiresAt:   base.Add(time.Hour),
	}, nil
}

func (a *fakeAdapter) FetchOrders(ctx context.Context, token aggregatordomain.Token, window aggregatordomain.Window) ([]aggregatordomain.RawOrder, error) {
	a.fetchTokens = append(a.fetchTokens, token.AccessToken)
	return a.raws, nil
}

func (a *fakeAdapter) TransformOrder(raw aggregatordomain.RawOrder) (orderdomain.CanonicalOrder, error) {
	var payload struct {
		Total string `json:"total"`
	}
	if err := json.Unmarshal(raw.Payload, &payload); err != nil {
		return orderdomain.CanonicalOrder{}, err
	}
	if payload.Total == "" {
		return orderdomain.CanonicalOrder{}, errors.New("total missing")
	}
	order := canonicalOrder(raw.ExternalID)
	order.Total = decimal.RequireFromString(payload.Total)
	return order, nil
}

func (a *fakeAdapter) TestConnection(ctx context.Context) aggregatordomain.TestResult {
	return a.probe
}

func rawOrder(id, total string) aggregatordomain.RawOrder {
	payload, _ := json.Marshal(map[string]string{"id": id, "total": total})
	return aggregatordomain.RawOrder{ExternalID: id, Payload: payload}
}

func canonicalOrder(number string) orderdomain.CanonicalOrder {
	return orderdomain.CanonicalOrder{
		OrderNumber: number,
		Customer:    orderdomain.Customer{Name: "Ana Perez"},
		Items: []orderdomain.Item{
			{Name: "Burger", Quantity: 1, Price: decimal.NewFromInt(10), Modifiers: []orderdomain.Modifier{}},
		},
		Subtotal:      decimal.NewFromInt(10),
		Tax:           decimal.Zero,
		DeliveryFee:   decimal.Zero,
		Total:         decimal.NewFromInt(10),
		PaymentMethod: "CARD",
		OrderTime:     base,
	}
}

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	svc      domain.Service
	creds    credentialdomain.Service
	synclogs synclogdomain.Service
	orders   orderdomain.Repository
	adapter  *fakeAdapter
	pos      *fakePOS
	locker   *lock.LocalLocker
	registry *prometheus.Registry
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T, opts ...func(*service.Params)) *fixture {
	t.Helper()

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	db := setupTestDB(t)
	fake := clock.NewFakeClock(base.Add(10 * time.Minute))
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)
	pos := newFakePOS(t)
	registry := prometheus.NewRegistry()
	locker := lock.NewLocalLocker()
	adapter := &fakeAdapter{}

	integrations := config.IntegrationsConfig{
		Loyverse: config.Endpoint{BaseURL: pos.srv.URL, Timeout: 5 * time.Second},
		Sync: config.SyncConfig{
			BatchSize:   50,
			FetchWindow: 24 * time.Hour,
			ClaimTTL:    5 * time.Minute,
			LockTTL:     2 * time.Minute,
		},
	}

	creds := credentialservice.New(credentialservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  credentialrepo.Provide(),
		Codec: secretbox.NewCodec("sync-test-key", zap.NewNop()),
		Clock: fake,
	})
	synclogs := synclogservice.New(synclogservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  synclogrepo.Provide(),
	})
	orders := orderrepo.Provide()

	params := service.Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Clock:         fake,
		Cfg:           config.Config{DefaultPhoneRegion: "EC"},
		Integrations:  integrations,
		OrderRepo:     orders,
		SyncLogSvc:    synclogs,
		CredentialSvc: creds,
		Adapters:      adapters.NewRegistry(&fakeFactory{adapter: adapter}),
		POS:           loyverse.NewFactory(integrations),
		Locker:        locker,
		Metrics:       metrics.NewSyncMetricsForTest(registry),
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc := service.New(params)

	return &fixture{
		db:       db,
		node:     node,
		clock:    fake,
		svc:      svc,
		creds:    creds,
		synclogs: synclogs,
		orders:   orders,
		adapter:  adapter,
		pos:      pos,
		locker:   locker,
		registry: registry,
		logs:     logs,
	}
}

func (f *fixture) configureLoyverse(t *testing.T, tenantID snowflake.ID) {
	t.Helper()
	_, err := f.creds.Configure(context.Background(), credentialdomain.ConfigureRequest{
		TenantID: tenantID,
		Provider: "loyverse",
		Credentials: map[string]string{
			credentialdomain.FieldStoreID:     "lv-store",
			credentialdomain.FieldAccessToken: "lv-token",
		},
	})
	require.NoError(t, err)
}

func (f *fixture) configureUber(t *testing.T, tenantID snowflake.ID) {
	t.Helper()
	_, err := f.creds.Configure(context.Background(), credentialdomain.ConfigureRequest{
		TenantID: tenantID,
		Provider: "uber",
		Credentials: map[string]string{
			credentialdomain.FieldStoreID:      "store-1",
			credentialdomain.FieldClientID:     "client-1",
			credentialdomain.FieldClientSecret: "secret-1",
		},
	})
	require.NoError(t, err)
}

func (f *fixture) insertOrder(t *testing.T, tenantID snowflake.ID, externalID string, createdAt time.Time) *orderdomain.Order {
	t.Helper()
	data, err := json.Marshal(canonicalOrder(externalID))
	require.NoError(t, err)
	order := &orderdomain.Order{
		ID:                f.node.Generate(),
		TenantID:          tenantID,
		AggregatorType:    "uber",
		AggregatorOrderID: externalID,
		Status:            orderdomain.StatusPending,
		OrderData:         datatypes.JSON(data),
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
	inserted, err := f.orders.InsertIfAbsent(context.Background(), f.db, order)
	require.NoError(t, err)
	require.True(t, inserted)
	return order
}

func (f *fixture) order(t *testing.T, tenantID, id snowflake.ID) *orderdomain.Order {
	t.Helper()
	order, err := f.orders.FindByID(context.Background(), f.db, tenantID, id)
	require.NoError(t, err)
	require.NotNil(t, order)
	return order
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:sync_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE orders (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			aggregator_type TEXT NOT NULL,
			aggregator_order_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			order_data TEXT NOT NULL,
			loyverse_receipt_id TEXT,
			sync_attempts INTEGER NOT NULL DEFAULT 0,
			last_sync_attempt DATETIME,
			error_message TEXT NOT NULL DEFAULT '',
			claim_token TEXT,
			claimed_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_orders_aggregator_order ON orders(aggregator_type, aggregator_order_id)`,
		`CREATE TABLE credential_configs (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			provider TEXT NOT NULL,
			store_id TEXT NOT NULL DEFAULT '',
			credentials TEXT NOT NULL,
			settings TEXT NOT NULL,
			payment_mappings TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			last_sync DATETIME,
			access_token TEXT NOT NULL DEFAULT '',
			token_expiry DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_credential_configs_tenant_provider ON credential_configs(tenant_id, provider)`,
		`CREATE TABLE sync_logs (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			sync_type TEXT NOT NULL,
			aggregator_type TEXT NOT NULL,
			status TEXT NOT NULL,
			items_processed INTEGER NOT NULL DEFAULT 0,
			items_success INTEGER NOT NULL DEFAULT 0,
			items_failed INTEGER NOT NULL DEFAULT 0,
			details TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
