package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/ordersync/internal/aggregator/adapters"
	"github.com/smallbiznis/ordersync/internal/aggregator/adapters/uber"
	aggregatordomain "github.com/smallbiznis/ordersync/internal/aggregator/domain"
	"github.com/smallbiznis/ordersync/internal/clock"
	"github.com/smallbiznis/ordersync/internal/config"
	credentialdomain "github.com/smallbiznis/ordersync/internal/credential/domain"
	"github.com/smallbiznis/ordersync/internal/lock"
	"github.com/smallbiznis/ordersync/internal/observability/metrics"
	"github.com/smallbiznis/ordersync/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	"github.com/smallbiznis/ordersync/internal/pos/loyverse"
	"github.com/smallbiznis/ordersync/internal/sync/domain"
	synclogdomain "github.com/smallbiznis/ordersync/internal/synclog/domain"
	"github.com/smallbiznis/ordersync/pkg/integration"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("ordersync/sync")

const markSyncedAttempts = 2

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Cfg           config.Config
	Integrations  config.IntegrationsConfig
	OrderRepo     orderdomain.Repository
	SyncLogSvc    synclogdomain.Service
	CredentialSvc credentialdomain.Service
	Adapters      *adapters.Registry
	POS           *loyverse.Factory
	Locker        lock.Locker
	Metrics       *metrics.SyncMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	phoneRegion  string
	integrations config.IntegrationsConfig
	orders       orderdomain.Repository
	synclogs     synclogdomain.Service
	credentials  credentialdomain.Service
	adapters     *adapters.Registry
	pos          *loyverse.Factory
	locker       lock.Locker
	metrics      *metrics.SyncMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("sync.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		phoneRegion:  p.Cfg.DefaultPhoneRegion,
		integrations: p.Integrations,
		orders:       p.OrderRepo,
		synclogs:     p.SyncLogSvc,
		credentials:  p.CredentialSvc,
		adapters:     p.Adapters,
		pos:          p.POS,
		locker:       p.Locker,
		metrics:      p.Metrics,
	}
}

// SyncPendingOrders pushes the tenant's pending orders to the POS one at a
// time and writes exactly one SyncLog for the run.
func (s *Service) SyncPendingOrders(ctx context.Context, tenantID snowflake.ID) (domain.RunSummary, error) {
	if tenantID == 0 {
		return domain.RunSummary{}, domain.ErrInvalidTenant
	}

	ctx, span := tracer.Start(ctx, "sync.SyncPendingOrders", trace.WithAttributes(
		attribute.String("tenant_id", tenantID.String()),
	))
	defer span.End()

	lease, err := s.acquire(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			summary, recErr := s.recordAborted(ctx, tenantID, s.clock.Now(), err)
			if recErr != nil {
				err = recErr
			}
			markSpan(span, err)
			return summary, err
		}
		markSpan(span, err)
		return domain.RunSummary{}, err
	}
	defer lease.release()

	summary, err := s.syncPending(ctx, tenantID, lease)
	span.SetAttributes(
		attribute.String("sync.status", string(summary.Status)),
		attribute.Int("sync.items_processed", summary.ItemsProcessed),
		attribute.Int("sync.items_failed", summary.ItemsFailed),
	)
	if err != nil {
		markSpan(span, err)
	}
	return summary, err
}

func (s *Service) syncPending(ctx context.Context, tenantID snowflake.ID, lease *syncLease) (domain.RunSummary, error) {
	start := s.clock.Now()

	creds, err := s.credentials.Load(ctx, tenantID, integration.ProviderLoyverse)
	if err != nil {
		if !errors.Is(err, integration.ErrConfigMissing) {
			return domain.RunSummary{}, err
		}
		summary, recErr := s.recordAborted(ctx, tenantID, start, err)
		if recErr != nil {
			return summary, recErr
		}
		return summary, err
	}

	staleBefore := start.Add(-s.claimTTL())
	pending, err := s.orders.ListPending(ctx, s.db, tenantID, staleBefore, s.batchSize())
	if err != nil {
		return domain.RunSummary{}, err
	}

	client := s.pos.NewClient(creds.Field(credentialdomain.FieldAccessToken))
	settings := receiptSettings(creds)

	var (
		aggregatorType string
		success        int
		failed         int
		entries        = []synclogdomain.ErrorEntry{}
	)
	for _, order := range pending {
		if order == nil {
			continue
		}
		processed, syncErr := s.syncOrder(ctx, client, settings, order, staleBefore)
		lease.refresh(ctx)
		if !processed {
			continue
		}
		if aggregatorType == "" {
			aggregatorType = order.AggregatorType
		}
		if syncErr != nil {
			failed++
			entries = append(entries, synclogdomain.ErrorEntry{
				ItemID: order.AggregatorOrderID,
				Error:  syncErr.Error(),
			})
			s.metrics.IncOrder(order.AggregatorType, metrics.OutcomeError)
			continue
		}
		success++
		s.metrics.IncOrder(order.AggregatorType, metrics.OutcomeSynced)
	}
	if aggregatorType == "" {
		aggregatorType = integration.ProviderLoyverse.String()
	}

	summary, err := s.record(ctx, synclogdomain.RecordRequest{
		TenantID:       tenantID,
		AggregatorType: aggregatorType,
		ItemsProcessed: success + failed,
		ItemsSuccess:   success,
		ItemsFailed:    failed,
		StartTime:      start,
		EndTime:        s.clock.Now(),
		Errors:         entries,
	})
	if err != nil {
		return summary, err
	}

	s.log.Info("sync run finished",
		zap.String("tenant_id", tenantID.String()),
		zap.String("status", string(summary.Status)),
		zap.Int("items_processed", summary.ItemsProcessed),
		zap.Int("items_failed", summary.ItemsFailed),
	)
	return summary, nil
}

// syncOrder claims one order and pushes it to the POS. processed is false
// when another run owns the order; err carries the text stored on the order.
func (s *Service) syncOrder(ctx context.Context, client *loyverse.Client, settings loyverse.ReceiptSettings, order *orderdomain.Order, staleBefore time.Time) (bool, error) {
	token := uuid.NewString()
	claimed, err := s.orders.Claim(ctx, s.db, order.TenantID, order.ID, token, s.clock.Now(), staleBefore)
	if err != nil {
		s.log.Warn("claim order failed", zap.String("order_id", order.ID.String()), zap.Error(err))
		return false, nil
	}
	if !claimed {
		return false, nil
	}

	syncErr := s.pushReceipt(ctx, client, settings, order, token)
	if syncErr == nil {
		return true, nil
	}

	marked, err := s.orders.MarkError(ctx, s.db, order.TenantID, order.ID, token, syncErr.Error(), s.clock.Now())
	if err != nil {
		s.log.Error("mark order error failed", zap.String("order_id", order.ID.String()), zap.Error(err))
	} else if !marked {
		s.log.Warn("claim lost before marking error", zap.String("order_id", order.ID.String()))
	}
	return true, syncErr
}

func (s *Service) pushReceipt(ctx context.Context, client *loyverse.Client, settings loyverse.ReceiptSettings, order *orderdomain.Order, token string) error {
	canonical, err := order.Canonical()
	if err != nil {
		return fmt.Errorf("decode order data: %w", err)
	}

	started := time.Now()
	result, err := client.CreateReceipt(ctx, canonical, settings)
	s.metrics.ObserveUpstream(integration.ProviderLoyverse.String(), "create_receipt", time.Since(started))
	if err != nil {
		return err
	}

	marked, err := s.markSynced(ctx, order, token, result.ReceiptNumber)
	if err != nil {
		s.log.Error("mark order synced failed",
			zap.String("order_id", order.ID.String()),
			zap.String("receipt_number", result.ReceiptNumber),
			zap.Error(err),
		)
		// The receipt exists. Parking the order in error keeps stale claim
		// recovery from posting it a second time.
		return fmt.Errorf("receipt %s created but not recorded: %w", result.ReceiptNumber, err)
	}
	if !marked {
		s.log.Warn("claim lost after receipt creation",
			zap.String("order_id", order.ID.String()),
			zap.String("receipt_number", result.ReceiptNumber),
		)
	}
	return nil
}

// markSynced retries the status write once; the receipt is already posted.
func (s *Service) markSynced(ctx context.Context, order *orderdomain.Order, token, receiptNumber string) (bool, error) {
	ctx = context.WithoutCancel(ctx)
	var (
		marked bool
		err    error
	)
	for attempt := 0; attempt < markSyncedAttempts; attempt++ {
		marked, err = s.orders.MarkSynced(ctx, s.db, order.TenantID, order.ID, token, receiptNumber, s.clock.Now())
		if err == nil {
			return marked, nil
		}
	}
	return false, err
}

// IngestNewOrders pulls the provider's recent orders and stores the unseen
// ones as pending. Orders that fail to transform are reported, not stored.
func (s *Service) IngestNewOrders(ctx context.Context, tenantID snowflake.ID, provider string) (domain.IngestResult, error) {
	if tenantID == 0 {
		return domain.IngestResult{}, domain.ErrInvalidTenant
	}
	p, err := integration.ParseAggregator(provider)
	if err != nil {
		return domain.IngestResult{}, domain.ErrInvalidProvider
	}

	ctx, span := tracer.Start(ctx, "sync.IngestNewOrders", trace.WithAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("provider", p.String()),
	))
	defer span.End()

	result, err := s.ingest(ctx, tenantID, p)
	span.SetAttributes(
		attribute.Int("ingest.total_orders", result.TotalOrders),
		attribute.Int("ingest.new_orders", result.NewOrders),
	)
	if err != nil {
		markSpan(span, err)
	}
	return result, err
}

func (s *Service) ingest(ctx context.Context, tenantID snowflake.ID, provider integration.Provider) (domain.IngestResult, error) {
	creds, adapter, err := s.adapterFor(ctx, tenantID, provider)
	if err != nil {
		return domain.IngestResult{}, err
	}

	now := s.clock.Now()
	token, err := s.accessToken(ctx, creds, adapter, now)
	if err != nil {
		return domain.IngestResult{}, err
	}

	started := time.Now()
	raws, err := adapter.FetchOrders(ctx, token, aggregatordomain.DefaultWindow(now, s.integrations.Sync.FetchWindow))
	s.metrics.ObserveUpstream(provider.String(), "fetch_orders", time.Since(started))
	if err != nil {
		return domain.IngestResult{}, err
	}

	result := domain.IngestResult{
		TotalOrders: len(raws),
		Errors:      []domain.IngestError{},
	}
	for _, raw := range raws {
		externalID := strings.TrimSpace(raw.ExternalID)
		if externalID == "" {
			result.Errors = append(result.Errors, domain.IngestError{Error: "order id missing"})
			continue
		}

		exists, err := s.orders.Exists(ctx, s.db, provider.String(), externalID)
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped++
			continue
		}

		canonical, err := adapter.TransformOrder(raw)
		if err != nil {
			result.Errors = append(result.Errors, domain.IngestError{OrderID: externalID, Error: err.Error()})
			continue
		}

		inserted, err := s.insertPending(ctx, tenantID, provider, externalID, canonical)
		if err != nil {
			return result, err
		}
		if inserted {
			result.NewOrders++
		} else {
			result.Skipped++
		}
	}

	s.metrics.AddIngested(provider.String(), metrics.OutcomeNew, result.NewOrders)
	s.metrics.AddIngested(provider.String(), metrics.OutcomeSkipped, result.Skipped)
	s.metrics.AddIngested(provider.String(), metrics.OutcomeInvalid, len(result.Errors))

	if err := s.credentials.MarkSynced(ctx, tenantID, provider, s.clock.Now()); err != nil {
		s.log.Warn("update last sync failed", zap.String("provider", provider.String()), zap.Error(err))
	}

	s.log.Info("orders ingested",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", provider.String()),
		zap.Int("total_orders", result.TotalOrders),
		zap.Int("new_orders", result.NewOrders),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// FullSync ingests from provider and then pushes every pending order.
func (s *Service) FullSync(ctx context.Context, tenantID snowflake.ID, provider string) (domain.FullSyncResult, error) {
	ingested, err := s.IngestNewOrders(ctx, tenantID, provider)
	if err != nil {
		return domain.FullSyncResult{Ingest: ingested}, err
	}
	summary, err := s.SyncPendingOrders(ctx, tenantID)
	return domain.FullSyncResult{Ingest: ingested, Sync: summary}, err
}

// RetryOrder moves an errored order back to pending and runs a sync. The reset
// survives a failed run.
func (s *Service) RetryOrder(ctx context.Context, tenantID, orderID snowflake.ID) (*orderdomain.Order, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if orderID == 0 {
		return nil, orderdomain.ErrInvalidID
	}

	order, err := s.orders.FindByID(ctx, s.db, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, orderdomain.ErrNotFound
	}
	if order.Status != orderdomain.StatusError {
		return nil, orderdomain.ErrInvalidTransition
	}

	reset, err := s.orders.ResetToPending(ctx, s.db, tenantID, orderID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !reset {
		return nil, orderdomain.ErrInvalidTransition
	}

	if _, err := s.SyncPendingOrders(ctx, tenantID); err != nil && !errors.Is(err, domain.ErrSyncInProgress) {
		return nil, err
	}

	reloaded, err := s.orders.FindByID(ctx, s.db, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if reloaded == nil {
		return nil, orderdomain.ErrNotFound
	}
	return reloaded, nil
}

// TestConnection probes provider with the stored credentials. A successful
// aggregator probe activates its configuration.
func (s *Service) TestConnection(ctx context.Context, tenantID snowflake.ID, provider string) (domain.TestResult, error) {
	if tenantID == 0 {
		return domain.TestResult{}, domain.ErrInvalidTenant
	}
	p, err := integration.ParseProvider(provider)
	if err != nil {
		return domain.TestResult{}, domain.ErrInvalidProvider
	}

	ctx, span := tracer.Start(ctx, "sync.TestConnection", trace.WithAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("provider", p.String()),
	))
	defer span.End()

	if p == integration.ProviderLoyverse {
		creds, err := s.credentials.Load(ctx, tenantID, p)
		if err != nil {
			markSpan(span, err)
			return domain.TestResult{}, err
		}
		res := s.pos.NewClient(creds.Field(credentialdomain.FieldAccessToken)).TestConnection(ctx)
		return domain.TestResult{Provider: p.String(), Success: res.Success, Message: res.Message, Detail: res.Stores}, nil
	}

	_, adapter, err := s.adapterFor(ctx, tenantID, p)
	if err != nil {
		markSpan(span, err)
		return domain.TestResult{}, err
	}
	res := adapter.TestConnection(ctx)
	if res.Success {
		if err := s.credentials.SetActive(ctx, tenantID, p, true); err != nil {
			return domain.TestResult{}, err
		}
	}
	span.SetAttributes(attribute.Bool("test.success", res.Success))
	return domain.TestResult{Provider: p.String(), Success: res.Success, Message: res.Message, Detail: res.Detail}, nil
}

func (s *Service) GetSyncStatus(ctx context.Context, tenantID snowflake.ID) (domain.Status, error) {
	if tenantID == 0 {
		return domain.Status{}, domain.ErrInvalidTenant
	}
	counts, err := s.orders.CountByStatus(ctx, s.db, tenantID)
	if err != nil {
		return domain.Status{}, err
	}
	latest, err := s.synclogs.Latest(ctx, tenantID)
	if err != nil {
		return domain.Status{}, err
	}
	return domain.Status{StatusCounts: counts, LastSyncLog: latest}, nil
}

// ListCatalog reads one Loyverse listing with the tenant's POS credentials.
func (s *Service) ListCatalog(ctx context.Context, tenantID snowflake.ID, catalog domain.Catalog, query url.Values) (any, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if !catalog.Valid() {
		return nil, domain.ErrUnknownCatalog
	}

	ctx, span := tracer.Start(ctx, "sync.ListCatalog", trace.WithAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("catalog", string(catalog)),
	))
	defer span.End()

	creds, err := s.credentials.Load(ctx, tenantID, integration.ProviderLoyverse)
	if err != nil {
		markSpan(span, err)
		return nil, err
	}
	client := s.pos.NewClient(creds.Field(credentialdomain.FieldAccessToken))

	var result any
	started := time.Now()
	switch catalog {
	case domain.CatalogStores:
		result, err = client.ListStores(ctx)
	case domain.CatalogItems:
		result, err = client.ListItems(ctx, query)
	case domain.CatalogCategories:
		result, err = client.ListCategories(ctx)
	case domain.CatalogPaymentTypes:
		result, err = client.ListPaymentTypes(ctx)
	case domain.CatalogReceipts:
		result, err = client.ListReceipts(ctx, query)
	}
	s.metrics.ObserveUpstream(integration.ProviderLoyverse.String(), "list_"+string(catalog), time.Since(started))
	if err != nil {
		markSpan(span, err)
		return nil, err
	}
	return result, nil
}

// SimulateOrder stores a sample Uber Eats order as pending so the POS leg can
// be tried before any aggregator is connected.
func (s *Service) SimulateOrder(ctx context.Context, tenantID snowflake.ID) (*orderdomain.Order, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	raw := uber.SimulateOrder(s.clock.Now())
	canonical, err := uber.Transform(raw, s.phoneRegion)
	if err != nil {
		return nil, err
	}
	order, err := s.newOrder(tenantID, integration.ProviderUber, raw.ExternalID, canonical)
	if err != nil {
		return nil, err
	}
	inserted, err := s.orders.InsertIfAbsent(ctx, s.db, order)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, orderdomain.ErrInvalidOrder
	}
	return order, nil
}

func (s *Service) adapterFor(ctx context.Context, tenantID snowflake.ID, provider integration.Provider) (*credentialdomain.Credentials, aggregatordomain.Adapter, error) {
	creds, err := s.credentials.Load(ctx, tenantID, provider)
	if err != nil {
		return nil, nil, err
	}
	endpoint, _ := s.integrations.Endpoint(provider.String())
	adapter, err := s.adapters.NewAdapter(provider, aggregatordomain.AdapterConfig{
		TenantID:    tenantID,
		StoreID:     creds.StoreID,
		Fields:      creds.Fields,
		Endpoint:    endpoint,
		PhoneRegion: s.phoneRegion,
	})
	if err != nil {
		return nil, nil, err
	}
	return creds, adapter, nil
}

// accessToken reuses the stored token until it expires and stores newly
// acquired expiring tokens.
func (s *Service) accessToken(ctx context.Context, creds *credentialdomain.Credentials, adapter aggregatordomain.Adapter, now time.Time) (aggregatordomain.Token, error) {
	if cached, ok := creds.CachedToken(now); ok {
		return aggregatordomain.Token{AccessToken: cached, ExpiresAt: *creds.TokenExpiry}, nil
	}

	started := time.Now()
	token, err := adapter.AcquireAccessToken(ctx)
	s.metrics.ObserveUpstream(creds.Provider.String(), "acquire_token", time.Since(started))
	if err != nil {
		return aggregatordomain.Token{}, err
	}
	if token.Cacheable() {
		if err := s.credentials.StoreAccessToken(ctx, creds.TenantID, creds.Provider, token.AccessToken, token.ExpiresAt); err != nil {
			s.log.Warn("store access token failed", zap.String("provider", creds.Provider.String()), zap.Error(err))
		}
	}
	return token, nil
}

func (s *Service) insertPending(ctx context.Context, tenantID snowflake.ID, provider integration.Provider, externalID string, canonical orderdomain.CanonicalOrder) (bool, error) {
	order, err := s.newOrder(tenantID, provider, externalID, canonical)
	if err != nil {
		return false, err
	}
	return s.orders.InsertIfAbsent(ctx, s.db, order)
}

func (s *Service) newOrder(tenantID snowflake.ID, provider integration.Provider, externalID string, canonical orderdomain.CanonicalOrder) (*orderdomain.Order, error) {
	data, err := json.Marshal(canonical)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return &orderdomain.Order{
		ID:                s.genID.Generate(),
		TenantID:          tenantID,
		AggregatorType:    provider.String(),
		AggregatorOrderID: externalID,
		Status:            orderdomain.StatusPending,
		OrderData:         datatypes.JSON(data),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (s *Service) record(ctx context.Context, req synclogdomain.RecordRequest) (domain.RunSummary, error) {
	req.SyncType = synclogdomain.SyncTypeOrder
	entry, err := s.synclogs.Record(ctx, req)
	if err != nil {
		s.log.Error("record sync log failed", zap.String("tenant_id", req.TenantID.String()), zap.Error(err))
		return domain.RunSummary{}, err
	}
	s.metrics.ObserveRun(string(entry.Status), req.EndTime.Sub(req.StartTime))

	details := entry.Details.Data()
	errs := details.Errors
	if errs == nil {
		errs = []synclogdomain.ErrorEntry{}
	}
	return domain.RunSummary{
		SyncLogID:      entry.ID.String(),
		Status:         entry.Status,
		ItemsProcessed: entry.ItemsProcessed,
		ItemsSuccess:   entry.ItemsSuccess,
		ItemsFailed:    entry.ItemsFailed,
		Errors:         errs,
	}, nil
}

// syncLease is the per tenant run lock. A nil locker or a failed backend
// gives a lease whose methods do nothing.
type syncLease struct {
	svc   *Service
	key   string
	token string
}

// acquire takes the per tenant sync lock. A failing lock backend does not
// block the run; order claims still keep runs from double posting.
func (s *Service) acquire(ctx context.Context, tenantID snowflake.ID) (*syncLease, error) {
	if s.locker == nil {
		return &syncLease{}, nil
	}

	key := "sync:tenant:" + tenantID.String()
	token, ok, err := s.locker.TryLock(ctx, key, s.lockTTL())
	if err != nil {
		s.log.Warn("sync lock unavailable", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return &syncLease{}, nil
	}
	if !ok {
		s.metrics.IncLockContended()
		return nil, domain.ErrSyncInProgress
	}
	return &syncLease{svc: s, key: key, token: token}, nil
}

// refresh extends the lease between orders so long batches keep the lock.
func (l *syncLease) refresh(ctx context.Context) {
	if l == nil || l.svc == nil {
		return
	}
	ok, err := l.svc.locker.Refresh(ctx, l.key, l.token, l.svc.lockTTL())
	if err != nil {
		l.svc.log.Warn("sync lock refresh failed", zap.String("key", l.key), zap.Error(err))
		return
	}
	if !ok {
		l.svc.log.Warn("sync lock lost", zap.String("key", l.key))
	}
}

func (l *syncLease) release() {
	if l == nil || l.svc == nil {
		return
	}
	if err := l.svc.locker.Release(context.Background(), l.key, l.token); err != nil {
		l.svc.log.Warn("sync lock release failed", zap.String("key", l.key), zap.Error(err))
	}
}

// recordAborted writes the SyncLog of a run that stopped before any order
// was processed.
func (s *Service) recordAborted(ctx context.Context, tenantID snowflake.ID, start time.Time, cause error) (domain.RunSummary, error) {
	return s.record(ctx, synclogdomain.RecordRequest{
		TenantID:       tenantID,
		Status:         synclogdomain.StatusError,
		AggregatorType: integration.ProviderLoyverse.String(),
		StartTime:      start,
		EndTime:        s.clock.Now(),
		Errors: []synclogdomain.ErrorEntry{
			{ItemID: synclogdomain.GeneralItemID, Error: cause.Error()},
		},
	})
}

func (s *Service) batchSize() int {
	if s.integrations.Sync.BatchSize <= 0 {
		return 50
	}
	return s.integrations.Sync.BatchSize
}

func (s *Service) claimTTL() time.Duration {
	if s.integrations.Sync.ClaimTTL <= 0 {
		return 5 * time.Minute
	}
	return s.integrations.Sync.ClaimTTL
}

func (s *Service) lockTTL() time.Duration {
	if s.integrations.Sync.LockTTL <= 0 {
		return 2 * time.Minute
	}
	return s.integrations.Sync.LockTTL
}

func receiptSettings(creds *credentialdomain.Credentials) loyverse.ReceiptSettings {
	mappings := make([]loyverse.PaymentMapping, 0, len(creds.PaymentMappings))
	for _, m := range creds.PaymentMappings {
		mappings = append(mappings, loyverse.PaymentMapping{
			AggregatorPayment: m.AggregatorPayment,
			LoyversePayment:   m.LoyversePayment,
		})
	}
	return loyverse.ReceiptSettings{
		StoreID:            creds.StoreID,
		PosID:              creds.Field(credentialdomain.FieldPosID),
		EmployeeID:         creds.Settings.EmployeeID,
		DefaultPaymentType: creds.Settings.DefaultPaymentType,
		PaymentMappings:    mappings,
	}
}

func markSpan(span trace.Span, err error) {
	safe := tracing.SafeError(err)
	span.RecordError(safe)
	span.SetStatus(codes.Error, safe.Error())
}
