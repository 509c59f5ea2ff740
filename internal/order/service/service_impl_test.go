package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/ordersync/internal/order/domain"
	"github.com/smallbiznis/ordersync/internal/order/repository"
	"github.com/smallbiznis/ordersync/internal/order/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestInsertIfAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	repo := repository.Provide()
	tenantID := node.Generate()

	first := newOrder(node, tenantID, "uber", "UE-1", base)
	inserted, err := repo.InsertIfAbsent(ctx, db, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := newOrder(node, tenantID, "uber", "UE-1", base.Add(time.Minute))
	inserted, err = repo.InsertIfAbsent(ctx, db, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	// Same external id from another aggregator is a different order.
	other := newOrder(node, tenantID, "rappi", "UE-1", base)
	inserted, err = repo.InsertIfAbsent(ctx, db, other)
	require.NoError(t, err)
	assert.True(t, inserted)

	exists, err := repo.Exists(ctx, db, "uber", "UE-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, db, "pedidosya", "UE-1")
	require.NoError(t, err)
	assert.False(t, exists)

	counts, err := repo.CountByStatus(ctx, db, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Pending)
	assert.Equal(t, int64(2), counts.Total)
}

func TestClaimAndMarkRequireToken(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	repo := repository.Provide()
	tenantID := node.Generate()

	order := newOrder(node, tenantID, "uber", "UE-2", base)
	_, err := repo.InsertIfAbsent(ctx, db, order)
	require.NoError(t, err)

	now := base.Add(time.Minute)
	stale := now.Add(-5 * time.Minute)

	ok, err := repo.Claim(ctx, db, tenantID, order.ID, "token-a", now, stale)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Claim(ctx, db, tenantID, order.ID, "token-b", now, stale)
	require.NoError(t, err)
	assert.False(t, ok, "live claim must not be stolen")

	pending, err := repo.ListPending(ctx, db, tenantID, stale, 50)
	require.NoError(t, err)
	assert.Empty(t, pending, "claimed order is hidden until its lease expires")

	ok, err = repo.MarkSynced(ctx, db, tenantID, order.ID, "token-b", "R-1", now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.MarkSynced(ctx, db, tenantID, order.ID, "token-a", "R-1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := repo.FindByID(ctx, db, tenantID, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusSynced, stored.Status)
	require.NotNil(t, stored.LoyverseReceiptID)
	assert.Equal(t, "R-1", *stored.LoyverseReceiptID)
	assert.Nil(t, stored.ClaimToken)
	assert.NotNil(t, stored.LastSyncAttempt)
}

func TestStaleClaimIsReclaimable(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	repo := repository.Provide()
	tenantID := node.Generate()

	order := newOrder(node, tenantID, "rappi", "RP-1", base)
	_, err := repo.InsertIfAbsent(ctx, db, order)
	require.NoError(t, err)

	ok, err := repo.Claim(ctx, db, tenantID, order.ID, "crashed", base, base.Add(-5*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	later := base.Add(10 * time.Minute)
	pending, err := repo.ListPending(ctx, db, tenantID, later.Add(-5*time.Minute), 50)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	ok, err = repo.Claim(ctx, db, tenantID, order.ID, "fresh", later, later.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMarkErrorAndReset(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	repo := repository.Provide()
	tenantID := node.Generate()

	order := newOrder(node, tenantID, "pedidosya", "PY-1", base)
	_, err := repo.InsertIfAbsent(ctx, db, order)
	require.NoError(t, err)

	ok, err := repo.ResetToPending(ctx, db, tenantID, order.ID, base)
	require.NoError(t, err)
	assert.False(t, ok, "pending order cannot be reset")

	_, err = repo.Claim(ctx, db, tenantID, order.ID, "t1", base, base.Add(-time.Minute))
	require.NoError(t, err)
	ok, err = repo.MarkError(ctx, db, tenantID, order.ID, "t1", "Invalid payment type", base)
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := repo.FindByID(ctx, db, tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, stored.Status)
	assert.Equal(t, 1, stored.SyncAttempts)
	assert.Equal(t, "Invalid payment type", stored.ErrorMessage)

	pending, err := repo.ListPending(ctx, db, tenantID, base, 50)
	require.NoError(t, err)
	assert.Empty(t, pending, "error orders are never picked up automatically")

	ok, err = repo.ResetToPending(ctx, db, tenantID, order.ID, base.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	stored, err = repo.FindByID(ctx, db, tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Empty(t, stored.ErrorMessage)
	assert.Equal(t, 1, stored.SyncAttempts)
}

func TestRepositoryIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	repo := repository.Provide()
	tenantA := node.Generate()
	tenantB := node.Generate()

	order := newOrder(node, tenantA, "uber", "UE-9", base)
	_, err := repo.InsertIfAbsent(ctx, db, order)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, db, tenantB, order.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	pending, err := repo.ListPending(ctx, db, tenantB, base, 50)
	require.NoError(t, err)
	assert.Empty(t, pending)

	ok, err := repo.Claim(ctx, db, tenantB, order.ID, "x", base, base)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListPendingOrdersOldestFirst(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	repo := repository.Provide()
	tenantID := node.Generate()

	for i, id := range []string{"C", "A", "B"} {
		offset := map[string]time.Duration{"A": 0, "B": time.Minute, "C": 2 * time.Minute}[id]
		_, err := repo.InsertIfAbsent(ctx, db, newOrder(node, tenantID, "uber", fmt.Sprintf("%s-%d", id, i), base.Add(offset)))
		require.NoError(t, err)
	}

	pending, err := repo.ListPending(ctx, db, tenantID, base, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "A-1", pending[0].AggregatorOrderID)
	assert.Equal(t, "B-2", pending[1].AggregatorOrderID)
}

func TestServiceListPaginates(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	repo := repository.Provide()
	svc := service.New(service.Params{DB: db, Log: zap.NewNop(), Repo: repo})
	tenantID := node.Generate()

	for i := 0; i < 3; i++ {
		_, err := repo.InsertIfAbsent(ctx, db, newOrder(node, tenantID, "uber", fmt.Sprintf("UE-%d", i), base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, tenantID, domain.ListOrderRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "UE-2", page.Orders[0].AggregatorOrderID)

	next, err := svc.List(ctx, tenantID, domain.ListOrderRequest{PageSize: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, next.Orders, 1)
	assert.False(t, next.HasMore)
	assert.Equal(t, "UE-0", next.Orders[0].AggregatorOrderID)

	_, err = svc.List(ctx, tenantID, domain.ListOrderRequest{Status: "shipped"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestServiceGet(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	repo := repository.Provide()
	svc := service.New(service.Params{DB: db, Log: zap.NewNop(), Repo: repo})
	tenantID := node.Generate()

	order := newOrder(node, tenantID, "uber", "UE-7", base)
	_, err := repo.InsertIfAbsent(ctx, db, order)
	require.NoError(t, err)

	got, err := svc.Get(ctx, tenantID, order.ID)
	require.NoError(t, err)
	canonical, err := got.Canonical()
	require.NoError(t, err)
	assert.Equal(t, "UE-7", canonical.OrderNumber)

	_, err = svc.Get(ctx, node.Generate(), order.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, 0, order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
}

func newNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func newOrder(node *snowflake.Node, tenantID snowflake.ID, aggregator, externalID string, createdAt time.Time) *domain.Order {
	return &domain.Order{
		ID:                node.Generate(),
		TenantID:          tenantID,
		AggregatorType:    aggregator,
		AggregatorOrderID: externalID,
		Status:            domain.StatusPending,
		OrderData:         datatypes.JSON(fmt.Sprintf(`{"order_number":%q,"payment_method":"CASH","order_time":"2026-03-01T12:00:00Z"}`, externalID)),
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:orders_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
