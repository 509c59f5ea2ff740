package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/order/domain"
	"github.com/smallbiznis/ordersync/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("order.service"),
		repo: p.Repo,
	}
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID, req domain.ListOrderRequest) (domain.ListOrderResponse, error) {
	if tenantID == 0 {
		return domain.ListOrderResponse{}, domain.ErrInvalidTenant
	}

	filter := domain.ListOrderFilter{
		AggregatorType: strings.ToLower(strings.TrimSpace(req.AggregatorType)),
	}
	if raw := strings.ToLower(strings.TrimSpace(req.Status)); raw != "" {
		status := domain.Status(raw)
		if !status.Valid() {
			return domain.ListOrderResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListOrderResponse{}, err
	}
	filter.Cursor = cursor

	limit := pagination.Pagination{PageSize: req.PageSize}.Limit()
	items, err := s.repo.List(ctx, s.db, tenantID, filter, limit+1)
	if err != nil {
		return domain.ListOrderResponse{}, err
	}

	items, pageInfo, err := pagination.BuildCursorPageInfo(items, limit, func(o *domain.Order) pagination.Cursor {
		return pagination.Cursor{
			ID:        o.ID.String(),
			CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})
	if err != nil {
		return domain.ListOrderResponse{}, err
	}

	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		orders = append(orders, *item)
	}

	return domain.ListOrderResponse{PageInfo: pageInfo, Orders: orders}, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id snowflake.ID) (*domain.Order, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if id == 0 {
		return nil, domain.ErrInvalidID
	}

	order, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (s *Service) Counts(ctx context.Context, tenantID snowflake.ID) (domain.StatusCounts, error) {
	if tenantID == 0 {
		return domain.StatusCounts{}, domain.ErrInvalidTenant
	}
	return s.repo.CountByStatus(ctx, s.db, tenantID)
}
