package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/synclog/domain"
	"github.com/smallbiznis/ordersync/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("synclog.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (*domain.SyncLog, error) {
	if req.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	syncType := strings.TrimSpace(req.SyncType)
	if syncType == "" {
		syncType = domain.SyncTypeOrder
	}
	errs := req.Errors
	if errs == nil {
		errs = []domain.ErrorEntry{}
	}
	end := req.EndTime.UTC()
	status := req.Status
	if status == "" {
		status = domain.DeriveStatus(req.ItemsSuccess, req.ItemsFailed)
	}

	entry := domain.SyncLog{
		ID:             s.genID.Generate(),
		TenantID:       req.TenantID,
		SyncType:       syncType,
		AggregatorType: req.AggregatorType,
		Status:         status,
		ItemsProcessed: req.ItemsProcessed,
		ItemsSuccess:   req.ItemsSuccess,
		ItemsFailed:    req.ItemsFailed,
		Details: datatypes.NewJSONType(domain.Details{
			StartTime:  req.StartTime.UTC(),
			EndTime:    end,
			DurationMs: end.Sub(req.StartTime).Milliseconds(),
			Errors:     errs,
		}),
		CreatedAt: end,
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Error("failed to write sync log",
			zap.String("tenant_id", req.TenantID.String()),
			zap.String("status", string(entry.Status)),
			zap.Error(err),
		)
		return nil, err
	}
	return &entry, nil
}

func (s *Service) Latest(ctx context.Context, tenantID snowflake.ID) (*domain.SyncLog, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	return s.repo.Latest(ctx, s.db, tenantID)
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID, req domain.ListRequest) (domain.ListResponse, error) {
	if tenantID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidTenant
	}

	filter := domain.ListFilter{
		AggregatorType: strings.ToLower(strings.TrimSpace(req.AggregatorType)),
	}
	if raw := strings.ToLower(strings.TrimSpace(req.Status)); raw != "" {
		switch status := domain.Status(raw); status {
		case domain.StatusSuccess, domain.StatusError, domain.StatusPartial:
			filter.Status = status
		default:
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListResponse{}, err
	}
	filter.Cursor = cursor

	limit := pagination.Pagination{PageSize: req.PageSize}.Limit()
	items, err := s.repo.List(ctx, s.db, tenantID, filter, limit+1)
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo, err := pagination.BuildCursorPageInfo(items, limit, func(l *domain.SyncLog) pagination.Cursor {
		return pagination.Cursor{
			ID:        l.ID.String(),
			CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	logs := make([]domain.SyncLog, 0, len(items))
	for _, item := range items {
		logs = append(logs, *item)
	}
	return domain.ListResponse{PageInfo: pageInfo, Logs: logs}, nil
}
