package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/pkg/db/pagination"
)

// RecordRequest carries the counters of one finished run. Status is derived
// from the counters unless set, which only aborted runs do.
type RecordRequest struct {
	TenantID       snowflake.ID
	Status         Status
	SyncType       string
	AggregatorType string
	ItemsProcessed int
	ItemsSuccess   int
	ItemsFailed    int
	StartTime      time.Time
	EndTime        time.Time
	Errors         []ErrorEntry
}

type ListRequest struct {
	AggregatorType string
	Status         string
	PageToken      string
	PageSize       int
}

type ListResponse struct {
	pagination.PageInfo
	Logs []SyncLog `json:"logs"`
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*SyncLog, error)
	Latest(ctx context.Context, tenantID snowflake.ID) (*SyncLog, error)
	List(ctx context.Context, tenantID snowflake.ID, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidStatus = errors.New("invalid_status")
)
