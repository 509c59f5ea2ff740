package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/pkg/db/pagination"
)

type ListOrderRequest struct {
	Status         string
	AggregatorType string
	PageToken      string
	PageSize       int
}

type ListOrderResponse struct {
	pagination.PageInfo
	Orders []Order `json:"orders"`
}

type Service interface {
	List(ctx context.Context, tenantID snowflake.ID, req ListOrderRequest) (ListOrderResponse, error)
	Get(ctx context.Context, tenantID, id snowflake.ID) (*Order, error)
	Counts(ctx context.Context, tenantID snowflake.ID) (StatusCounts, error)
}

var (
	ErrInvalidTenant     = errors.New("invalid_tenant")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidOrder      = errors.New("invalid_order")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrClaimLost         = errors.New("claim_lost")
)
