package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusPartial Status = "partial"
)

const (
	SyncTypeOrder = "order"

	// GeneralItemID marks an error that is not tied to a single order.
	GeneralItemID = "general"
)

// DeriveStatus maps run counters onto a log status: no failures is success,
// failures without any success is error, anything else is partial.
func DeriveStatus(itemsSuccess, itemsFailed int) Status {
	switch {
	case itemsFailed == 0:
		return StatusSuccess
	case itemsSuccess == 0:
		return StatusError
	default:
		return StatusPartial
	}
}

type ErrorEntry struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

type Details struct {
	StartTime  time.Time    `json:"start_time"`
	EndTime    time.Time    `json:"end_time"`
	DurationMs int64        `json:"duration_ms"`
	Errors     []ErrorEntry `json:"errors"`
}

// SyncLog is the append-only audit record of one sync invocation.
type SyncLog struct {
	ID             snowflake.ID                `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID                `gorm:"column:tenant_id;not null;index:idx_sync_logs_tenant_created,priority:1" json:"tenant_id"`
	SyncType       string                      `gorm:"type:varchar(32);not null" json:"sync_type"`
	AggregatorType string                      `gorm:"type:varchar(32);not null" json:"aggregator_type"`
	Status         Status                      `gorm:"type:varchar(16);not null" json:"status"`
	ItemsProcessed int                         `gorm:"not null;default:0" json:"items_processed"`
	ItemsSuccess   int                         `gorm:"not null;default:0" json:"items_success"`
	ItemsFailed    int                         `gorm:"not null;default:0" json:"items_failed"`
	Details        datatypes.JSONType[Details] `gorm:"not null" json:"details"`
	CreatedAt      time.Time                   `gorm:"not null;index:idx_sync_logs_tenant_created,priority:2" json:"created_at"`
}

func (SyncLog) TableName() string { return "sync_logs" }
