package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSynced  Status = "synced"
	StatusError   Status = "error"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSynced, StatusError:
		return true
	default:
		return false
	}
}

// DefaultCustomerName is used when an aggregator payload has no customer name.
const DefaultCustomerName = "Cliente"

// DefaultPaymentMethod is used when an aggregator payload has no payment type.
const DefaultPaymentMethod = "ONLINE"

// CanonicalOrder is the aggregator independent order shape. Amounts are in
// the store's major currency unit. Total is taken from the aggregator as is.
type CanonicalOrder struct {
	OrderNumber   string          `json:"order_number" validate:"required"`
	Customer      Customer        `json:"customer"`
	Items         []Item          `json:"items" validate:"dive"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee" validate:"gte=0"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	OrderTime     time.Time       `json:"order_time" validate:"required"`
	DeliveryTime  *time.Time      `json:"delivery_time,omitempty"`
}

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type Item struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity" validate:"min=1"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Modifiers []Modifier      `json:"modifiers"`
}

type Modifier struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ModifiersTotal sums the price of every modifier on the item.
func (i Item) ModifiersTotal() decimal.Decimal {
	total := decimal.Zero
	for _, m := range i.Modifiers {
		total = total.Add(m.Price)
	}
	return total
}

// Order is the persisted sync unit wrapping one CanonicalOrder.
type Order struct {
	ID                snowflake.ID   `gorm:"primaryKey" json:"id"`
	TenantID          snowflake.ID   `gorm:"column:tenant_id;not null;index:idx_orders_tenant_status,priority:1" json:"tenant_id"`
	AggregatorType    string         `gorm:"type:varchar(32);not null;uniqueIndex:ux_orders_aggregator_order,priority:1" json:"aggregator_type"`
	AggregatorOrderID string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_orders_aggregator_order,priority:2" json:"aggregator_order_id"`
	Status            Status         `gorm:"type:varchar(16);not null;default:'pending';index:idx_orders_tenant_status,priority:2" json:"status"`
	OrderData         datatypes.JSON `gorm:"not null" json:"order_data"`
	LoyverseReceiptID *string        `gorm:"type:varchar(128)" json:"loyverse_receipt_id,omitempty"`
	SyncAttempts      int            `gorm:"not null;default:0" json:"sync_attempts"`
	LastSyncAttempt   *time.Time     `json:"last_sync_attempt,omitempty"`
	ErrorMessage      string         `gorm:"type:text;not null;default:''" json:"error_message"`
	ClaimToken        *string        `gorm:"type:varchar(64)" json:"-"`
	ClaimedAt         *time.Time     `json:"-"`
	CreatedAt         time.Time      `gorm:"not null;index:idx_orders_tenant_status,priority:3" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// Canonical decodes the stored order payload.
func (o *Order) Canonical() (CanonicalOrder, error) {
	var canonical CanonicalOrder
	if err := json.Unmarshal(o.OrderData, &canonical); err != nil {
		return CanonicalOrder{}, err
	}
	return canonical, nil
}

// StatusCounts is the per-status order tally for one tenant.
type StatusCounts struct {
	Pending int64 `json:"pending"`
	Synced  int64 `json:"synced"`
	Error   int64 `json:"error"`
	Total   int64 `json:"total"`
}
