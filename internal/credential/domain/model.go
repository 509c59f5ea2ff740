package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Mask replaces secret values in every read model.
const Mask = "********"

// Config is one tenant's connection to a provider. Secret credential fields
// are stored encrypted; plain fields such as store_id are stored as is.
type Config struct {
	ID              snowflake.ID                          `json:"id" gorm:"primaryKey"`
	TenantID        snowflake.ID                          `json:"tenant_id" gorm:"column:tenant_id;not null;uniqueIndex:ux_credential_configs_tenant_provider,priority:1"`
	Provider        string                                `json:"provider" gorm:"type:varchar(32);not null;uniqueIndex:ux_credential_configs_tenant_provider,priority:2"`
	StoreID         string                                `json:"store_id" gorm:"type:varchar(128);not null;default:''"`
	Credentials     datatypes.JSONType[map[string]string] `json:"-" gorm:"not null"`
	Settings        datatypes.JSONType[Settings]          `json:"settings" gorm:"not null"`
	PaymentMappings datatypes.JSONType[[]PaymentMapping]  `json:"payment_mappings" gorm:"not null"`
	IsActive        bool                                  `json:"is_active" gorm:"not null;default:false"`
	LastSync        *time.Time                            `json:"last_sync,omitempty"`
	AccessToken     string                                `json:"-" gorm:"type:text;not null;default:''"`
	TokenExpiry     *time.Time                            `json:"-"`
	CreatedAt       time.Time                             `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time                             `json:"updated_at" gorm:"not null"`
}

func (Config) TableName() string { return "credential_configs" }

// Settings are tenant preferences. Only the order flags drive behavior; menu
// and inventory flags are stored for the dashboard.
type Settings struct {
	AutoSync      bool `json:"auto_sync"`
	SyncInterval  int  `json:"sync_interval" validate:"min=1,max=60"`
	SyncOrders    bool `json:"sync_orders"`
	SyncMenu      bool `json:"sync_menu"`
	SyncInventory bool `json:"sync_inventory"`

	DefaultPaymentType string           `json:"default_payment_type,omitempty"`
	EmployeeID         string           `json:"employee_id,omitempty"`
	DefaultTaxRate     *decimal.Decimal `json:"default_tax_rate,omitempty"`
}

// SettingsPatch is merged over the stored settings; nil fields are left alone.
type SettingsPatch struct {
	AutoSync           *bool            `json:"auto_sync"`
	SyncInterval       *int             `json:"sync_interval"`
	SyncOrders         *bool            `json:"sync_orders"`
	SyncMenu           *bool            `json:"sync_menu"`
	SyncInventory      *bool            `json:"sync_inventory"`
	DefaultPaymentType *string          `json:"default_payment_type"`
	EmployeeID         *string          `json:"employee_id"`
	DefaultTaxRate     *decimal.Decimal `json:"default_tax_rate"`
}

func (p *SettingsPatch) Apply(base Settings) Settings {
	if p == nil {
		return base
	}
	if p.AutoSync != nil {
		base.AutoSync = *p.AutoSync
	}
	if p.SyncInterval != nil {
		base.SyncInterval = *p.SyncInterval
	}
	if p.SyncOrders != nil {
		base.SyncOrders = *p.SyncOrders
	}
	if p.SyncMenu != nil {
		base.SyncMenu = *p.SyncMenu
	}
	if p.SyncInventory != nil {
		base.SyncInventory = *p.SyncInventory
	}
	if p.DefaultPaymentType != nil {
		base.DefaultPaymentType = *p.DefaultPaymentType
	}
	if p.EmployeeID != nil {
		base.EmployeeID = *p.EmployeeID
	}
	if p.DefaultTaxRate != nil {
		rate := *p.DefaultTaxRate
		base.DefaultTaxRate = &rate
	}
	return base
}

type PaymentMapping struct {
	AggregatorPayment string `json:"aggregator_payment" validate:"required"`
	LoyversePayment   string `json:"loyverse_payment" validate:"required"`
}
