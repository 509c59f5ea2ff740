package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindConfig(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, provider string) (*Config, error)
	ListConfigs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Config, error)
	UpsertConfig(ctx context.Context, db *gorm.DB, config *Config) error
	UpdateStatus(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, provider string, isActive bool, updatedAt time.Time) (bool, error)
	UpdateAccessToken(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, provider, token string, expiry time.Time, updatedAt time.Time) (bool, error)
	UpdateLastSync(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, provider string, at time.Time) (bool, error)
	DeleteConfig(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, provider string) (bool, error)
}
