package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/credential/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const configColumns = `id, tenant_id, provider, store_id, credentials, settings, payment_mappings,
	is_active, last_sync, access_token, token_expiry, created_at, updated_at`

func (r *repo) FindConfig(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, provider string) (*domain.Config, error) {
	var item domain.Config
	err := db.WithContext(ctx).Raw(
		`SELECT `+configColumns+`
		 FROM credential_configs
		 WHERE tenant_id = ? AND provider = ?
		 LIMIT 1`,
		tenantID,
		provider,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListConfigs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]domain.Config, error) {
	var configs []domain.Config
	err := db.WithContext(ctx).Raw(
		`SELECT `+configColumns+`
		 FROM credential_configs
		 WHERE tenant_id = ?
		 ORDER BY provider`,
		tenantID,
	).Scan(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *repo) UpsertConfig(ctx context.Context, db *gorm.DB, config *domain.Config) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "provider"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"store_id",
				"credentials",
				"settings",
				"payment_mappings",
				"is_active",
				"access_token",
				"token_expiry",
				"updated_at",
			}),
		}).
		Create(config).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, provider string, isActive bool, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE credential_configs
		 SET is_active = ?, updated_at = ?
		 WHERE tenant_id = ? AND provider = ?`,
		isActive,
		updatedAt,
		tenantID,
		provider,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateAccessToken(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, provider, token string, expiry time.Time, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE credential_configs
		 SET access_token = ?, token_expiry = ?, updated_at = ?
		 WHERE tenant_id = ? AND provider = ?`,
		token,
		expiry,
		updatedAt,
		tenantID,
		provider,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateLastSync(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, provider string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE credential_configs
		 SET last_sync = ?, updated_at = ?
		 WHERE tenant_id = ? AND provider = ?`,
		at,
		at,
		tenantID,
		provider,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) DeleteConfig(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, provider string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM credential_configs WHERE tenant_id = ? AND provider = ?`,
		tenantID,
		provider,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
