package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/clock"
	"github.com/smallbiznis/ordersync/internal/credential/domain"
	"github.com/smallbiznis/ordersync/pkg/integration"
	"github.com/smallbiznis/ordersync/pkg/secretbox"
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
	Codec *secretbox.Codec
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	codec *secretbox.Codec
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("credential.service"),
		repo:  p.Repo,
		genID: p.GenID,
		codec: p.Codec,
		clock: p.Clock,
	}
}

func (s *Service) Configure(ctx context.Context, req domain.ConfigureRequest) (*domain.ConfigSummary, error) {
	if req.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	provider, err := integration.ParseProvider(req.Provider)
	if err != nil {
		return nil, domain.ErrInvalidProvider
	}

	existing, err := s.repo.FindConfig(ctx, s.db, req.TenantID, provider.String())
	if err != nil {
		return nil, err
	}

	var stored map[string]string
	settings := domain.DefaultSettings(provider)
	if existing != nil {
		stored = existing.Credentials.Data()
		settings = existing.Settings.Data()
	}

	fields, err := s.mergeFields(provider, normalizeInput(provider, req.Credentials), stored)
	if err != nil {
		return nil, err
	}

	settings = req.Settings.Apply(settings)
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	var mappings []domain.PaymentMapping
	if existing != nil {
		mappings = existing.PaymentMappings.Data()
	}
	if req.PaymentMappings != nil {
		if provider != integration.ProviderLoyverse {
			return nil, domain.ErrInvalidConfig
		}
		if err := domain.ValidateMappings(req.PaymentMappings); err != nil {
			return nil, err
		}
		mappings = normalizeMappings(req.PaymentMappings)
	}
	if mappings == nil {
		mappings = []domain.PaymentMapping{}
	}

	now := s.clock.Now()
	cfg := domain.Config{
		ID:              s.genID.Generate(),
		TenantID:        req.TenantID,
		Provider:        provider.String(),
		StoreID:         fields[domain.FieldStoreID],
		Credentials:     datatypes.NewJSONType(fields),
		Settings:        datatypes.NewJSONType(settings),
		PaymentMappings: datatypes.NewJSONType(mappings),
		IsActive:        provider == integration.ProviderLoyverse,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if existing != nil {
		cfg.ID = existing.ID
		cfg.IsActive = existing.IsActive
		cfg.LastSync = existing.LastSync
		cfg.CreatedAt = existing.CreatedAt
		// A cached token only stays valid while the credentials it was issued for do.
		if sameCredentials(stored, fields) {
			cfg.AccessToken = existing.AccessToken
			cfg.TokenExpiry = existing.TokenExpiry
		}
	}

	if err := s.repo.UpsertConfig(ctx, s.db, &cfg); err != nil {
		return nil, err
	}

	s.log.Info("credentials configured",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("provider", provider.String()),
		zap.Bool("created", existing == nil),
	)

	summary := s.summarize(&cfg)
	return &summary, nil
}

func (s *Service) Get(ctx context.Context, tenantID snowflake.ID, provider string) (*domain.ConfigSummary, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	p, err := integration.ParseProvider(provider)
	if err != nil {
		return nil, domain.ErrInvalidProvider
	}

	cfg, err := s.repo.FindConfig(ctx, s.db, tenantID, p.String())
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, domain.ErrNotFound
	}

	summary := s.summarize(cfg)
	return &summary, nil
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID) ([]domain.ConfigSummary, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	items, err := s.repo.ListConfigs(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.ConfigSummary, 0, len(items))
	for i := range items {
		resp = append(resp, s.summarize(&items[i]))
	}
	return resp, nil
}

func (s *Service) Load(ctx context.Context, tenantID snowflake.ID, provider integration.Provider) (*domain.Credentials, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	cfg, err := s.repo.FindConfig(ctx, s.db, tenantID, provider.String())
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, integration.ConfigMissing(provider)
	}

	secret := secretFields(provider)
	stored := cfg.Credentials.Data()
	fields := make(map[string]string, len(stored))
	for name, value := range stored {
		if secret[name] {
			value = s.codec.Decrypt(value)
		}
		fields[name] = value
	}

	return &domain.Credentials{
		ConfigID:        cfg.ID,
		TenantID:        cfg.TenantID,
		Provider:        provider,
		StoreID:         cfg.StoreID,
		Fields:          fields,
		Settings:        cfg.Settings.Data(),
		PaymentMappings: cfg.PaymentMappings.Data(),
		IsActive:        cfg.IsActive,
		AccessToken:     s.codec.Decrypt(cfg.AccessToken),
		TokenExpiry:     cfg.TokenExpiry,
	}, nil
}

func (s *Service) SetActive(ctx context.Context, tenantID snowflake.ID, provider integration.Provider, isActive bool) error {
	if tenantID == 0 {
		return domain.ErrInvalidTenant
	}
	updated, err := s.repo.UpdateStatus(ctx, s.db, tenantID, provider.String(), isActive, s.clock.Now())
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) StoreAccessToken(ctx context.Context, tenantID snowflake.ID, provider integration.Provider, token string, expiry time.Time) error {
	if tenantID == 0 {
		return domain.ErrInvalidTenant
	}
	updated, err := s.repo.UpdateAccessToken(ctx, s.db, tenantID, provider.String(), s.codec.Encrypt(token), expiry.UTC(), s.clock.Now())
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) MarkSynced(ctx context.Context, tenantID snowflake.ID, provider integration.Provider, at time.Time) error {
	if tenantID == 0 {
		return domain.ErrInvalidTenant
	}
	updated, err := s.repo.UpdateLastSync(ctx, s.db, tenantID, provider.String(), at.UTC())
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, tenantID snowflake.ID, provider string) error {
	if tenantID == 0 {
		return domain.ErrInvalidTenant
	}
	p, err := integration.ParseProvider(provider)
	if err != nil {
		return domain.ErrInvalidProvider
	}
	deleted, err := s.repo.DeleteConfig(ctx, s.db, tenantID, p.String())
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	s.log.Info("credentials deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", p.String()),
	)
	return nil
}

// mergeFields encrypts newly supplied secrets and keeps stored ones when the
// caller leaves a secret empty or echoes the mask back.
func (s *Service) mergeFields(provider integration.Provider, input, stored map[string]string) (map[string]string, error) {
	out := make(map[string]string)
	for _, field := range domain.Fields(provider) {
		value := input[field.Name]
		if field.Secret {
			if value == "" || value == domain.Mask {
				value = stored[field.Name]
			} else {
				value = s.codec.Encrypt(value)
			}
		} else if value == "" {
			value = stored[field.Name]
		}

		if value == "" {
			if field.Required {
				return nil, missingField(field.Name)
			}
			continue
		}
		out[field.Name] = value
	}
	return out, nil
}

func (s *Service) summarize(cfg *domain.Config) domain.ConfigSummary {
	provider := integration.Provider(cfg.Provider)
	stored := cfg.Credentials.Data()

	creds := make(map[string]string)
	hasSecret := make(map[string]bool)
	for _, field := range domain.Fields(provider) {
		value, ok := stored[field.Name]
		if field.Secret {
			hasSecret[field.Name] = ok && value != ""
			if hasSecret[field.Name] {
				creds[field.Name] = domain.Mask
			} else {
				creds[field.Name] = ""
			}
			continue
		}
		creds[field.Name] = value
	}

	return domain.ConfigSummary{
		ID:              cfg.ID.String(),
		Provider:        cfg.Provider,
		StoreID:         cfg.StoreID,
		Credentials:     creds,
		HasSecret:       hasSecret,
		Settings:        cfg.Settings.Data(),
		PaymentMappings: cfg.PaymentMappings.Data(),
		IsActive:        cfg.IsActive,
		LastSync:        cfg.LastSync,
		CreatedAt:       cfg.CreatedAt,
		UpdatedAt:       cfg.UpdatedAt,
	}
}

func normalizeInput(provider integration.Provider, raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	if provider == integration.ProviderPedidosYa {
		if id, ok := out[domain.FieldRestaurantID]; ok {
			if _, set := out[domain.FieldStoreID]; !set {
				out[domain.FieldStoreID] = id
			}
			delete(out, domain.FieldRestaurantID)
		}
	}
	return out
}

func normalizeMappings(in []domain.PaymentMapping) []domain.PaymentMapping {
	out := make([]domain.PaymentMapping, 0, len(in))
	for _, m := range in {
		out = append(out, domain.PaymentMapping{
			AggregatorPayment: strings.ToUpper(strings.TrimSpace(m.AggregatorPayment)),
			LoyversePayment:   strings.TrimSpace(m.LoyversePayment),
		})
	}
	return out
}

func secretFields(provider integration.Provider) map[string]bool {
	out := make(map[string]bool)
	for _, field := range domain.Fields(provider) {
		if field.Secret {
			out[field.Name] = true
		}
	}
	return out
}

func sameCredentials(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
