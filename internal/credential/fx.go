package credential

import (
	"github.com/smallbiznis/ordersync/internal/config"
	"github.com/smallbiznis/ordersync/internal/credential/repository"
	"github.com/smallbiznis/ordersync/internal/credential/service"
	"github.com/smallbiznis/ordersync/pkg/secretbox"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("credential.service",
	fx.Provide(provideCodec),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

func provideCodec(cfg config.Config, log *zap.Logger) *secretbox.Codec {
	return secretbox.NewCodec(cfg.EncryptionKey, log)
}
