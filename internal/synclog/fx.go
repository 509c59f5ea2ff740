package synclog

import (
	"github.com/smallbiznis/ordersync/internal/synclog/repository"
	"github.com/smallbiznis/ordersync/internal/synclog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("synclog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
