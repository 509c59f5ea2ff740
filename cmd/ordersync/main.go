package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/aggregator"
	"github.com/smallbiznis/ordersync/internal/clock"
	"github.com/smallbiznis/ordersync/internal/config"
	"github.com/smallbiznis/ordersync/internal/credential"
	"github.com/smallbiznis/ordersync/internal/lock"
	"github.com/smallbiznis/ordersync/internal/migration"
	"github.com/smallbiznis/ordersync/internal/observability"
	"github.com/smallbiznis/ordersync/internal/order"
	"github.com/smallbiznis/ordersync/internal/pos/loyverse"
	"github.com/smallbiznis/ordersync/internal/server"
	ordersync "github.com/smallbiznis/ordersync/internal/sync"
	"github.com/smallbiznis/ordersync/internal/synclog"
	"github.com/smallbiznis/ordersync/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,

		// Functional Domains
		credential.Module,
		order.Module,
		synclog.Module,
		aggregator.Module,
		loyverse.Module,
		ordersync.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
