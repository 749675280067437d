package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/groveworks/grove/internal/clock"
	"github.com/groveworks/grove/internal/config"
	"github.com/groveworks/grove/internal/logger"
	"github.com/groveworks/grove/internal/migration"
	"github.com/groveworks/grove/internal/server"
	"github.com/groveworks/grove/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// server.Module pulls in the domain modules.
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
