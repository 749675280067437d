package team

import (
	"go.uber.org/fx"

	"github.com/groveworks/grove/internal/team/repository"
	"github.com/groveworks/grove/internal/team/service"
)

var Module = fx.Module("team.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
