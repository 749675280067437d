package organization

import (
	"go.uber.org/fx"

	"github.com/groveworks/grove/internal/organization/repository"
	"github.com/groveworks/grove/internal/organization/service"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
