package auth

import (
	"github.com/groveworks/grove/internal/auth/repository"
	"github.com/groveworks/grove/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
