package router

import (
	"github.com/oksasatya/go-user-session/internal/container"
	handlers "github.com/oksasatya/go-user-session/internal/interface/http"
	"github.com/oksasatya/go-user-session/internal/router/modules"
)

// InitModules builds the feature modules from the container and registers
// them with the registry. Call once during startup.
func InitModules(r *Registry, c *container.Container) {
	cfg := c.Config
	userHandler := handlers.NewUserHandler(c.Users, c.Logger, cfg.CookieDomain, cfg.UploadTmpDir, cfg.UploadMaxBytes)
	r.Add(modules.NewUserModule(userHandler, c.JWT))

	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
