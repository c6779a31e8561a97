package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-user-session/internal/interface/http"
	"github.com/oksasatya/go-user-session/internal/interface/middleware"
)

// UserModule wires the user and session routes.
// Public: POST /users/register, /users/login, /users/refresh
// Protected: POST /users/logout, GET /users/me, GET /users/search
type UserModule struct {
	Handler *handlers.UserHandler
	Tokens  middleware.AccessVerifier
}

func NewUserModule(h *handlers.UserHandler, tokens middleware.AccessVerifier) *UserModule {
	return &UserModule{Handler: h, Tokens: tokens}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.POST("/register", m.Handler.Register)
	users.POST("/login", m.Handler.Login)
	users.POST("/refresh", m.Handler.Refresh)

	auth := users.Group("/")
	auth.Use(middleware.Auth(m.Tokens))
	{
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/me", m.Handler.Me)
		auth.GET("/search", m.Handler.Search)
	}
}
