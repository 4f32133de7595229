package api

import (
	"github.com/labstack/echo/v4"
)

// Register sets up all API routes on api. Every route sees the request's
// AuthContext; privileged routes additionally require a session and, for
// cookie sessions, the CSRF header.
func (h *Handler) Register(api *echo.Group) {
	api.Use(h.gate.Attach())
	requireAuth := []echo.MiddlewareFunc{h.gate.RequireAuth(), h.gate.CSRF()}

	// Health check (public)
	api.GET("/health", h.healthCheck)

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.POST("/signup", h.signupHandler, h.limiter.Middleware())
	authGroup.POST("/login", h.loginHandler, h.limiter.Middleware())
	authGroup.GET("/oidc/login", h.oidcLoginHandler)
	authGroup.GET("/oidc/callback", h.oidcCallbackHandler, h.limiter.Middleware())

	// Protected auth routes
	authProtected := authGroup.Group("", requireAuth...)
	authProtected.POST("/logout", h.logoutHandler)
	authProtected.POST("/refresh", h.refreshHandler)
	authProtected.GET("/me", h.getCurrentUser)
	authProtected.GET("/sessions", h.getUserSessions)
	authProtected.DELETE("/sessions", h.revokeAllSessions)
	authProtected.DELETE("/sessions/:id", h.revokeSession)
	authProtected.GET("/activity", h.listActivityHandler)

	// Projects: anyone may browse, owners manage
	projects := api.Group("/projects")
	projects.GET("", h.listProjectsHandler)
	projects.GET("/:id", h.getProjectHandler)
	projects.POST("", h.createProjectHandler, requireAuth...)
	projects.DELETE("/:id", h.deleteProjectHandler, requireAuth...)

	// Clubs
	clubs := api.Group("/clubs")
	clubs.GET("", h.listClubsHandler)
	clubs.GET("/:id", h.getClubHandler)
	clubs.GET("/:id/image", h.getClubImageHandler)
	clubs.POST("", h.createClubHandler, requireAuth...)

	// Profiles
	api.GET("/profile", h.getProfileHandler, requireAuth...)
	api.PUT("/profile", h.updateProfileHandler, requireAuth...)
	api.GET("/profile/projects", h.listOwnProjectsHandler, requireAuth...)
	api.GET("/profiles/:username", h.getPublicProfileHandler)
}
