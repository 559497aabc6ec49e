package handler

import (
	"github.com/gin-gonic/gin"
)

// Router bundles the handlers and attaches them to a gin engine.
type Router struct {
	Forms   *FormHandler
	Public  *PublicHandler
	Metrics *MetricsHandler
}

// Register mounts all routes. Dashboard endpoints live under apiPrefix;
// respondent endpoints are mounted at /f to keep share links short.
func (r *Router) Register(engine *gin.Engine, apiPrefix string) {
	engine.GET("/health", r.Metrics.Health)
	engine.GET("/ready", r.Metrics.Ready)
	engine.GET("/metrics", r.Metrics.Prometheus)

	api := engine.Group(apiPrefix)
	forms := api.Group("/forms")
	forms.POST("", r.Forms.Create)
	forms.GET("", r.Forms.List)
	forms.GET("/:id", r.Forms.Get)
	forms.PUT("/:id/fields", r.Forms.UpdateFields)
	forms.PATCH("/:id/settings", r.Forms.UpdateSettings)
	forms.DELETE("/:id", r.Forms.Delete)
	forms.GET("/:id/activity", r.Forms.Activity)
	forms.GET("/:id/analytics", r.Forms.Analytics)
	forms.GET("/:id/submissions", r.Forms.Submissions)

	public := engine.Group("/f")
	public.GET("/:id", r.Public.View)
	public.POST("/:id/unlock", r.Public.Unlock)
	public.POST("/:id/submissions", r.Public.Submit)
	public.GET("/:id/submissions/:attemptId", r.Public.Status)
	public.DELETE("/:id/submissions/:attemptId", r.Public.Cancel)
	public.POST("/:id/submissions/:attemptId/retry", r.Public.Retry)
}
