package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-od-api/api/swagger"
	"github.com/noah-isme/campus-od-api/internal/handler"
	"github.com/noah-isme/campus-od-api/internal/middleware"
	"github.com/noah-isme/campus-od-api/internal/models"
	"github.com/noah-isme/campus-od-api/internal/service"
	"github.com/noah-isme/campus-od-api/pkg/config"
	"github.com/noah-isme/campus-od-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-od-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-od-api/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *service.MetricsService
	tokens  middleware.TokenValidator
	audit   middleware.AuditWriter
	auth    *handler.AuthHandler
	od      *handler.ODHandler
	users   *handler.UserHandler
	ops     *handler.MetricsHandler
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger))
	r.Use(corsmiddleware.New(d.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", d.ops.Health)
	r.GET("/ready", d.ops.Ready)
	r.GET("/metrics", d.ops.Prometheus)

	if d.cfg.Env != config.EnvProduction {
		swagger.BasePath = d.cfg.APIPrefix
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/login", d.auth.StudentLogin)
	auth.POST("/refresh", d.auth.Refresh)
	auth.POST("/logout", middleware.JWT(d.tokens), d.auth.Logout)
	auth.GET("/me", middleware.JWT(d.tokens), d.auth.Me)

	od := api.Group("/od")
	od.POST("/auth/faculty-login", d.auth.FacultyLogin)

	secured := od.Group("")
	secured.Use(middleware.JWT(d.tokens))
	secured.POST("/request", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin), d.od.Create)
	secured.GET("/student/:email", middleware.RBAC(string(models.RoleFaculty), string(models.RoleAdmin), middleware.Self), d.od.ListByStudent)
	secured.GET("/:id", middleware.Audit(d.audit, d.logger, models.AuditActionODView, models.AuditResourceOD), d.od.Get)

	review := secured.Group("")
	review.Use(middleware.RequireReviewer())
	review.GET("/all", d.od.ListAll)
	review.GET("/stats", d.od.Stats)
	review.PATCH("/status/:id", d.od.UpdateStatus)

	users := api.Group("/users")
	users.Use(middleware.JWT(d.tokens), middleware.RequireRoles(models.RoleAdmin))
	users.GET("", d.users.List)
	users.POST("", d.users.Create)
	users.GET("/:id", d.users.Get)
	users.PATCH("/:id/active", d.users.SetActive)

	return r
}
