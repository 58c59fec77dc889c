package app

import (
	"time"

	"github.com/middle0128/Aitravel/internal/aiclient"
	"github.com/middle0128/Aitravel/internal/auth"
	"github.com/middle0128/Aitravel/internal/cache"
	"github.com/middle0128/Aitravel/internal/config"
	"github.com/middle0128/Aitravel/internal/handlers"
	"github.com/middle0128/Aitravel/internal/repo"
	"github.com/middle0128/Aitravel/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, db *pgxpool.Pool, rdb *redis.Client) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(302, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.PersistAuthorization(true),
	))

	api := r.Group("/api/v1")

	sessionStore := auth.NewStore(rdb, 24*time.Hour)
	userRepo := repo.NewPGUserRepo(db)
	userSvc := service.NewUserService(userRepo)
	authHandler := handlers.NewAuthHandler(sessionStore, userSvc)
	registerAuthRoutes(api, authHandler)

	protected := api.Group("", auth.RequireSession(sessionStore))
	protected.GET("/auth/me", authHandler.Me)

	profileHandler := handlers.NewProfileHandler(sessionStore, userSvc)
	protected.PATCH("/profile", profileHandler.Update)

	orderRepo := repo.NewPGOrderRepo(db)
	orderCache := cache.NewOrderCache(rdb, cfg.Redis.DefaultTTL.Duration())
	orderSvc := service.NewOrderService(orderRepo, orderCache)
	orderHandler := handlers.NewOrderHandler(orderSvc)
	registerOrderRoutes(protected, orderHandler)

	taskRepo := repo.NewPGTaskRepo(db)
	aiClient := aiclient.New(cfg.AI.WebhookURL, cfg.AI.Timeout.Duration())
	taskHandler := handlers.NewTaskHandler(taskRepo, orderSvc, aiClient)
	registerTaskRoutes(protected, taskHandler)
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "Aitravel API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger-doc.json",
			"health":  "/health",
			"api":     "/api/v1",
		})
	}
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.Data(200, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerAuthRoutes(api *gin.RouterGroup, h *handlers.AuthHandler) {
	api.POST("/auth/login", h.Login)
	api.POST("/auth/register", h.Register)
	api.POST("/auth/logout", h.Logout)
}

func registerOrderRoutes(api *gin.RouterGroup, h *handlers.OrderHandler) {
	api.GET("/orders", h.List)
	api.POST("/orders", h.Create)
	api.GET("/orders/:id", h.GetByID)
	api.GET("/orders/:id/exists", h.Exists)
	api.DELETE("/orders/:id", h.Delete)
}

func registerTaskRoutes(api *gin.RouterGroup, h *handlers.TaskHandler) {
	api.GET("/orders/:id/tasks", h.List)
	api.POST("/orders/:id/tasks/commit", h.Commit)
	api.POST("/orders/:id/tasks/import", h.ImportImage)
	api.POST("/orders/:id/tasks/import/parse", h.ImportParse)
}
