package controlplane

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"

	"github.com/manavgt54/idesync/internal/controlplane/handlers"
	"github.com/manavgt54/idesync/internal/controlplane/middleware"
	"github.com/manavgt54/idesync/internal/version"
)

type RouteConfig struct {
	Auth middleware.TokenAuthConfig
}

func SetupRoutes(svc handlers.SyncService, scanner handlers.WorkspaceService, hub *handlers.SocketHub, workspace string, routeConfig *RouteConfig) http.Handler {
	r := gin.New()

	rateLimitStore := memory.NewStore()
	rateLimiter := limiter.New(rateLimitStore, limiter.Rate{
		Period: 1 * time.Second,
		Limit:  10,
	})

	syncH := handlers.NewSyncHandler(svc)
	statusH := handlers.NewStatusHandler(svc, workspace)
	workspaceH := handlers.NewWorkspaceHandler(scanner)

	r.Use(gin.Recovery())
	r.Use(sloggin.NewWithFilters(slog.Default(), sloggin.IgnorePath(
		"/v1/sync/events",
		"/v1/sync/socket",
	)))
	r.Use(middleware.CORS())
	r.Use(middleware.Gzip())
	r.Use(mgin.NewMiddleware(rateLimiter))

	r.GET("/", IndexHandler)

	v1 := r.Group("/v1")
	v1.Use(middleware.TokenAuth(routeConfig.Auth))
	{
		v1.GET("/status", statusH.Status)

		v1Sync := v1.Group("/sync")
		{
			v1Sync.POST("/start", syncH.Start)
			v1Sync.POST("/stop", syncH.Stop)
			v1Sync.POST("/retry", syncH.Retry)
			v1Sync.GET("/status", syncH.Status)
			v1Sync.GET("/events", syncH.Events)
			v1Sync.GET("/socket", hub.Handler)
		}

		v1Workspace := v1.Group("/workspace")
		{
			v1Workspace.POST("/scan", workspaceH.Scan)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not found",
		})
	})

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error": "method not allowed",
		})
	})

	return r.Handler()
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func IndexHandler(c *gin.Context) {
	c.JSON(http.StatusOK, version.Detailed())
}
