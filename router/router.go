package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/menu-catalog/controllers"
	"github.com/yeremiapane/menu-catalog/hub"
	"github.com/yeremiapane/menu-catalog/metrics"
	"github.com/yeremiapane/menu-catalog/middlewares"
	"github.com/yeremiapane/menu-catalog/services"
	"github.com/yeremiapane/menu-catalog/storage"
)

// Dependencies are the collaborators wired into the route table.
type Dependencies struct {
	Service *services.MenuItemService
	Images  storage.ImageStore
	Hub     *hub.Hub
	Metrics *metrics.Metrics

	// RateLimiter is optional.
	RateLimiter *middlewares.RateLimiter

	AuthSecret     string
	CORSOrigin     string
	MaxUploadBytes int64
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if deps.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = deps.MaxUploadBytes
	}

	r.Use(middlewares.MetricsMiddleware(deps.Metrics))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(deps.CORSOrigin))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.RateLimit())
	}

	menuCtrl := controllers.NewMenuItemController(deps.Service, deps.Images, deps.MaxUploadBytes)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	// Aset gambar yang diupload
	r.GET("/uploads/*filepath", menuCtrl.ServeImage)

	r.GET("/menu-items", menuCtrl.GetMenuItems)
	r.GET("/menu-items/:id", menuCtrl.GetMenuItemByID)

	// Perubahan data; dijaga token hanya jika AUTH_SECRET diisi
	write := r.Group("/menu-items")
	write.Use(middlewares.RequireToken(deps.AuthSecret))
	{
		write.POST("", menuCtrl.CreateMenuItem)
		write.PUT("/:id", menuCtrl.UpdateMenuItem)
		write.DELETE("/:id", menuCtrl.DeleteMenuItem)
	}

	r.GET("/ws/menu-items", controllers.MenuHubHandler(deps.Hub))

	return r
}
