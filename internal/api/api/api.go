package api

import (
	"congresoreg/cmd/middleware"
	"congresoreg/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/ginext"
)

type Routers struct {
	Service service.Service
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())

	apiGroup := app.Group("/api")
	apiGroup.POST("/submit", r.Service.Submit)

	app.GET("/healthz", func(c *ginext.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	app.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return app
}
