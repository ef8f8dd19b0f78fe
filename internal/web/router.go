// Package web serves the operational HTTP endpoints: account status
// and Prometheus metrics.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaynet/ircbridge/internal/bridge"
	"github.com/relaynet/ircbridge/internal/logger"
)

type Router struct {
	router *gin.Engine
	server *http.Server

	log    logger.Logger
	bridge *bridge.Bridge
}

func NewRouter(log logger.Logger, b *bridge.Bridge, addr string) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		router: gin.New(),
		log:    log,
		bridge: b,
	}
	r.router.Use(gin.Recovery())

	r.router.GET("/status", r.statusHandler)
	r.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.server = &http.Server{
		Addr:              addr,
		Handler:           r.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	return r
}

func (r *Router) statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"accounts": r.bridge.Status()})
}

func (r *Router) Run() error {
	return r.server.ListenAndServe()
}

func (r *Router) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.server.Shutdown(ctx); err != nil {
		r.log.Error("http server shutdown", err)
	}
}
