package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"navbuild/builder/tile"

	"github.com/flswld/halo/logger"
	"github.com/gin-gonic/gin"
)

// Controller serves the build progress of a generate run.
type Controller struct {
	progress *tile.Progress
	server   *http.Server
}

type StatusRsp struct {
	Retcode int32                `json:"retcode"`
	Message string               `json:"message"`
	Levels  []tile.LevelProgress `json:"levels,omitempty"`
	Level   *tile.LevelProgress  `json:"level,omitempty"`
}

func NewController(progress *tile.Progress) *Controller {
	return &Controller{progress: progress}
}

// Router returns the gin engine with the status routes registered.
func (c *Controller) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/status", c.getStatus)
	engine.GET("/status/:guid", c.getLevelStatus)
	return engine
}

// Start serves the router on addr in the background.
func (c *Controller) Start(addr string) {
	c.server = &http.Server{Addr: addr, Handler: c.Router()}
	go func() {
		logger.Info("status server listen on: %v", addr)
		err := c.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server error: %v", err)
		}
	}()
}

func (c *Controller) Close() {
	if c.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.server.Shutdown(ctx)
	if err != nil {
		logger.Error("status server shutdown error: %v", err)
	}
}

func (c *Controller) getStatus(ctx *gin.Context) {
	rsp := &StatusRsp{Retcode: 0, Message: "ok", Levels: c.progress.Snapshot()}
	ctx.JSON(http.StatusOK, rsp)
}

func (c *Controller) getLevelStatus(ctx *gin.Context) {
	guid := ctx.Param("guid")
	lp, ok := c.progress.Level(guid)
	if !ok {
		ctx.JSON(http.StatusNotFound, &StatusRsp{Retcode: -1, Message: "level not found"})
		return
	}
	ctx.JSON(http.StatusOK, &StatusRsp{Retcode: 0, Message: "ok", Level: &lp})
}
