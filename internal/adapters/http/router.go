package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lingora/gateway/internal/adapters/ws"
	"github.com/lingora/gateway/internal/config"
	"github.com/lingora/gateway/internal/gateway"
	"github.com/lingora/gateway/internal/registry"
)

// SetupRouter wires the two gateway instances: scheduled lesson rooms
// and open lobby rooms, each over its own registry.
func SetupRouter(ctx context.Context, cfg *config.Config, lesson, lobby *gateway.Gateway) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	lessonCtl := ws.NewController(lesson, cfg.ReadLimit, cfg.PingPeriod)
	lobbyCtl := ws.NewController(lobby, cfg.ReadLimit, cfg.PingPeriod)

	api := r.Group("/api")
	api.GET("/ws/lesson", func(c *gin.Context) {
		lessonCtl.Handle(ctx, c)
	})
	api.GET("/ws/lobby", func(c *gin.Context) {
		lobbyCtl.Handle(ctx, c)
	})

	// Room and member counts, observability only: no identities leave
	// the gateway here.
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"lesson": roomList(lesson.Rooms()),
			"lobby":  roomList(lobby.Rooms()),
		})
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

func roomList(r *registry.Registry) []registry.RoomInfo {
	list := r.List()
	if list == nil {
		list = []registry.RoomInfo{}
	}
	return list
}
