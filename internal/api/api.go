// Package api exposes the proxy service over HTTP. Each endpoint has its
// own controller struct so request/response shapes stay local to the
// endpoint they serve.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plurald/internal/media"
	"plurald/internal/model"
	"plurald/internal/proxy"
)

// userHeader carries the acting user's platform ID on every request.
const userHeader = "X-Plurald-User"

// NewRouter builds the full API router around the given service. Avatar
// uploads go through med.
func NewRouter(svc *proxy.Service, med media.Store) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	v1.POST("/system", NewCreateSystemController(svc).Handle())
	v1.GET("/system", NewShowSystemController(svc).Handle())
	v1.PATCH("/system", NewUpdateSystemController(svc).Handle())

	v1.GET("/personas", NewListPersonasController(svc).Handle())
	v1.POST("/personas", NewCreatePersonaController(svc).Handle())
	v1.PATCH("/personas/:name", NewUpdatePersonaController(svc).Handle())
	v1.DELETE("/personas/:name", NewDeletePersonaController(svc).Handle())
	v1.PUT("/personas/:name/avatar", NewUploadAvatarController(svc, med).Handle())

	v1.POST("/messages", NewProxyMessageController(svc).Handle())
	v1.GET("/messages/:id", NewLookupMessageController(svc).Handle())
	v1.PATCH("/messages/:id", NewEditMessageController(svc).Handle())
	v1.DELETE("/messages/:id", NewDeleteMessageController(svc).Handle())
	v1.POST("/messages/:id/reproxy", NewReproxyController(svc).Handle())

	v1.GET("/front", NewFrontersController(svc).Handle())
	v1.POST("/front", NewAddFronterController(svc).Handle())
	v1.DELETE("/front/:name", NewRemoveFronterController(svc).Handle())
	v1.POST("/front/:name/status", NewSetStatusController(svc).Handle())

	v1.POST("/switches", NewSwitchController(svc).Handle())
	v1.DELETE("/switches", NewSwitchOutController(svc).Handle())
	v1.POST("/switches/toggle", NewToggleController(svc).Handle())

	v1.GET("/history", NewHistoryController(svc).Handle())
	v1.DELETE("/history", NewDeleteHistoryController(svc).Handle())

	v1.GET("/guilds/:id", NewShowGuildController(svc).Handle())
	v1.PUT("/guilds/:id", NewUpdateGuildController(svc).Handle())

	return r
}

// actingUser extracts the caller's user ID from the request header.
// Writes a 401 and returns false when the header is missing.
func actingUser(c *gin.Context) (string, bool) {
	userID := c.GetHeader(userHeader)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + userHeader + " header"})
		return "", false
	}
	return userID, true
}

// systemFor resolves the caller's system. Writes an error response and
// returns false when the caller has no system.
func systemFor(c *gin.Context, svc *proxy.Service) (*model.System, bool) {
	userID, ok := actingUser(c)
	if !ok {
		return nil, false
	}
	sys, err := svc.SystemByOwner(userID)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return sys, true
}

// writeError maps service errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, proxy.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, proxy.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, proxy.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, proxy.ErrConfirmRequired):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
