package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plurald/internal/model"
	"plurald/internal/proxy"
)

// ShowGuildController returns a guild's proxy settings.
type ShowGuildController struct {
	svc *proxy.Service
}

func NewShowGuildController(svc *proxy.Service) *ShowGuildController {
	return &ShowGuildController{svc: svc}
}

func (h *ShowGuildController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := actingUser(c); !ok {
			return
		}
		g, err := h.svc.GuildSettings(c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":             g.ID,
			"proxy_enabled":  g.ProxyEnabled,
			"log_channel_id": g.LogChannelID,
		})
	}
}

// UpdateGuildController replaces a guild's proxy settings.
type UpdateGuildController struct {
	svc *proxy.Service
}

func NewUpdateGuildController(svc *proxy.Service) *UpdateGuildController {
	return &UpdateGuildController{svc: svc}
}

type updateGuildRequest struct {
	ProxyEnabled *bool  `json:"proxy_enabled"`
	LogChannelID string `json:"log_channel_id"`
}

func (h *UpdateGuildController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := actingUser(c); !ok {
			return
		}
		var req updateGuildRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		enabled := true
		if req.ProxyEnabled != nil {
			enabled = *req.ProxyEnabled
		}
		g := &model.Guild{
			ID:           c.Param("id"),
			ProxyEnabled: enabled,
			LogChannelID: req.LogChannelID,
		}
		if err := h.svc.SetGuildSettings(g); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
