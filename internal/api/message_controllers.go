package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plurald/internal/proxy"
)

// ProxyMessageController handles message ingestion: tag matching,
// autoproxy resolution, and webhook delivery.
type ProxyMessageController struct {
	svc *proxy.Service
}

func NewProxyMessageController(svc *proxy.Service) *ProxyMessageController {
	return &ProxyMessageController{svc: svc}
}

type proxyMessageRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
	GuildID   string `json:"guild_id"`
	Text      string `json:"text" binding:"required"`
}

func (h *ProxyMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actingUser(c)
		if !ok {
			return
		}
		var req proxyMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := h.svc.ProxyMessageInGuild(c.Request.Context(), userID, req.GuildID, req.ChannelID, req.Text)
		if err != nil {
			messagesProxied.WithLabelValues("error").Inc()
			writeError(c, err)
			return
		}

		if !res.Proxied {
			messagesProxied.WithLabelValues("passthrough").Inc()
			c.JSON(http.StatusOK, gin.H{"proxied": false, "content": res.Content})
			return
		}

		messagesProxied.WithLabelValues("proxied").Inc()
		c.JSON(http.StatusCreated, gin.H{
			"proxied":      true,
			"external_id":  res.ExternalID,
			"display_name": res.DisplayName,
			"content":      res.Content,
			"persona":      res.Persona.Name,
		})
	}
}

// LookupMessageController resolves a delivered message back to its persona.
type LookupMessageController struct {
	svc *proxy.Service
}

func NewLookupMessageController(svc *proxy.Service) *LookupMessageController {
	return &LookupMessageController{svc: svc}
}

func (h *LookupMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, persona, err := h.svc.LookupMessage(c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}

		personaName := "Unknown"
		if persona != nil {
			personaName = persona.Name
		}
		c.JSON(http.StatusOK, gin.H{
			"external_id": rec.ExternalID,
			"channel_id":  rec.ChannelID,
			"author":      rec.AuthorUserID,
			"persona":     personaName,
			"created_at":  rec.CreatedAt,
		})
	}
}

// EditMessageController rewrites the content of a delivered message.
type EditMessageController struct {
	svc *proxy.Service
}

func NewEditMessageController(svc *proxy.Service) *EditMessageController {
	return &EditMessageController{svc: svc}
}

type editMessageRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

func (h *EditMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actingUser(c)
		if !ok {
			return
		}
		var req editMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rec, err := h.svc.EditMessage(c.Request.Context(), userID, req.ChannelID, c.Param("id"), req.Content)
		if err != nil {
			writeError(c, err)
			return
		}

		webhookEdits.WithLabelValues("edit").Inc()
		c.JSON(http.StatusOK, gin.H{
			"external_id": rec.ExternalID,
			"content":     rec.Content,
			"edited_at":   rec.EditedAt,
		})
	}
}

// DeleteMessageController removes a delivered message and its record.
type DeleteMessageController struct {
	svc *proxy.Service
}

func NewDeleteMessageController(svc *proxy.Service) *DeleteMessageController {
	return &DeleteMessageController{svc: svc}
}

func (h *DeleteMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actingUser(c)
		if !ok {
			return
		}

		err := h.svc.DeleteMessage(c.Request.Context(), userID, c.Query("channel_id"), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}

		webhookEdits.WithLabelValues("delete").Inc()
		c.Status(http.StatusNoContent)
	}
}

// ReproxyController re-attributes a recent message to a different persona.
type ReproxyController struct {
	svc *proxy.Service
}

func NewReproxyController(svc *proxy.Service) *ReproxyController {
	return &ReproxyController{svc: svc}
}

type reproxyRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
	Persona   string `json:"persona" binding:"required"`
}

func (h *ReproxyController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actingUser(c)
		if !ok {
			return
		}
		var req reproxyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rec, err := h.svc.Reproxy(c.Request.Context(), userID, req.ChannelID, c.Param("id"), req.Persona)
		if err != nil {
			writeError(c, err)
			return
		}

		webhookEdits.WithLabelValues("reproxy").Inc()
		c.JSON(http.StatusOK, gin.H{
			"external_id": rec.ExternalID,
			"persona":     req.Persona,
		})
	}
}
