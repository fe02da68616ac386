package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plurald/internal/media"
	"plurald/internal/proxy"
)

// UploadAvatarController stores a persona's avatar image and points the
// persona at its public URL. The request body is the raw image; the
// Content-Type header carries the image type.
type UploadAvatarController struct {
	svc *proxy.Service
	med media.Store
}

func NewUploadAvatarController(svc *proxy.Service, med media.Store) *UploadAvatarController {
	return &UploadAvatarController{svc: svc, med: med}
}

func (h *UploadAvatarController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		p, err := h.svc.Persona(sys.ID, c.Param("name"))
		if err != nil {
			writeError(c, err)
			return
		}

		contentType := c.ContentType()
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		// Keyed by persona id, so a re-upload replaces the old avatar.
		key := media.AvatarKey(p.ID)
		if err := h.med.Put(c.Request.Context(), key, c.Request.Body, c.Request.ContentLength, contentType); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		url := h.med.URL(key)
		if _, err := h.svc.ModifyPersona(sys.ID, p.Name, proxy.PersonaUpdate{AvatarURL: &url}); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"avatar_url": url})
	}
}
