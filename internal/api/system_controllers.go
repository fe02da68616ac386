package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plurald/internal/model"
	"plurald/internal/proxy"
)

// CreateSystemController registers a system for the acting user.
type CreateSystemController struct {
	svc *proxy.Service
}

func NewCreateSystemController(svc *proxy.Service) *CreateSystemController {
	return &CreateSystemController{svc: svc}
}

type createSystemRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *CreateSystemController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actingUser(c)
		if !ok {
			return
		}
		var req createSystemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sys, err := h.svc.CreateSystem(userID, req.Name)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": sys.ID, "name": sys.Name})
	}
}

// ShowSystemController returns the acting user's system.
type ShowSystemController struct {
	svc *proxy.Service
}

func NewShowSystemController(svc *proxy.Service) *ShowSystemController {
	return &ShowSystemController{svc: svc}
}

func (h *ShowSystemController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":        sys.ID,
			"name":      sys.Name,
			"autoproxy": sys.Proxy.Style,
			"layout":    sys.Proxy.Layout,
		})
	}
}

// UpdateSystemController changes autoproxy style or name layout.
type UpdateSystemController struct {
	svc *proxy.Service
}

func NewUpdateSystemController(svc *proxy.Service) *UpdateSystemController {
	return &UpdateSystemController{svc: svc}
}

type updateSystemRequest struct {
	Autoproxy *string `json:"autoproxy"`
	Layout    *string `json:"layout"`
}

func (h *UpdateSystemController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		var req updateSystemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Autoproxy == nil && req.Layout == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
			return
		}

		if req.Autoproxy != nil {
			if err := h.svc.SetAutoproxyStyle(sys.ID, *req.Autoproxy); err != nil {
				writeError(c, err)
				return
			}
		}
		if req.Layout != nil {
			if err := h.svc.SetLayout(sys.ID, *req.Layout); err != nil {
				writeError(c, err)
				return
			}
		}
		c.Status(http.StatusNoContent)
	}
}

// ListPersonasController lists the system's personas grouped by kind.
type ListPersonasController struct {
	svc *proxy.Service
}

func NewListPersonasController(svc *proxy.Service) *ListPersonasController {
	return &ListPersonasController{svc: svc}
}

func (h *ListPersonasController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		personas, err := h.svc.ListPersonas(sys.ID)
		if err != nil {
			writeError(c, err)
			return
		}

		out := make([]gin.H, 0, len(personas))
		for _, p := range personas {
			tags := make([]string, 0, len(p.Tags))
			for _, t := range p.Tags {
				tags = append(tags, t.String())
			}
			out = append(out, gin.H{
				"id":           p.ID,
				"kind":         string(p.Kind),
				"name":         p.Name,
				"display_name": p.DisplayName,
				"avatar_url":   p.AvatarURL,
				"tags":         tags,
			})
		}
		c.JSON(http.StatusOK, gin.H{"personas": out})
	}
}

// CreatePersonaController registers a new persona with proxy tags.
type CreatePersonaController struct {
	svc *proxy.Service
}

func NewCreatePersonaController(svc *proxy.Service) *CreatePersonaController {
	return &CreatePersonaController{svc: svc}
}

type createPersonaRequest struct {
	Kind string   `json:"kind" binding:"required"`
	Name string   `json:"name" binding:"required"`
	Tags []string `json:"tags"`
}

func (h *CreatePersonaController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		var req createPersonaRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p, err := h.svc.CreatePersona(sys.ID, model.PersonaKind(req.Kind), req.Name, req.Tags)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"id":   p.ID,
			"kind": string(p.Kind),
			"name": p.Name,
		})
	}
}

// UpdatePersonaController applies a partial update to a persona by name.
type UpdatePersonaController struct {
	svc *proxy.Service
}

func NewUpdatePersonaController(svc *proxy.Service) *UpdatePersonaController {
	return &UpdatePersonaController{svc: svc}
}

type updatePersonaRequest struct {
	DisplayName *string   `json:"display_name"`
	Pronouns    *string   `json:"pronouns"`
	Caution     *string   `json:"caution"`
	Color       *string   `json:"color"`
	AvatarURL   *string   `json:"avatar_url"`
	Tags        *[]string `json:"tags"`
}

func (h *UpdatePersonaController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		var req updatePersonaRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.DisplayName == nil && req.Pronouns == nil && req.Caution == nil &&
			req.Color == nil && req.AvatarURL == nil && req.Tags == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
			return
		}

		_, err := h.svc.ModifyPersona(sys.ID, c.Param("name"), proxy.PersonaUpdate{
			DisplayName: req.DisplayName,
			Pronouns:    req.Pronouns,
			Caution:     req.Caution,
			Color:       req.Color,
			AvatarURL:   req.AvatarURL,
			Tags:        req.Tags,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// DeletePersonaController removes a persona by name.
type DeletePersonaController struct {
	svc *proxy.Service
}

func NewDeletePersonaController(svc *proxy.Service) *DeletePersonaController {
	return &DeletePersonaController{svc: svc}
}

func (h *DeletePersonaController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		if err := h.svc.DeletePersona(sys.ID, c.Param("name")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
