package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"plurald/internal/proxy"
)

func renderSwitchResult(c *gin.Context, res *proxy.SwitchResult) {
	opened := make([]string, 0, len(res.Opened))
	for _, sh := range res.Opened {
		opened = append(opened, sh.Persona.Key())
	}
	closed := make([]string, 0, len(res.Closed))
	for _, sh := range res.Closed {
		closed = append(closed, sh.Persona.Key())
	}
	c.JSON(http.StatusOK, gin.H{
		"opened":  opened,
		"closed":  closed,
		"unknown": res.Unknown,
	})
}

// FrontersController lists the currently fronting personas.
type FrontersController struct {
	svc *proxy.Service
}

func NewFrontersController(svc *proxy.Service) *FrontersController {
	return &FrontersController{svc: svc}
}

func (h *FrontersController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		fronters, err := h.svc.Fronters(sys.ID)
		if err != nil {
			writeError(c, err)
			return
		}

		out := make([]gin.H, 0, len(fronters))
		for _, f := range fronters {
			name := "Unknown"
			if f.Persona != nil {
				name = f.Persona.Name
			}
			entry := gin.H{
				"persona":    name,
				"since":      f.Shift.StartTime,
				"kind":       string(f.Shift.Persona.Kind),
				"persona_id": f.Shift.Persona.ID,
			}
			for _, st := range f.Shift.Statuses {
				if st.EndTime == nil && st.Visible {
					entry["status"] = st.Text
				}
			}
			out = append(out, entry)
		}
		c.JSON(http.StatusOK, gin.H{"fronters": out})
	}
}

// SwitchController replaces the front with the named personas.
type SwitchController struct {
	svc *proxy.Service
}

func NewSwitchController(svc *proxy.Service) *SwitchController {
	return &SwitchController{svc: svc}
}

type switchRequest struct {
	Names []string `json:"names" binding:"required"`
}

func (h *SwitchController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		var req switchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := h.svc.Switch(sys.ID, req.Names)
		if err != nil {
			writeError(c, err)
			return
		}
		switchesRecorded.Inc()
		renderSwitchResult(c, res)
	}
}

// SwitchOutController closes every active shift.
type SwitchOutController struct {
	svc *proxy.Service
}

func NewSwitchOutController(svc *proxy.Service) *SwitchOutController {
	return &SwitchOutController{svc: svc}
}

func (h *SwitchOutController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		res, err := h.svc.SwitchOut(sys.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		switchesRecorded.Inc()
		renderSwitchResult(c, res)
	}
}

// ToggleController flips front membership per named persona.
type ToggleController struct {
	svc *proxy.Service
}

func NewToggleController(svc *proxy.Service) *ToggleController {
	return &ToggleController{svc: svc}
}

func (h *ToggleController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		var req switchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := h.svc.Toggle(sys.ID, req.Names)
		if err != nil {
			writeError(c, err)
			return
		}
		switchesRecorded.Inc()
		renderSwitchResult(c, res)
	}
}

// AddFronterController adds one persona to the front without closing others.
type AddFronterController struct {
	svc *proxy.Service
}

func NewAddFronterController(svc *proxy.Service) *AddFronterController {
	return &AddFronterController{svc: svc}
}

type addFronterRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *AddFronterController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		var req addFronterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sh, err := h.svc.AddFronter(sys.ID, req.Name)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"persona": req.Name,
			"since":   sh.StartTime,
		})
	}
}

// RemoveFronterController ends a single persona's active shift.
type RemoveFronterController struct {
	svc *proxy.Service
}

func NewRemoveFronterController(svc *proxy.Service) *RemoveFronterController {
	return &RemoveFronterController{svc: svc}
}

func (h *RemoveFronterController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		if err := h.svc.RemoveFronter(sys.ID, c.Param("name")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// SetStatusController attaches a status note to a fronting persona.
type SetStatusController struct {
	svc *proxy.Service
}

func NewSetStatusController(svc *proxy.Service) *SetStatusController {
	return &SetStatusController{svc: svc}
}

type setStatusRequest struct {
	Text    string `json:"text" binding:"required"`
	Visible *bool  `json:"visible"`
}

func (h *SetStatusController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		var req setStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		visible := true
		if req.Visible != nil {
			visible = *req.Visible
		}

		st, err := h.svc.SetStatus(sys.ID, c.Param("name"), req.Text, visible)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"text":    st.Text,
			"visible": st.Visible,
			"since":   st.StartTime,
		})
	}
}

// HistoryController returns the switch history, most recent first.
type HistoryController struct {
	svc *proxy.Service
}

func NewHistoryController(svc *proxy.Service) *HistoryController {
	return &HistoryController{svc: svc}
}

func (h *HistoryController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		shifts, err := h.svc.History(sys.ID)
		if err != nil {
			writeError(c, err)
			return
		}

		out := make([]gin.H, 0, len(shifts))
		for _, sh := range shifts {
			entry := gin.H{
				"persona":    sh.Persona.Key(),
				"start_time": sh.StartTime,
			}
			if sh.EndTime != nil {
				entry["end_time"] = *sh.EndTime
			}
			out = append(out, entry)
		}
		c.JSON(http.StatusOK, gin.H{"shifts": out})
	}
}

// DeleteHistoryController removes switch history. scope=latest removes the
// most recent batch, scope=all clears everything. Both require confirm=true.
type DeleteHistoryController struct {
	svc *proxy.Service
}

func NewDeleteHistoryController(svc *proxy.Service) *DeleteHistoryController {
	return &DeleteHistoryController{svc: svc}
}

func (h *DeleteHistoryController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sys, ok := systemFor(c, h.svc)
		if !ok {
			return
		}
		confirm, _ := strconv.ParseBool(c.Query("confirm"))

		var err error
		switch scope := c.DefaultQuery("scope", "latest"); scope {
		case "latest":
			err = h.svc.DeleteLatestHistory(sys.ID, confirm)
		case "all":
			err = h.svc.DeleteAllHistory(sys.ID, confirm)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be latest or all"})
			return
		}
		if err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
