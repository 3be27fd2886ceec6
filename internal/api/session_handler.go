package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/casino-builder/internal/game"
)

// SpinRequest 转动请求
type SpinRequest struct {
	Bet float64 `json:"bet" binding:"required,gt=0"`
}

// SessionHandler 老虎机会话处理器
type SessionHandler struct {
	games *game.GameService
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(games *game.GameService) *SessionHandler {
	return &SessionHandler{games: games}
}

// Get GET /api/v1/slots/sessions/:sid
func (h *SessionHandler) Get(c *gin.Context) {
	info, err := h.games.GetSession(c.Request.Context(), c.Param("sid"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, info)
}

// Delete DELETE /api/v1/slots/sessions/:sid
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.games.EndSession(c.Request.Context(), c.Param("sid")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Spin POST /api/v1/slots/sessions/:sid/spin
func (h *SessionHandler) Spin(c *gin.Context) {
	var req SpinRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.games.Spin(c.Request.Context(), c.Param("sid"), req.Bet)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// Skip POST /api/v1/slots/sessions/:sid/skip
func (h *SessionHandler) Skip(c *gin.Context) {
	sid := c.Param("sid")
	if err := h.games.Skip(c.Request.Context(), sid); err != nil {
		fail(c, err)
		return
	}
	info, err := h.games.GetSession(c.Request.Context(), sid)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, info)
}

// History GET /api/v1/slots/sessions/:sid/history
func (h *SessionHandler) History(c *gin.Context) {
	page, pageSize := pageParams(c)
	records, p, err := h.games.History(c.Request.Context(), c.Param("sid"), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, ListData{Items: records, Total: p.Total, Page: p.Page, PageSize: p.PageSize})
}
