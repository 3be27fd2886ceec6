package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/casino-builder/internal/game"
	"github.com/wfunc/casino-builder/internal/middleware"
	"github.com/wfunc/casino-builder/internal/service"
	"go.uber.org/zap"
)

// CasinoHandler 赌场配置处理器
type CasinoHandler struct {
	casinos service.CasinoService
	games   *game.GameService
	logger  *zap.Logger
}

// NewCasinoHandler 创建赌场处理器
func NewCasinoHandler(casinos service.CasinoService, games *game.GameService, logger *zap.Logger) *CasinoHandler {
	return &CasinoHandler{casinos: casinos, games: games, logger: logger}
}

// Create POST /api/v1/casinos
func (h *CasinoHandler) Create(c *gin.Context) {
	var req service.CasinoRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.casinos.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, resp)
}

// List GET /api/v1/casinos
func (h *CasinoHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	casinos, p, err := h.casinos.List(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, ListData{Items: casinos, Total: p.Total, Page: p.Page, PageSize: p.PageSize})
}

// Get GET /api/v1/casinos/:id
func (h *CasinoHandler) Get(c *gin.Context) {
	casino, err := h.casinos.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, casino)
}

// Update PUT /api/v1/casinos/:id，需要编辑令牌
func (h *CasinoHandler) Update(c *gin.Context) {
	var req service.CasinoRequest
	if !bindJSON(c, &req) {
		return
	}
	casinoID := editedCasino(c)
	casino, err := h.casinos.Update(c.Request.Context(), casinoID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	h.logEdit(c, "赌场配置已更新", casinoID)
	ok(c, http.StatusOK, casino)
}

// Delete DELETE /api/v1/casinos/:id，需要编辑令牌
func (h *CasinoHandler) Delete(c *gin.Context) {
	casinoID := editedCasino(c)
	if err := h.casinos.Delete(c.Request.Context(), casinoID); err != nil {
		fail(c, err)
		return
	}
	h.logEdit(c, "赌场已删除", casinoID)
	c.Status(http.StatusNoContent)
}

// editedCasino 编辑令牌对应的赌场，中间件已保证与路径参数一致
func editedCasino(c *gin.Context) string {
	if id, ok := middleware.GetCasinoID(c); ok {
		return id
	}
	return c.Param("id")
}

func (h *CasinoHandler) logEdit(c *gin.Context, msg, casinoID string) {
	owner, _ := middleware.GetOwner(c)
	h.logger.Info(msg,
		zap.String("casino_id", casinoID),
		zap.String("owner", owner),
		zap.String("request_id", middleware.GetRequestID(c)))
}

// CreateSession POST /api/v1/casinos/:id/slots/sessions
func (h *CasinoHandler) CreateSession(c *gin.Context) {
	resp, err := h.games.CreateSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.logger.Info("老虎机会话已创建",
		zap.String("casino_id", c.Param("id")),
		zap.String("session_id", resp.SessionID))
	ok(c, http.StatusCreated, resp)
}
