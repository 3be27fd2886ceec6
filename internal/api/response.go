package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/middleware"
)

// Response 成功响应
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ListData 分页列表
type ListData struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success:   true,
		Data:      data,
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now().Unix(),
	})
}

func fail(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// bindJSON 解析请求体，失败时已写入错误响应
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		fail(c, apperrors.Wrap(err, apperrors.ErrInvalidParam))
		return false
	}
	return true
}

// pageParams 读取分页参数，非法值交给分页器兜底
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	return page, pageSize
}

func noRoute(c *gin.Context) {
	fail(c, apperrors.New(apperrors.ErrNotFound, c.Request.Method+" "+c.Request.URL.Path))
}
