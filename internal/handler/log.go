package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LogHandler lists the access log written by middleware.AccessLog.
type LogHandler struct {
	DB *gorm.DB
}

func NewLogHandler(db *gorm.DB) *LogHandler {
	return &LogHandler{DB: db}
}

// ListLogs pages through access logs. Admins see everyone's requests and
// may filter by user_id; other users only see their own.
// Query: page, page_size, from, to (YYYY-MM-DD), keyword (path contains).
func (h *LogHandler) ListLogs(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if size <= 0 || size > 100 {
		size = 20
	}

	q := h.DB.WithContext(c.Request.Context()).Model(&models.AccessLog{})
	if user.IsAdmin() {
		if raw := c.Query("user_id"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				badRequest(c, "invalid user_id")
				return
			}
			q = q.Where("user_id = ?", id)
		}
	} else {
		q = q.Where("user_id = ?", user.ID)
	}

	if from := c.Query("from"); from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, time.Local)
		if err != nil {
			badRequest(c, "invalid from date")
			return
		}
		q = q.Where("created_at >= ?", t)
	}
	if to := c.Query("to"); to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, time.Local)
		if err != nil {
			badRequest(c, "invalid to date")
			return
		}
		q = q.Where("created_at < ?", t.Add(24*time.Hour))
	}
	if kw := strings.TrimSpace(c.Query("keyword")); kw != "" {
		q = q.Where("path LIKE ?", "%"+kw+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not count logs")
		return
	}

	var logs []models.AccessLog
	if err := q.Order("created_at DESC, id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&logs).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not list logs")
		return
	}

	util.Success(c, util.Response{
		"items":     logs,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}
