package handler

import (
	"github.com/Evaldo-hub/associacaoufpa/internal/service"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	Reports *service.Reports
}

func NewReportHandler(reports *service.Reports) *ReportHandler {
	return &ReportHandler{Reports: reports}
}

func (h *ReportHandler) Dashboard(c *gin.Context) {
	d, err := h.Reports.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"dashboard": d})
}

func (h *ReportHandler) Rankings(c *gin.Context) {
	r, err := h.Reports.Rankings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"rankings": r})
}

func (h *ReportHandler) Scores(c *gin.Context) {
	s, err := h.Reports.ScoreStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"stats": s})
}
