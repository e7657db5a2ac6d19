package handler

import (
	"strconv"
	"strings"

	"github.com/Evaldo-hub/associacaoufpa/internal/service"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type DuesHandler struct {
	Dues *service.Dues

	// DefaultAmount is charged when a request leaves amount empty.
	DefaultAmount decimal.Decimal
}

func NewDuesHandler(dues *service.Dues, defaultAmount decimal.Decimal) *DuesHandler {
	return &DuesHandler{Dues: dues, DefaultAmount: defaultAmount}
}

// List groups dues per member.
func (h *DuesHandler) List(c *gin.Context) {
	f, ok := duesFilter(c)
	if !ok {
		return
	}
	report, err := h.Dues.ListDues(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"report": report})
}

// duesFilter reads the optional month, year and player_id query params.
func duesFilter(c *gin.Context) (service.DuesFilter, bool) {
	f := service.DuesFilter{Month: c.Query("month")}
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid year")
			return f, false
		}
		f.Year = y
	}
	if raw := c.Query("player_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid player_id")
			return f, false
		}
		f.PlayerID = uint(id)
	}
	return f, true
}

type duesReq struct {
	PlayerID uint   `json:"player_id"`
	Month    string `json:"month"`
	Year     int    `json:"year"`
	Amount   string `json:"amount"`
}

func (h *DuesHandler) Post(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req duesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid dues payload")
		return
	}
	amount := h.DefaultAmount
	if strings.TrimSpace(req.Amount) != "" {
		var err error
		if amount, err = service.ParseAmount(req.Amount); err != nil {
			respondError(c, err)
			return
		}
	}
	entry, err := h.Dues.PostDues(c.Request.Context(), service.DuesInput{
		PlayerID: req.PlayerID,
		Month:    req.Month,
		Year:     req.Year,
		Amount:   amount,
	}, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"entry": entry})
}

// Reverse undoes a dues charge. The reason is optional here.
func (h *DuesHandler) Reverse(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reasonReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid reversal payload")
			return
		}
	}
	audit, err := h.Dues.ReverseDues(c.Request.Context(), id, req.Reason, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"audit": audit})
}
