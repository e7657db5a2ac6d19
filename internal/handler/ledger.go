package handler

import (
	"strconv"

	"github.com/Evaldo-hub/associacaoufpa/internal/service"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/gin-gonic/gin"
)

// LedgerHandler exposes the cash book: statement, manual movements and
// reversals.
type LedgerHandler struct {
	Ledger  *service.Ledger
	Reports *service.Reports
}

func NewLedgerHandler(ledger *service.Ledger, reports *service.Reports) *LedgerHandler {
	return &LedgerHandler{Ledger: ledger, Reports: reports}
}

// statementFilter reads ?from=YYYY-MM-DD&to=YYYY-MM-DD&kind=...
func statementFilter(c *gin.Context) (service.StatementFilter, bool) {
	f := service.StatementFilter{Kind: c.Query("kind")}
	if raw := c.Query("from"); raw != "" {
		d, err := service.ParseDate(raw)
		if err != nil {
			badRequest(c, "invalid from date")
			return f, false
		}
		f.From = &d
	}
	if raw := c.Query("to"); raw != "" {
		d, err := service.ParseDate(raw)
		if err != nil {
			badRequest(c, "invalid to date")
			return f, false
		}
		f.To = &d
	}
	return f, true
}

func (h *LedgerHandler) Statement(c *gin.Context) {
	f, ok := statementFilter(c)
	if !ok {
		return
	}
	st, err := h.Reports.RunningBalance(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"statement": st})
}

func (h *LedgerHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entry, err := h.Ledger.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"entry": entry})
}

type movementReq struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

func (h *LedgerHandler) Income(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req movementReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid income payload")
		return
	}
	amount, err := service.ParseAmount(req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	entry, err := h.Ledger.RecordIncome(c.Request.Context(), actor, req.Description, amount)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"entry": entry})
}

func (h *LedgerHandler) Expense(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req movementReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid expense payload")
		return
	}
	amount, err := service.ParseAmount(req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	entry, err := h.Ledger.RecordExpense(c.Request.Context(), actor, req.Category, req.Description, amount)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"entry": entry})
}

func (h *LedgerHandler) Reverse(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reasonReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "reason is required")
		return
	}
	audit, err := h.Ledger.Reverse(c.Request.Context(), id, req.Reason, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"audit": audit})
}

// Audits lists reversal audits, newest first. Admin only.
func (h *LedgerHandler) Audits(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		respondError(c, service.ErrNotAuthorized)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	audits, err := h.Ledger.ListAudits(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"items": audits, "total": len(audits)})
}
