package handler

import (
	"github.com/Evaldo-hub/associacaoufpa/internal/service"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/gin-gonic/gin"
)

// MatchHandler serves fixtures, their attendance and settlement.
type MatchHandler struct {
	Matches    *service.Matches
	Settlement *service.Settlement
}

func NewMatchHandler(matches *service.Matches, settlement *service.Settlement) *MatchHandler {
	return &MatchHandler{Matches: matches, Settlement: settlement}
}

func (h *MatchHandler) List(c *gin.Context) {
	matches, err := h.Matches.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]gin.H, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		items = append(items, gin.H{"match": m, "score": m.ScoreLabel()})
	}
	util.Success(c, util.Response{"items": items, "total": len(items)})
}

func (h *MatchHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var in service.MatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid match payload")
		return
	}
	m, err := h.Matches.Create(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"match": m})
}

func (h *MatchHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.MatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid match payload")
		return
	}
	m, err := h.Matches.Update(c.Request.Context(), actor, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"match": m})
}

func (h *MatchHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Matches.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"message": "match deleted"})
}

// Sheet returns the match with its attendance rows and cash totals.
func (h *MatchHandler) Sheet(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sheet, err := h.Settlement.MatchSheet(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"sheet": sheet, "score": sheet.Match.ScoreLabel()})
}

func (h *MatchHandler) RecordScore(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.ScoreInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid score payload")
		return
	}
	m, err := h.Matches.RecordScore(c.Request.Context(), actor, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"match": m, "score": m.ScoreLabel()})
}

func (h *MatchHandler) RecordReport(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var rep service.TechnicalReport
	if err := c.ShouldBindJSON(&rep); err != nil {
		badRequest(c, "invalid report payload")
		return
	}
	m, coerced, err := h.Matches.RecordTechnicalReport(c.Request.Context(), actor, id, rep)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"match": m, "coerced": coerced})
}

type participantReq struct {
	PlayerID uint `json:"player_id"`
}

// AddParticipant adds a player to the match. Players without admin rights
// always add themselves.
func (h *MatchHandler) AddParticipant(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req participantReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid participant payload")
			return
		}
	}
	if actor.IsAdmin() && req.PlayerID == 0 {
		badRequest(c, "player_id is required")
		return
	}
	row, err := h.Settlement.AddParticipant(c.Request.Context(), id, req.PlayerID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"attendance": row})
}

func (h *MatchHandler) RemoveParticipant(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	playerID, ok := pathID(c, "player_id")
	if !ok {
		return
	}
	if err := h.Settlement.RemoveParticipant(c.Request.Context(), id, playerID, actor); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"message": "participant removed"})
}

// UpdateAttendance applies one submission of the match sheet.
func (h *MatchHandler) UpdateAttendance(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var batch service.AttendanceBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		badRequest(c, "invalid attendance payload")
		return
	}
	res, err := h.Settlement.UpdateAttendance(c.Request.Context(), id, batch, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"result": res})
}

type reasonReq struct {
	Reason string `json:"reason"`
}

func (h *MatchHandler) RetractPayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	playerID, ok := pathID(c, "player_id")
	if !ok {
		return
	}
	var req reasonReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "reason is required")
		return
	}
	audits, err := h.Settlement.RetractPayment(c.Request.Context(), id, playerID, req.Reason, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"audits": audits})
}
