package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"
	"github.com/Evaldo-hub/associacaoufpa/internal/service"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/gin-gonic/gin"
)

const maxImportRows = 500

type PlayerHandler struct {
	Players *service.Players
}

func NewPlayerHandler(players *service.Players) *PlayerHandler {
	return &PlayerHandler{Players: players}
}

func (h *PlayerHandler) List(c *gin.Context) {
	f := service.PlayerFilter{
		ActiveOnly: c.Query("active") == "true",
		Category:   models.PlayerCategory(strings.ToUpper(c.Query("category"))),
	}
	players, err := h.Players.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"items": players, "total": len(players)})
}

func (h *PlayerHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.Players.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"player": p})
}

func (h *PlayerHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var in service.PlayerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid player payload")
		return
	}
	p, err := h.Players.Create(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"player": p})
}

func (h *PlayerHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.PlayerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid player payload")
		return
	}
	p, err := h.Players.Update(c.Request.Context(), actor, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"player": p})
}

func (h *PlayerHandler) Toggle(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.Players.ToggleActive(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"player": p})
}

// ImportCSV creates players from an uploaded "name,phone,category" file.
// Rows that fail are reported and skipped.
func (h *PlayerHandler) ImportCSV(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	file, err := fh.Open()
	if err != nil {
		badRequest(c, "could not read file")
		return
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var (
		created []models.Player
		skipped []string
	)
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			badRequest(c, fmt.Sprintf("line %d: %v", line, err))
			return
		}
		if line > maxImportRows {
			skipped = append(skipped, fmt.Sprintf("line %d: too many rows", line))
			break
		}
		if line == 1 && len(rec) > 0 {
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
			// optional header
			if strings.EqualFold(strings.TrimSpace(rec[0]), "name") {
				continue
			}
		}

		in := service.PlayerInput{Name: field(rec, 0), Phone: field(rec, 1), Category: models.PlayerCategory(field(rec, 2))}
		p, err := h.Players.Create(c.Request.Context(), actor, in)
		if err != nil {
			if errors.Is(err, service.ErrNotAuthorized) {
				respondError(c, err)
				return
			}
			skipped = append(skipped, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		created = append(created, *p)
	}

	util.Success(c, util.Response{
		"created": created,
		"skipped": skipped,
	})
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
