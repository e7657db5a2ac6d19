package handler

import (
	"github.com/Evaldo-hub/associacaoufpa/internal/service"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/gin-gonic/gin"
)

// UserHandler administers accounts.
type UserHandler struct {
	Users *service.Users
}

func NewUserHandler(users *service.Users) *UserHandler {
	return &UserHandler{Users: users}
}

func (h *UserHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	users, err := h.Users.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]gin.H, 0, len(users))
	for i := range users {
		items = append(items, userView(&users[i]))
	}
	util.Success(c, util.Response{"items": items, "total": len(items)})
}

type grantReq struct {
	PlayerID uint   `json:"player_id" binding:"required"`
	Role     string `json:"role"`
}

// Grant creates or promotes the account of a player. The temporary password
// is only present for new accounts.
func (h *UserHandler) Grant(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req grantReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "player_id is required")
		return
	}
	user, temp, err := h.Users.GrantAccess(c.Request.Context(), actor, req.PlayerID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := util.Response{"user": userView(user)}
	if temp != "" {
		resp["temporary_password"] = temp
	}
	util.Success(c, resp)
}

type setPasswordReq struct {
	Password string `json:"password" binding:"required"`
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "password is required")
		return
	}
	if err := h.Users.SetPassword(c.Request.Context(), actor, id, req.Password); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"message": "password updated"})
}

func (h *UserHandler) Remove(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Users.RemoveUser(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"message": "user removed"})
}
