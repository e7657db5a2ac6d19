package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"
	"github.com/Evaldo-hub/associacaoufpa/internal/service"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves login and the current user's account.
type AuthHandler struct {
	Users     *service.Users
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

func NewAuthHandler(users *service.Users, jwtSecret, issuer string, ttlHours int) *AuthHandler {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	return &AuthHandler{
		Users:     users,
		JWTSecret: jwtSecret,
		Issuer:    issuer,
		TokenTTL:  time.Duration(ttlHours) * time.Hour,
	}
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}

	user, err := h.Users.Login(c.Request.Context(), strings.TrimSpace(req.Username), req.Password, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := util.GenerateToken(h.JWTSecret, h.Issuer, user.ID, user.Role, h.TokenTTL)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not issue token")
		return
	}

	util.Success(c, util.Response{
		"token":      token,
		"expires_in": int(h.TokenTTL.Seconds()),
		"user":       userView(user),
	})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	util.Success(c, util.Response{"user": userView(user)})
}

type changePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// ChangePassword lets a user replace their own password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "new password must have 6 to 72 characters")
		return
	}
	if !util.CheckPassword(req.OldPassword, user.PasswordHash) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "current password is wrong")
		return
	}

	if err := h.Users.SetPassword(c.Request.Context(), service.ActorFromUser(user), user.ID, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"message": "password updated"})
}

func userView(u *models.User) gin.H {
	view := gin.H{
		"id":            u.ID,
		"username":      u.Username,
		"email":         u.Email,
		"role":          u.Role,
		"active":        u.Active,
		"player_id":     u.PlayerID,
		"last_login_at": u.LastLoginAt,
	}
	if u.Player != nil {
		view["player_name"] = u.Player.Name
	}
	return view
}
