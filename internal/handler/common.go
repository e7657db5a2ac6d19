package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"
	"github.com/Evaldo-hub/associacaoufpa/internal/service"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CurrentUserKey is where AuthMiddleware stores the authenticated user.
const CurrentUserKey = "currentUser"

func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return nil, false
	}
	user, ok := v.(*models.User)
	if !ok || user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return nil, false
	}
	return user, true
}

func currentActor(c *gin.Context) (service.Actor, bool) {
	user, ok := currentUser(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.ActorFromUser(user), true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// Status maps a service error to its HTTP status and business code.
func Status(err error) (int, int) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidYear),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrReasonRequired):
		return http.StatusBadRequest, util.CodeInvalidParam
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, util.CodeAuth
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden, util.CodeForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, util.CodeNotFound
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict, util.CodeConflict
	case errors.Is(err, service.ErrNotReversible), errors.Is(err, service.ErrNotDues):
		return http.StatusUnprocessableEntity, util.CodeUnprocessable
	case errors.Is(err, service.ErrLocked):
		return http.StatusLocked, util.CodeLocked
	}
	return http.StatusInternalServerError, util.CodeServerErr
}

func respondError(c *gin.Context, err error) {
	status, code := Status(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		util.Error(c, status, code, "internal error")
		return
	}
	util.Error(c, status, code, err.Error())
}

func badRequest(c *gin.Context, msg string) {
	util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msg)
}
