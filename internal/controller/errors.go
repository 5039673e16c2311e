package controller

import (
	"aptitude_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务错误到 HTTP 状态码的映射，未列出的错误按 500 处理
var errorStatus = []struct {
	err  error
	code int
}{
	{util.ErrMissingFields, http.StatusBadRequest},
	{util.ErrInvalidEmail, http.StatusBadRequest},
	{util.ErrPasswordMismatch, http.StatusBadRequest},
	{util.ErrPasswordTooShort, http.StatusBadRequest},
	{util.ErrInvalidGender, http.StatusBadRequest},
	{util.ErrUnknownQuestion, http.StatusBadRequest},
	{util.ErrAnswerOutOfRange, http.StatusBadRequest},
	{util.ErrTestHasNoQuestions, http.StatusBadRequest},
	{util.ErrInvalidCredentials, http.StatusUnauthorized},
	{util.ErrInvalidToken, http.StatusUnauthorized},
	{util.ErrSessionNotOwned, http.StatusForbidden},
	{util.ErrRetakeNotAllowed, http.StatusForbidden},
	{util.ErrTestNotPublished, http.StatusForbidden},
	{util.ErrStudentNotFound, http.StatusNotFound},
	{util.ErrTestNotFound, http.StatusNotFound},
	{util.ErrSessionNotFound, http.StatusNotFound},
	{util.ErrEmailRegistered, http.StatusConflict},
	{util.ErrTestAlreadySubmitted, http.StatusConflict},
	{util.ErrSubmitInProgress, http.StatusConflict},
	{util.ErrSessionStarting, http.StatusConflict},
	{util.ErrSessionInProgress, http.StatusConflict},
	{util.ErrSessionExpired, http.StatusGone},
}

func respondError(ctx *gin.Context, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			util.Error(ctx, e.code, err.Error())
			return
		}
	}
	util.LogInternalError(ctx, err)
}
