package main

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// CreateUser godoc
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Success      201  {object}  APIResponse
// @Failure      400  {object}  APIError
// @Router       /users [post]
func (api *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	var req UserRequest
	err := DecodeUserRequestBody(r, &req)
	var verr *ValidationError
	if err != nil && !errors.As(err, &verr) {
		logger.Error("failed to decode user payload", zap.Error(err))
		api.replyError(w, r, http.StatusBadRequest, ErrInvalidPayload.Error(), nil)
		return
	}

	var user User
	if err == nil {
		user, err = api.userService.Add(r.Context(), req)
	}
	switch {
	case errors.As(err, &verr):
		logger.Error("invalid user data", zap.Strings("errors", verr.Violations()))
		api.replyError(w, r, http.StatusBadRequest, "invalid user data", verr.Violations())
		return
	case errors.Is(err, ErrUserConflict):
		logger.Error("user already exists", zap.String("user.name", req.Username))
		api.replyError(w, r, http.StatusBadRequest, ErrUserConflict.Error(), nil)
		return
	case err != nil:
		logger.Error("failed to create user", zap.Error(err))
		api.replyError(w, r, http.StatusInternalServerError, "failed to create the user", nil)
		return
	}

	logger.Info("success to create user", zap.Int64("user.id", user.ID))
	api.reply(w, r, http.StatusCreated, "User created successfully.", nil, user)
}
