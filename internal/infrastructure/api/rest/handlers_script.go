package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
)

type scriptExecuteBody struct {
	DeviceID    string         `json:"device_id" binding:"required"`
	Command     string         `json:"command" binding:"required"`
	ActionType  string         `json:"action_type"`
	Params      map[string]any `json:"params"`
	CallbackURL string         `json:"callback_url"`
}

// handleScriptExecute is POST /host/script/execute: a single
// fire-and-forget action run outside any navigation path, reported
// through the same callback mechanism as navigation/exploration tasks.
func (s *Server) handleScriptExecute(c *gin.Context) {
	var body scriptExecuteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}

	action := domain.Action{Command: body.Command, ActionType: body.ActionType, Params: body.Params}
	deviceID := body.DeviceID

	taskID := s.scripts.Start(c.Request.Context(), body.CallbackURL, func(ctx context.Context, progress func(int, string)) (any, error) {
		progress(0, "running "+action.Command)
		res, err := s.runner.RunAction(ctx, deviceID, action)
		if err != nil {
			return nil, derrors.NewControllerError(action.ActionType, action.Command, "script run failed", err, false)
		}
		if !res.Success {
			return nil, derrors.NewControllerError(action.ActionType, action.Command, res.Error, nil, false)
		}
		return res.ActualResult, nil
	})

	respondOK(c, http.StatusAccepted, gin.H{"task_id": taskID})
}
