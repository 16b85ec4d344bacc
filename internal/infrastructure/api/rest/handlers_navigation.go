package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	derrors "hostcp/internal/domain/errors"
	"hostcp/internal/navexec"
)

type executeNavigationBody struct {
	TargetNodeID      string `json:"target_node_id"`
	TargetNodeLabel   string `json:"target_node_label"`
	DeviceID          string `json:"device_id" binding:"required"`
	CurrentNodeID     string `json:"current_node_id"`
	UserInterfaceName string `json:"userinterface_name" binding:"required"`
	ImageSourceURL    string `json:"image_source_url"`
	AsyncExecution    bool   `json:"async_execution"`
	CallbackURL       string `json:"callback_url"`
}

// handleExecuteNavigation is POST /host/navigation/execute/{tree_id}.
// async_execution is accepted for callers that expect a synchronous
// body shape elsewhere in the route table, but execution is always
// backgrounded here — the caller polls the returned execution_id.
func (s *Server) handleExecuteNavigation(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("team_id", "required query parameter missing"))
		return
	}

	var body executeNavigationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	if body.TargetNodeID == "" && body.TargetNodeLabel == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("target", "target_node_id or target_node_label required"))
		return
	}

	exec, ok := s.navExec(body.DeviceID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("device_id", "unknown device"))
		return
	}

	executionID, err := exec.ExecuteNavigation(c.Request.Context(), navexec.ExecuteNavigationRequest{
		TreeID:            c.Param("tree_id"),
		UserInterfaceName: body.UserInterfaceName,
		TeamID:            teamID,
		TargetNodeID:      body.TargetNodeID,
		TargetNodeLabel:   body.TargetNodeLabel,
		CurrentNodeID:     body.CurrentNodeID,
		CallbackURL:       body.CallbackURL,
	})
	if err != nil {
		respondErr(c, statusForError(err), err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"execution_id": executionID})
}

// handleExecutionStatus is GET /host/navigation/execution/{execution_id}/status?device_id=...
func (s *Server) handleExecutionStatus(c *gin.Context) {
	deviceID := c.Query("device_id")
	exec, ok := s.navExec(deviceID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("device_id", "unknown device"))
		return
	}

	record, ok := exec.GetExecutionStatus(c.Param("execution_id"))
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("execution_id", "unknown execution"))
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"status":     record.Status,
		"progress":   record.Progress,
		"message":    record.Message,
		"result":     record.Result,
		"error":      record.Error,
		"started_at": record.StartedAt,
		"ended_at":   record.EndedAt,
	})
}

// handlePreview is GET /host/navigation/preview/{tree_id}/{target_node_id}?device_id=...&current_node_id=...&team_id=...
func (s *Server) handlePreview(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("team_id", "required query parameter missing"))
		return
	}

	deviceID := c.Query("device_id")
	exec, ok := s.navExec(deviceID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("device_id", "unknown device"))
		return
	}

	userInterfaceName := c.Query("userinterface_name")
	path, err := exec.PreviewPath(c.Request.Context(), userInterfaceName, teamID, c.Query("current_node_id"), c.Param("target_node_id"))
	if err != nil {
		respondErr(c, statusForError(err), err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"path": path})
}
