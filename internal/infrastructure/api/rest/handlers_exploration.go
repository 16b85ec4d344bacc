package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
)

type startExplorationBody struct {
	TreeID            string `json:"tree_id" binding:"required"`
	DeviceID          string `json:"device_id" binding:"required"`
	UserInterfaceName string `json:"userinterface_name" binding:"required"`
	StartNode         string `json:"start_node"`
	OriginalPrompt    string `json:"original_prompt"`
}

// handleStartExploration is POST /host/ai-generation/start-exploration.
// Detection and planning run inline — the route table gives this
// endpoint no execution_id to poll, only the exploration_id the
// status endpoint keys on once the context exists.
func (s *Server) handleStartExploration(c *gin.Context) {
	var body startExplorationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	explorer, ok := s.explorer(body.DeviceID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("device_id", "unknown device"))
		return
	}

	ec, err := explorer.StartExploration(c.Request.Context(), body.TreeID, body.UserInterfaceName, body.StartNode, body.OriginalPrompt)
	if err != nil {
		respondErr(c, statusForError(err), err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"exploration": ec})
}

// handleExplorationStatus is GET /host/ai-generation/exploration-status/{exploration_id}?device_id=...
// exploration_id is carried for route-table symmetry with the
// navigation status endpoint; the executor is keyed by device_id and
// holds at most one exploration at a time, so the path parameter is
// only checked against the live context's own id.
func (s *Server) handleExplorationStatus(c *gin.Context) {
	deviceID := c.Query("device_id")
	explorer, ok := s.explorer(deviceID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("device_id", "unknown device"))
		return
	}

	ec, has := explorer.Context()
	if !has {
		respondOK(c, http.StatusOK, gin.H{"state": explorer.State()})
		return
	}
	if explorationID := c.Param("exploration_id"); explorationID != "" && explorationID != ec.ExplorationID {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("exploration_id", "no such exploration in progress"))
		return
	}
	respondOK(c, http.StatusOK, gin.H{"state": explorer.State(), "exploration": ec})
}

type continueExplorationBody struct {
	DeviceID            string          `json:"device_id" binding:"required"`
	SelectedItems       []string        `json:"selected_items"`
	SelectedScreenItems map[string]bool `json:"selected_screen_items"`
}

func (s *Server) handleContinueExploration(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("team_id", "required query parameter missing"))
		return
	}
	var body continueExplorationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	explorer, ok := s.explorer(body.DeviceID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("device_id", "unknown device"))
		return
	}
	if err := explorer.ContinueExploration(c.Request.Context(), teamID, body.SelectedItems, body.SelectedScreenItems); err != nil {
		respondErr(c, statusForError(err), err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

type deviceOnlyBody struct {
	DeviceID string `json:"device_id" binding:"required"`
}

func (s *Server) handleStartValidation(c *gin.Context) {
	var body deviceOnlyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	explorer, ok := s.explorer(body.DeviceID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("device_id", "unknown device"))
		return
	}
	if err := explorer.StartValidation(); err != nil {
		respondErr(c, statusForError(err), err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

func (s *Server) handleValidateNextItem(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("team_id", "required query parameter missing"))
		return
	}
	var body deviceOnlyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	explorer, ok := s.explorer(body.DeviceID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("device_id", "unknown device"))
		return
	}
	step, err := explorer.ValidateNextItem(c.Request.Context(), teamID)
	if err != nil {
		respondErr(c, statusForError(err), err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"step": step})
}

func (s *Server) handleStartNodeVerification(c *gin.Context) {
	var body deviceOnlyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	explorer, ok := s.explorer(body.DeviceID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("device_id", "unknown device"))
		return
	}
	if err := explorer.StartNodeVerification(); err != nil {
		respondErr(c, statusForError(err), err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

type approveVerificationsBody struct {
	DeviceID string                         `json:"device_id" binding:"required"`
	Approved []domain.SuggestedVerification `json:"approved"`
}

func (s *Server) handleApproveNodeVerifications(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("team_id", "required query parameter missing"))
		return
	}
	var body approveVerificationsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	explorer, ok := s.explorer(body.DeviceID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("device_id", "unknown device"))
		return
	}
	if err := explorer.ApproveNodeVerifications(c.Request.Context(), teamID, body.Approved); err != nil {
		respondErr(c, statusForError(err), err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

func (s *Server) handleFinalizeStructure(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("team_id", "required query parameter missing"))
		return
	}
	var body deviceOnlyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	explorer, ok := s.explorer(body.DeviceID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("device_id", "unknown device"))
		return
	}
	if err := explorer.FinalizeStructure(c.Request.Context(), teamID); err != nil {
		respondErr(c, statusForError(err), err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

func (s *Server) handleCancelExploration(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("team_id", "required query parameter missing"))
		return
	}
	var body deviceOnlyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	explorer, ok := s.explorer(body.DeviceID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("device_id", "unknown device"))
		return
	}
	if err := explorer.CancelExploration(c.Request.Context(), teamID); err != nil {
		respondErr(c, statusForError(err), err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

func (s *Server) handleCleanupTemp(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("team_id", "required query parameter missing"))
		return
	}
	var body deviceOnlyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	explorer, ok := s.explorer(body.DeviceID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewConfigError("device_id", "unknown device"))
		return
	}
	if err := explorer.CleanupTemp(c.Request.Context(), teamID); err != nil {
		respondErr(c, statusForError(err), err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}
