package rest

import (
	"github.com/gin-gonic/gin"

	"hostcp/internal/asynctask"
	"hostcp/internal/exploration"
	"hostcp/internal/infrastructure/logger"
	"hostcp/internal/navexec"
	"hostcp/internal/navgraph"
	"hostcp/internal/store"
)

// Server is the thin HTTP route layer over the per-device navigation
// and exploration executors. It owns no domain state of its own —
// every handler reaches into a device's already-constructed Executor.
type Server struct {
	engine *gin.Engine

	navExecs  map[string]*navexec.Executor
	explorers map[string]*exploration.Executor
	cache     *navgraph.Cache
	store     store.Store
	runner    navexec.ActionRunner
	scripts   *asynctask.Manager
	log       *logger.Logger
}

func NewServer(navExecs map[string]*navexec.Executor, explorers map[string]*exploration.Executor, cache *navgraph.Cache, s store.Store, runner navexec.ActionRunner, scripts *asynctask.Manager, log *logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	srv := &Server{
		engine:    gin.New(),
		navExecs:  navExecs,
		explorers: explorers,
		cache:     cache,
		store:     s,
		runner:    runner,
		scripts:   scripts,
		log:       log,
	}
	srv.engine.Use(NewLoggingMiddleware(log).RequestLogger(), NewRecoveryMiddleware(log).Recovery())
	srv.routes()
	return srv
}

func (s *Server) Handler() *gin.Engine { return s.engine }

func (s *Server) routes() {
	host := s.engine.Group("/host")

	nav := host.Group("/navigation")
	nav.POST("/execute/:tree_id", s.handleExecuteNavigation)
	nav.GET("/execution/:execution_id/status", s.handleExecutionStatus)
	nav.GET("/preview/:tree_id/:target_node_id", s.handlePreview)
	nav.GET("/cache/check/:tree_id", s.handleCacheCheck)
	nav.POST("/cache/update-node", s.handleCacheUpdateNode)
	nav.POST("/cache/update-edge", s.handleCacheUpdateEdge)
	nav.POST("/cache/populate/:tree_id", s.handleCachePopulate)
	nav.POST("/cache/clear/:tree_id", s.handleCacheClear)

	ai := host.Group("/ai-generation")
	ai.POST("/start-exploration", s.handleStartExploration)
	ai.GET("/exploration-status/:exploration_id", s.handleExplorationStatus)
	ai.POST("/continue-exploration", s.handleContinueExploration)
	ai.POST("/start-validation", s.handleStartValidation)
	ai.POST("/validate-next-item", s.handleValidateNextItem)
	ai.POST("/start-node-verification", s.handleStartNodeVerification)
	ai.POST("/approve-node-verifications", s.handleApproveNodeVerifications)
	ai.POST("/finalize-structure", s.handleFinalizeStructure)
	ai.POST("/cancel-exploration", s.handleCancelExploration)
	ai.POST("/cleanup-temp", s.handleCleanupTemp)

	host.POST("/script/execute", s.handleScriptExecute)
}

func (s *Server) navExec(deviceID string) (*navexec.Executor, bool) {
	e, ok := s.navExecs[deviceID]
	return e, ok
}

func (s *Server) explorer(deviceID string) (*exploration.Executor, bool) {
	e, ok := s.explorers[deviceID]
	return e, ok
}
