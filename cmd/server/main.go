// Command server boots the host control plane: reads the host/device
// fleet from the environment, builds every per-device controller,
// executor and exploration state machine, and serves the HTTP surface.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostcp/internal/aiplanner"
	"hostcp/internal/asynctask"
	"hostcp/internal/controller"
	"hostcp/internal/domain"
	"hostcp/internal/exploration"
	"hostcp/internal/infrastructure/api/rest"
	"hostcp/internal/infrastructure/callback"
	"hostcp/internal/infrastructure/config"
	"hostcp/internal/infrastructure/logger"
	"hostcp/internal/infrastructure/monitoring"
	"hostcp/internal/infrastructure/wsstream"
	"hostcp/internal/navexec"
	"hostcp/internal/navgraph"
	"hostcp/internal/objectstore"
	"hostcp/internal/store"
	"hostcp/internal/store/memstore"
	"hostcp/internal/store/pgstore"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	reg := controller.NewRegistry(log)
	controller.RegisterDefaults(reg)
	host := config.BuildHost(cfg, reg)
	log.Info("fleet built", "host", cfg.Host.Name, "devices", len(host.Devices()))

	s := buildStore(cfg, log)

	cache := navgraph.NewCache()
	sched := navgraph.StartSweeper(cache, "@every 1h", log)
	defer sched.Stop()

	dispatcher := controller.NewDispatcher(host)
	poster := callback.New([]byte(cfg.CallbackSignKey))
	tasks := asynctask.NewManager(poster, log)
	scripts := asynctask.NewManager(poster, log)

	observers := monitoring.NewObserverManager()
	metrics := monitoring.NewMetricsCollector()
	observers.AddObserver(monitoring.NewMetricsObserver(metrics))

	hub := wsstream.NewHub(log)
	go hub.Run()
	observers.AddObserver(wsstream.NewSocketObserver(hub))

	tracer := monitoring.NewTracer()

	objects := objectstore.NewLocalStore(cfg.ObjectStoreRoot, cfg.ObjectStoreBaseURL)
	planner := aiplanner.NewOpenAIPlanner(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	loadHierarchy := childTreeHierarchyLoader(s)

	navExecs := make(map[string]*navexec.Executor)
	explorers := make(map[string]*exploration.Executor)
	for _, d := range host.Devices() {
		navExec := navexec.New(d.DeviceID, s, cache, dispatcher, tasks, log.With("device_id", d.DeviceID), observers, tracer, loadHierarchy)
		navExecs[d.DeviceID] = navExec

		engine := exploration.NewEngine(d.DeviceID, host, objects, planner)
		explorers[d.DeviceID] = exploration.New(d.DeviceID, s, cache, navExec, engine, log.With("device_id", d.DeviceID))
	}

	var auth wsstream.Authenticator = wsstream.NewNoAuth()
	if cfg.CallbackSignKey != "" {
		auth = wsstream.NewJWTAuth(cfg.CallbackSignKey)
	}
	wsHandler := wsstream.NewHandler(hub, auth, log)

	server := rest.NewServer(navExecs, explorers, cache, s, dispatcher, scripts, log)
	mux := http.NewServeMux()
	mux.Handle("/", server.Handler())
	mux.Handle("/ws/progress", wsHandler)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Host.Port),
		Handler: mux,
	}

	go func() {
		log.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "error", err.Error())
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
}

func buildStore(cfg *config.Config, log *logger.Logger) store.Store {
	if cfg.DatabaseDSN == "" {
		log.Info("no DATABASE_DSN set; using in-memory store")
		return memstore.New()
	}
	pg := pgstore.New(cfg.DatabaseDSN)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pg.Ping(ctx); err != nil {
		log.Error("database unreachable, falling back to in-memory store", "error", err.Error())
		return memstore.New()
	}
	if err := pg.InitSchema(ctx); err != nil {
		log.Error("schema init failed", "error", err.Error())
	}
	return pg
}

// childTreeHierarchyLoader walks a tree hierarchy by following each
// node's child_tree_id, since the persistence contract exposes
// per-tree lookups but no team-wide tree listing.
func childTreeHierarchyLoader(s store.Store) func(ctx context.Context, teamID, rootTreeID string) ([]navgraph.TreeData, error) {
	return func(ctx context.Context, teamID, rootTreeID string) ([]navgraph.TreeData, error) {
		var out []navgraph.TreeData
		seen := make(map[string]bool)

		var walk func(treeID string) error
		walk = func(treeID string) error {
			if seen[treeID] || len(out) >= domain.MaxTreeDepth {
				return nil
			}
			seen[treeID] = true

			full, err := s.GetFullTree(ctx, treeID, teamID)
			if err != nil {
				return err
			}
			out = append(out, navgraph.TreeData{Tree: full.Tree, Nodes: full.Nodes, Edges: full.Edges})

			for _, n := range full.Nodes {
				if n.ChildTreeID != "" {
					if err := walk(n.ChildTreeID); err != nil {
						return err
					}
				}
			}
			return nil
		}

		if err := walk(rootTreeID); err != nil {
			return nil, err
		}
		return out, nil
	}
}
