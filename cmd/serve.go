package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourschools/ingest-cli/internal/enrich"
	"github.com/yourschools/ingest-cli/internal/ingest"
	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/pipeline"
	"github.com/yourschools/ingest-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger server",
	Long:  "Exposes ingestion and enrichment as HTTP endpoints so schedulers can trigger them remotely.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/ingest", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Sources []string `json:"sources"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		sources, err := parseSources(body.Sources)
		if err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
			return
		}

		registry := ingest.NewRegistry(cfg.Sources, newFetchClient())
		engine := pipeline.NewEngine(st)

		results, err := pipeline.RunSources(req.Context(), st, engine, registry, sources)
		if err != nil {
			zap.L().Error("ingest trigger failed", zap.Error(err))
			http.Error(w, `{"error":"ingestion failed"}`, http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]any{
			"succeeded": model.Succeeded(results),
			"results":   results,
		})
	})

	r.Post("/api/enrich", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Limit  int  `json:"limit"`
			DryRun bool `json:"dry_run"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		limit := body.Limit
		if limit == 0 {
			limit = cfg.Enrich.Limit
		}

		client := newFetchClient()
		engine := enrich.NewEngine(st, enrich.NewDuckDuckGoProvider(client), client, cfg.Enrich.CacheTTL())

		result, err := engine.Run(req.Context(), enrich.Options{Limit: limit, DryRun: body.DryRun})
		if err != nil {
			zap.L().Error("enrich trigger failed", zap.Error(err))
			http.Error(w, `{"error":"enrichment failed"}`, http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
