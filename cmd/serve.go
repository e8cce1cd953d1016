package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tpeters15/theme-score-nexus/internal/api"
	"github.com/tpeters15/theme-score-nexus/internal/classify"
	"github.com/tpeters15/theme-score-nexus/internal/docstore"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the research platform API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		docs, err := docstore.New(cfg.Documents.Root)
		if err != nil {
			return err
		}

		// The classify endpoint is optional; without an Anthropic key the
		// rest of the API still serves.
		var classifier *classify.Classifier
		if cfg.Anthropic.Key != "" {
			classifier, err = buildClassifier(st)
			if err != nil {
				return err
			}
		} else {
			zap.L().Warn("serve: no anthropic key configured, classification disabled")
		}

		server := api.NewServer(st, docs, classifier, cfg.Server)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: server.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
