package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pdfhistory/internal/handler"
	"pdfhistory/internal/preview"
	"pdfhistory/internal/repository"
	"pdfhistory/internal/service"
	"pdfhistory/internal/service/s3"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg := appConfig

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing database connection")
		}
	}()

	s3Client, err := s3.NewClient(ctx, &cfg.S3)
	if err != nil {
		return errors.Wrap(err, "failed to create S3 client")
	}

	params, closeParams, err := newParamStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeParams()

	cache := service.NewProcessingCache(cfg.Cache)
	history := service.NewHistoryService(repository.NewFileVersionRepository(db), s3Client, cache)
	resolver := preview.NewResolver(
		history,
		preview.NewImageGenerator(cfg.Thumbnail),
		preview.WithLargeFileThreshold(cfg.Thumbnail.LargeFileThreshold),
	)

	router := handler.NewRouter(
		handler.RouterConfig{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RequestTimeout: cfg.Server.RequestTimeout,
		},
		handler.NewFileHandler(history),
		handler.NewCacheHandler(history),
		handler.NewParamsHandler(params, cfg.Params.Namespace),
		preview.NewHandler(resolver, history),
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "failed to start HTTP server")
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "HTTP server forced to shutdown")
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server exited properly")
	return nil
}
