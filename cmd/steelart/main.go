package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/ehdrbdndns/steelart-dashboard/internal/config"
	"github.com/ehdrbdndns/steelart-dashboard/internal/domain"
	"github.com/ehdrbdndns/steelart-dashboard/internal/infrastructure/providers"
	"github.com/ehdrbdndns/steelart-dashboard/internal/infrastructure/repository"
	"github.com/ehdrbdndns/steelart-dashboard/internal/interface/rest"
	"github.com/ehdrbdndns/steelart-dashboard/internal/service"
	"github.com/ehdrbdndns/steelart-dashboard/internal/usecase"
)

const serviceName = "steelart-dashboard"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "steelart",
	Short: "SteelArt backoffice ordering service",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the admin API for course items and home banners",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $STEELART_CONFIG or config.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = config.Path()
	}
	conf, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(newLogger(conf.Log))
	return conf, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := providers.NewDatabase(conf.Server)
	if err != nil {
		return err
	}

	if err := providers.MigrateDatabase(db); err != nil {
		return err
	}

	slog.Info("migration complete", slog.String("module", "main"))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf, err := loadConfig()
	if err != nil {
		return err
	}

	if conf.Server.EnableTrace {
		shutdown, err := setupTraceProvider(ctx, conf.Server.TraceEndpoint, serviceName)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	db, err := providers.NewDatabase(conf.Server)
	if err != nil {
		return err
	}

	if conf.Server.AutoMigrate {
		if err := providers.MigrateDatabase(db); err != nil {
			return err
		}
	}

	rdb, err := providers.NewRedis(ctx, conf.Server)
	if err != nil {
		return err
	}
	if rdb == nil {
		slog.Warn("redis not configured, change events are disabled", slog.String("module", "main"))
	}

	mc := providers.NewMemcache(conf.Server.MemcachedAddr)
	listCache := providers.NewListCache(mc, conf.Cache)
	signalService := service.NewSignalService(rdb)
	if rdb != nil {
		collections := []string{domain.CollectionCourseItems, domain.CollectionHomeBanners}
		go signalService.Follow(ctx, collections, func(event domain.CollectionEvent) {
			listCache.EvictLocal(usecase.ListCacheKey(event))
		})
	}
	opts := providers.SequencerOptions(conf.Sequence)

	courseItemRepo := repository.NewCourseItemRepository(db)
	homeBannerRepo := repository.NewHomeBannerRepository(db)

	courseItemUsecase := usecase.NewCourseItemUsecase(courseItemRepo, listCache, signalService, opts...)
	homeBannerUsecase := usecase.NewHomeBannerUsecase(homeBannerRepo, listCache, signalService, opts...)

	handler := rest.NewHandler(courseItemUsecase, homeBannerUsecase, signalService)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware(serviceName, otelecho.WithSkipper(func(c echo.Context) bool {
			return c.Path() == "/healthz" || c.Path() == "/api/admin/realtime"
		})))
	}
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler.RegisterRoutes(e)

	go func() {
		slog.Info("server started", slog.String("listen", conf.Server.Listen), slog.String("module", "main"))
		if err := e.Start(conf.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", slog.String("error", err.Error()), slog.String("module", "main"))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
