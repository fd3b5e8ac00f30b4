package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/auth"
	authPostgres "github.com/faxsign/faxsign/internal/auth/postgres"
	"github.com/faxsign/faxsign/internal/department"
	departmentPostgres "github.com/faxsign/faxsign/internal/department/postgres"
	"github.com/faxsign/faxsign/internal/fax"
	faxPostgres "github.com/faxsign/faxsign/internal/fax/postgres"
	"github.com/faxsign/faxsign/internal/storage"
	"github.com/faxsign/faxsign/internal/transport/rest"
	"github.com/faxsign/faxsign/internal/user"
	userPostgres "github.com/faxsign/faxsign/internal/user/postgres"
	"github.com/faxsign/faxsign/internal/workflow"
	workflowPostgres "github.com/faxsign/faxsign/internal/workflow/postgres"
	"github.com/faxsign/faxsign/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config

	gormDB, err := gorm.Open(gormpg.New(gormpg.Config{Conn: deps.DB.DB}), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to open gorm connection: %w", err)
	}

	store, err := storage.NewLocalStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize file store: %w", err)
	}

	tokenGen := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.TokenDuration)
	authService := auth.NewService(authPostgres.NewRepository(gormDB), tokenGen, cfg.Security.BCryptCost, deps.Logger)
	authHandler := auth.NewHandler(authService)

	userService := user.NewService(userPostgres.NewUserRepository(gormDB), deps.Logger)
	userHandler := user.NewHandler(userService)

	departmentService := department.NewService(departmentPostgres.NewDepartmentRepository(gormDB), deps.Logger)
	departmentHandler := department.NewHandler(departmentService)

	faxService := fax.NewService(faxPostgres.NewFaxRepository(gormDB), store, cfg.Storage, deps.Logger)
	faxHandler := fax.NewHandler(faxService, cfg.Storage.MaxFileSize)

	workflowService := workflow.NewService(workflowPostgres.NewWorkflowRepository(gormDB), faxService, deps.Logger)
	workflowHandler := workflow.NewHandler(workflowService)

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB,
		authHandler, userHandler, departmentHandler, faxHandler, workflowHandler,
		cfg.Server.AllowedOrigins, deps.Logger)
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: logger.L(),
		DB:     db,
		Router: chi.NewRouter(),
	}, nil
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
