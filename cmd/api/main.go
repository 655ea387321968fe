package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/application"
	appdiag "github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/application/diagnosis"
	"github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/config"
	domain "github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/domain/diagnosis"
	"github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/domain/diagerrors"
	aiopenai "github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/infra/ai/openai"
	"github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/infra/ai/prompt"
	mysqlp "github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/infra/db/mysql"
	postgresp "github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/infra/db/postgres"
	"github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/infra/httpserver"
	minioStore "github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/infra/storage"
	"github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect DB (driver per config)
	var (
		db      *sql.DB
		repo    domain.Repository
		errRepo diagerrors.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		repo = postgresp.NewDiagnosisRepository(db)
		errRepo = postgresp.NewDiagnosisErrorRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		repo = mysqlp.NewDiagnosisRepository(db)
		errRepo = mysqlp.NewDiagnosisErrorRepository(db)
	}
	defer db.Close()

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	// init analyzer
	var analyzer domain.Analyzer
	if cfg.Analysis.UseHeuristic || cfg.OpenAI.APIKey == "" {
		log.Println("no model key configured, using offline heuristic analyzer")
		analyzer = prompt.Heuristic{}
	} else {
		analyzer = aiopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	}

	// init service
	svc := &appdiag.Service{
		Repo:        repo,
		Errors:      errRepo,
		Analyzer:    analyzer,
		Images:      store,
		Clock:       application.SystemClock{},
		StrictParse: cfg.Analysis.StrictParse,
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	if len(cfg.Auth.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	}
	if cfg.RateLimit.Capacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	}

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database":    &middleware.DatabaseHealthChecker{DB: db},
		"objectstore": &middleware.PingHealthChecker{Target: store},
	}))
	mux.Get("/metrics", middleware.MetricsHandler())
	mux.Mount("/", httpserver.NewRouter(svc, cfg.Analysis.MaxImageBytes))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // model calls are slow
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
