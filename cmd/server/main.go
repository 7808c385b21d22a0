package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"digital-wallet/internal/auth"
	"digital-wallet/internal/backup"
	"digital-wallet/internal/config"
	apphttp "digital-wallet/internal/http"
	"digital-wallet/internal/repository/sqlite"
	"digital-wallet/internal/service"
	"digital-wallet/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}
	if strings.TrimSpace(cfg.Master.Password) == "" {
		logger.Fatalf("master account password is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	customerRepo := sqlite.NewCustomerRepository(db)
	allocator := sqlite.NewSequenceRepository(db, cfg.Account.NumberFloor, cfg.Account.NumberStep)

	if err := customerRepo.Init(ctx); err != nil {
		logger.Fatalf("init customer repository: %v", err)
	}
	if err := allocator.Init(ctx); err != nil {
		logger.Fatalf("init account number allocator: %v", err)
	}

	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)

	customerService := service.NewCustomerService(customerRepo, allocator, hasher, service.MasterAccount{
		AccountNumber: cfg.Master.AccountNumber,
		Email:         cfg.Master.Email,
		Password:      cfg.Master.Password,
	})
	authService := service.NewAuthService(customerRepo, hasher, tokens)

	master, err := customerService.EnsureMasterAccount(ctx)
	if err != nil {
		logger.Fatalf("bootstrap master account: %v", err)
	}
	logger.Infof("master account ready (account number %d)", master.AccountNumber)

	var storageSvc storage.Service
	var backupMgr *backup.Manager
	if cfg.Storage.Bucket != "" {
		storageSvc, err = buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}

		backupMgr = backup.NewManager(backup.Config{
			DB:       db,
			Interval: time.Duration(cfg.Storage.SnapshotIntervalMinutes) * time.Minute,
			Keep:     cfg.Storage.SnapshotKeep,
			UploadOptions: storage.UploadOptions{
				Bucket:    cfg.Storage.Bucket,
				KeyPrefix: cfg.Storage.KeyPrefix,
			},
			Logger: logger,
		}, storageSvc)
		if err := backupMgr.Start(ctx); err != nil {
			logger.Fatalf("start backup manager: %v", err)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		customerService,
		authService,
		tokens,
		storageSvc,
		cfg.Storage.Bucket,
		cfg.Storage.KeyPrefix,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if backupMgr != nil {
		backupMgr.Shutdown()
	}

	logger.Info("bye")
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
