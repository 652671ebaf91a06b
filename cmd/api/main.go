package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	docadp "change-approval/internal/adapter/document"
	httpadp "change-approval/internal/adapter/http"
	"change-approval/internal/adapter/lock"
	appmw "change-approval/internal/adapter/middleware"
	"change-approval/internal/adapter/notify"
	"change-approval/internal/adapter/repository/mysql"
	"change-approval/internal/config"
	docdomain "change-approval/internal/domain/document"
	notifydomain "change-approval/internal/domain/notify"
	"change-approval/internal/domain/record"
	"change-approval/internal/infrastructure/cache"
	"change-approval/internal/infrastructure/db"
	"change-approval/internal/infrastructure/storage"
	"change-approval/internal/logging"
	"change-approval/internal/usecase/approval"
	"change-approval/internal/usecase/catalog"
	docgen "change-approval/internal/usecase/document"
	"change-approval/internal/usecase/numbering"
	permcache "change-approval/internal/usecase/permission"
	"change-approval/pkg/clock"
)

var permissionHeaders = []string{"Applicant Name", "Applicant Email", "Approver Name", "Approver Email"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	loc, _ := cfg.Location()

	gdb, err := openStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	book := mysql.NewWorkbook(gdb)
	ctx := context.Background()
	if err := book.Migrate(ctx); err != nil {
		log.WithError(err).Fatal("migrate")
	}
	if _, err := book.CreateSheet(ctx, cfg.RecordsSheet, record.DefaultHeaders()); err != nil {
		log.WithError(err).Fatal("create records sheet")
	}
	if _, err := book.CreateSheet(ctx, cfg.PermissionsSheet, permissionHeaders); err != nil {
		log.WithError(err).Fatal("create permissions sheet")
	}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb, err = cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Fatal("connect redis")
		}
		defer rdb.Close()
	}

	clk := clock.Real()

	var kv permcache.KV = cache.NewMemoryKV(clk)
	if cfg.PermissionCache == "redis" {
		kv = cache.NewRedisKV(rdb, "cr:")
	}
	perms := permcache.NewCache(book, cfg.PermissionsSheet, kv, seconds(cfg.PermissionTTLSecs), log)

	var locker lock.Locker = lock.NewLocal()
	if cfg.LockBackend == "redis" {
		locker = lock.NewRedis(rdb, "cr:lock:", seconds(cfg.LockTTLSecs))
	}
	unit := lock.NewUoW(locker, seconds(cfg.LockMaxWaitSecs))

	renderer, err := openRenderer(cfg)
	if err != nil {
		log.WithError(err).Fatal("open document renderer")
	}
	docs := docgen.NewGenerator(renderer, docgen.Config{
		TemplateID:  cfg.DocTemplateID,
		Destination: cfg.DocDestination,
		Label:       cfg.DocLabel,
		Location:    loc,
	}, log)

	var dispatcher notifydomain.Dispatcher = notify.NewLogDispatcher(log)
	if cfg.Notifier == "outbox" {
		dispatcher, err = notify.NewOutbox(rdb, cfg.OutboxStream, cfg.OutboxMaxLen)
		if err != nil {
			log.WithError(err).Fatal("open mail outbox")
		}
	}

	uc := approval.NewUsecase(approval.Deps{
		Book:      book,
		Directory: perms,
		Numbers:   numbering.NewAllocator(unit, loc),
		Documents: docs,
		Notifier:  dispatcher,
		UoW:       unit,
		Clock:     clk,
		Log:       log,
	}, approval.Config{
		SheetName:    cfg.RecordsSheet,
		RecordPrefix: cfg.RecordPrefix,
		ReviewURL:    cfg.ReviewURL,
		Location:     loc,
	})
	cat := catalog.New(book, catalog.Config{
		OptionsSheet:  cfg.OptionsSheet,
		OptionHeaders: cfg.OptionHeaders,
		AssetsSheet:   cfg.AssetsSheet,
	}, log)

	var idem echo.MiddlewareFunc = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if cfg.IdempTTLSecs > 0 {
		idem = appmw.IdempotencyMiddleware(rdb, seconds(cfg.IdempTTLSecs), log)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger(), middleware.Recover())
	e.Validator = httpadp.NewValidator()
	checks := []httpadp.Check{{Name: "store", Ping: func(ctx context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}}
	if rdb != nil {
		checks = append(checks, httpadp.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	httpadp.Register(e, httpadp.NewHandler(checks...), httpadp.NewApplicationHandler(uc), httpadp.NewCatalogHandler(cat), idem)
	if links, ok := renderer.(httpadp.DocumentLinks); ok {
		httpadp.RegisterDocuments(e, httpadp.NewDocumentHandler(links))
	} else {
		e.Static("/documents", cfg.OutputDir)
	}

	go func() {
		addr := ":" + cfg.AppPort
		log.WithField("addr", addr).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

func openStore(cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	if cfg.StoreDriver == "sqlite" {
		return db.OpenSQLite(cfg.SQLitePath, log)
	}
	return db.OpenGorm(cfg.MySQLDSN(), log)
}

func openRenderer(cfg *config.Config) (docdomain.Renderer, error) {
	if cfg.DocRenderer != "minio" {
		return docadp.NewFileRenderer(cfg.TemplatesDir, cfg.OutputDir, cfg.DocBaseURL), nil
	}
	client, err := storage.OpenMinio(storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return docadp.NewMinioRenderer(client, cfg.MinioBucket, cfg.DocBaseURL, time.Duration(cfg.LinkExpiryHours)*time.Hour), nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
