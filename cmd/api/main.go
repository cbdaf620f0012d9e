package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"keycrack/internal/auth"
	"keycrack/internal/cipher"
	"keycrack/internal/config"
	"keycrack/internal/httpserver"
	"keycrack/internal/jobs"
	"keycrack/internal/logger"
	"keycrack/internal/models"
	"keycrack/internal/services/mitm"
)

func main() {
	cfg := config.Load()
	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()
	if cfg.DatabaseURL == "" {
		lg.Fatalw("DATABASE_URL is empty")
	}
	if cfg.JWTSecret == "" {
		lg.Fatalw("JWT_SECRET is empty")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.Session{}, &models.AuditLog{}, &models.Job{}); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}
	seedDefaultAdmin(db, cfg, lg)
	if err := failInterruptedJobs(db); err != nil {
		lg.Warnw("reset interrupted jobs failed", "error", err)
	}

	c := cipher.Default()
	store := jobs.NewGormStore(db)
	runner := jobs.NewRunner(store, mitm.Config{
		Workers:          cfg.Workers,
		ProgressInterval: cfg.ProgressInterval,
		Cipher:           c,
	}, cfg.JobConcurrency, lg)

	router := httpserver.NewRouter(httpserver.Deps{
		DB:     db,
		Logger: lg,
		Signer: auth.NewSigner(cfg.JWTSecret, cfg.JWTExpiresIn),
		Cipher: c,
		Runner: runner,
		Store:  store,
	})
	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if err := runner.Shutdown(shutdownCtx); err != nil {
			lg.Warnw("jobs still running at shutdown", "error", err)
		}
	}()

	lg.Infow("listening", "port", cfg.HTTPPort, "workers", cfg.Workers, "job_concurrency", cfg.JobConcurrency)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatalw("server failed", "error", err)
	}
}

func seedDefaultAdmin(db *gorm.DB, cfg config.Config, lg *zap.SugaredLogger) {
	db.Exec("INSERT INTO roles(name) VALUES (?) ON CONFLICT DO NOTHING", auth.RoleAdmin)
	db.Exec("INSERT INTO roles(name) VALUES (?) ON CONFLICT DO NOTHING", auth.RoleUser)
	email := strings.ToLower(cfg.AdminEmail)
	var count int64
	db.Model(&models.User{}).Where("LOWER(email)=?", email).Count(&count)
	if count > 0 {
		return
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		lg.Warnw("default admin not seeded", "error", err)
		return
	}
	u := models.User{Email: email, PasswordHash: hash, IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := db.Create(&u).Error; err == nil {
		var adminRole models.Role
		if err := db.First(&adminRole, "name = ?", auth.RoleAdmin).Error; err == nil {
			_ = db.Model(&u).Association("Roles").Append(&adminRole)
		}
	}
	lg.Infow("seeded default admin", "email", email)
}

// failInterruptedJobs marks jobs left queued or running by a previous
// process; their goroutines are gone.
func failInterruptedJobs(db *gorm.DB) error {
	return db.WithContext(context.Background()).Transaction(func(tx *gorm.DB) error {
		msg := "interrupted by server restart"
		return tx.Model(&models.Job{}).
			Where("status IN ?", []models.JobStatus{models.JobQueued, models.JobRunning}).
			Updates(map[string]any{"status": models.JobFailed, "error": msg, "finished_at": time.Now()}).Error
	})
}
