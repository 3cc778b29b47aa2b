package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitework/config"
	"sitework/internal/database"
	"sitework/internal/router"
	"sitework/internal/scheduler"
	"sitework/pkg/blobstore"
	"sitework/pkg/cloudinary"
	"sitework/pkg/mailer"
)

func main() {
	cfg := config.Load()
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	database.SeedAdmin(db)

	var cloud cloudinary.Client
	if cfg.Cloudinary.CloudName != "" {
		cloud, err = cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			log.Fatalf("cloudinary: %v", err)
		}
	} else {
		log.Printf("document uploads disabled: set CLOUDINARY_CLOUD_NAME to enable")
	}

	var mail mailer.Sender
	if cfg.Mailer.APIKey != "" {
		mail = mailer.NewHTTPProvider(cfg.Mailer.BaseURL, cfg.Mailer.APIKey, cfg.Mailer.From)
	} else {
		log.Printf("email sending stubbed: set MAILER_API_KEY to enable")
		mail = &mailer.StubSender{}
	}

	store, err := blobstore.NewMinIOStore(blobstore.MinIOOptions{
		Endpoint:  cfg.Reports.Endpoint,
		AccessKey: cfg.Reports.AccessKey,
		SecretKey: cfg.Reports.SecretKey,
		Bucket:    cfg.Reports.Bucket,
		UseSSL:    cfg.Reports.UseSSL,
	})
	if err != nil {
		log.Fatalf("report store: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.EnsureBucket(ctx); err != nil {
		log.Printf("report store: bucket check failed (reports unavailable until it succeeds): %v", err)
	}
	cancel()

	engine, services := router.Setup(cfg, db, cloud, mail, store)

	sched := scheduler.New(services.Digest, services.Cleanup, services.Report, cfg.Cron.DigestHourUTC, cfg.Cron.RetentionDays)
	sched.Start()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	fmt.Println("server stopped")
}
