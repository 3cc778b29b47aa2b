// Command cleanup deletes queued notifications past the retention window.
// Meant for one-off or crontab use against the same database as the server.
//
//	cleanup -days 90
//	cleanup -days 30 -dry-run
//
// Exits 0 on success (including nothing to delete), 1 on bad arguments or failure.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"sitework/config"
	"sitework/internal/database"
	"sitework/internal/repository"
	"sitework/internal/service"
)

func main() {
	days := flag.Int("days", 90, "delete notifications older than this many days")
	dryRun := flag.Bool("dry-run", false, "count matching rows without deleting")
	flag.Parse()

	cfg := config.Load()
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Printf("database: %v", err)
		os.Exit(1)
	}
	svc := service.NewCleanupService(repository.NewNotificationRepository(db))

	if *dryRun {
		count, cutoff, err := svc.CountOldNotifications(*days)
		if err != nil {
			log.Printf("count failed: %v", err)
			os.Exit(1)
		}
		fmt.Printf("dry run: %d notifications older than %s would be deleted\n", count, cutoff.Format(time.RFC3339))
		return
	}

	deleted, cutoff, err := svc.CleanupOldNotifications(*days)
	if err != nil {
		log.Printf("cleanup failed: %v", err)
		os.Exit(1)
	}
	fmt.Printf("deleted %d notifications older than %s\n", deleted, cutoff.Format(time.RFC3339))
}
