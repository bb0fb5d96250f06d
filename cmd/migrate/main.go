package main

import (
	"context" // Cache invalidation context
	"flag"    // Command line flags

	"roundup/internal/config" // Custom import path (Config)
	"roundup/internal/db"     // Custom import path (Database)
	"roundup/internal/utils"  // Cache helpers

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main entry point for migration
func main() {
	seedAdmin := flag.String("seed-admin", "", "create or promote an admin account, as email:password")
	flag.Parse()

	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatal(err)
	}
	if *seedAdmin != "" {
		if err := db.SeedAdmin(gdb, *seedAdmin); err != nil {
			logrus.Fatalf("failed to seed admin: %v", err)
		}
		clearAdminUsers(cfg)
	}
}

// clearAdminUsers drops cached admin user listings so the seeded account shows up
func clearAdminUsers(cfg *config.Config) {
	if cfg.RedisAddr == "" {
		return
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
	defer rdb.Close()
	if err := utils.DeletePrefix(context.Background(), rdb, "admin:users:"); err != nil {
		logrus.Warnf("failed to clear admin user cache: %v", err)
	}
}
