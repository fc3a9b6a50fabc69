// Command seed loads the baseline policy catalogue, a sample endpoint fleet
// and the admin account into the database. It is idempotent and safe to run
// against an existing database.
package main

import (
	"errors"
	"os"

	"gorm.io/gorm"

	"github.com/kestrelsec/aegis/internal/config"
	"github.com/kestrelsec/aegis/internal/database"
	"github.com/kestrelsec/aegis/internal/logger"
	"github.com/kestrelsec/aegis/internal/models"
	"github.com/kestrelsec/aegis/internal/policy"
)

func main() {
	logger.Init(true, nil)
	log := logger.Log()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	if err := policy.Seed(db); err != nil {
		log.WithError(err).Fatal("failed to seed policies")
	}
	log.Info("policy catalogue seeded")

	if err := seedEndpoints(db); err != nil {
		log.WithError(err).Fatal("failed to seed endpoints")
	}
	log.Info("sample endpoints seeded")

	if err := seedAdmin(db); err != nil {
		log.WithError(err).Fatal("failed to seed admin user")
	}
	log.Info("admin user ready")
}

func seedEndpoints(db *gorm.DB) error {
	endpoints := []models.Endpoint{
		{Hostname: "win-server-01", IPAddress: "10.0.1.10", OSType: "windows_server_2019"},
		{Hostname: "web-server-01", IPAddress: "10.0.1.20", OSType: "ubuntu_22.04"},
		{Hostname: "db-server-01", IPAddress: "10.0.1.21", OSType: "ubuntu_22.04"},
		{Hostname: "workstation-01", IPAddress: "10.0.2.30", OSType: "windows_11"},
		{Hostname: "workstation-02", IPAddress: "10.0.2.31", OSType: "windows_11"},
	}

	for _, ep := range endpoints {
		var existing models.Endpoint
		err := db.Where("hostname = ?", ep.Hostname).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&ep).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func seedAdmin(db *gorm.DB) error {
	email := envOr("AEGIS_ADMIN_EMAIL", "admin@aegis.local")

	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	admin := models.User{Email: email, Name: "Administrator", Role: "admin", Enabled: true}
	if err := admin.SetPassword(envOr("AEGIS_ADMIN_PASSWORD", "changeme")); err != nil {
		return err
	}
	return db.Create(&admin).Error
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
