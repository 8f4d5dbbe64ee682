package main

import (
	"errors"
	"fmt"

	"tipscan/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB(cfg DBConfig) error {
	if cfg.DSN == "" {
		return errors.New("db.dsn is not set (TIPSCAN_DB_DSN or DB_DSN)")
	}
	var err error
	db, err = gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect postgres database: %w", err)
	}
	if !cfg.AutoMigrate {
		return seedRoles()
	}
	// roles first so the users FK can be applied
	if err := db.AutoMigrate(&models.Role{}); err != nil {
		log.Warn().Err(err).Str("table", "roles").Msg("migration warning")
	}
	if err := seedRoles(); err != nil {
		return err
	}
	// one model at a time so a failure on one doesn't block others
	for _, m := range []any{&models.User{}, &models.RefreshToken{}, &models.Scan{}} {
		if err := db.AutoMigrate(m); err != nil {
			log.Warn().Err(err).Str("model", fmt.Sprintf("%T", m)).Msg("migration warning")
		}
	}
	return nil
}

func seedRoles() error {
	for _, r := range models.DefaultRoles {
		if err := db.Where("name = ?", r.Name).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("seeding role %s: %w", r.Name, err)
		}
	}
	return nil
}

// seedDB creates the admin account if it does not exist yet.
func seedDB(adminPassword string) error {
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		return nil
	}
	var role models.Role
	if err := db.Where("name = ?", models.RoleAdministrator).First(&role).Error; err != nil {
		return fmt.Errorf("failed to find administrator role: %w", err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	rid := role.ID
	admin := models.User{Username: "admin", HashedPassword: hashed, RoleID: &rid}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	log.Info().Str("username", "admin").Msg("seeded admin user")
	return nil
}
