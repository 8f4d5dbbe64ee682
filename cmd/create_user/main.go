package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tipscan/models"
	"tipscan/pkg/logger"
)

func main() {
	fs := ff.NewFlagSet("create_user")
	var (
		dsn   = fs.StringLong("db-dsn", "", "Postgres DSN (or TIPSCAN_DB_DSN)")
		admin = fs.BoolLong("admin", "grant the administrator role")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("TIPSCAN")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	args := fs.GetArgs()
	if len(args) < 2 {
		fmt.Println("usage: go run ./cmd/create_user [--admin] <username> <password>")
		os.Exit(2)
	}
	username, password := strings.TrimSpace(args[0]), args[1]
	log := logger.New(logger.Options{})

	if strings.TrimSpace(*dsn) == "" {
		log.Fatal().Msg("TIPSCAN_DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(*dsn), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open db")
	}

	roleName := models.RoleUser
	if *admin {
		roleName = models.RoleAdministrator
	}
	role := models.Role{Name: roleName}
	if err := db.Where("name = ?", roleName).FirstOrCreate(&role).Error; err != nil {
		log.Fatal().Err(err).Str("role", roleName).Msg("failed to ensure role")
	}

	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		fmt.Printf("user %s already exists (id=%d)\n", username, existing.ID)
		os.Exit(0)
	}

	hpw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt failed")
	}
	rid := role.ID
	user := models.User{Username: username, HashedPassword: hpw, RoleID: &rid}
	if err := db.Create(&user).Error; err != nil {
		log.Fatal().Err(err).Msg("failed to create user")
	}
	fmt.Printf("created user %s id=%d role=%s\n", username, user.ID, roleName)
}
