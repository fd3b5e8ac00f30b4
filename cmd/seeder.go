package cmd

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/faxsign/faxsign/internal"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with bootstrap accounts and departments",
	Long:  `Create the departments and the admin, manager and fax intake accounts from the bootstrap config. Safe to re-run: existing rows are left alone.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		for _, name := range cfg.Bootstrap.Departments {
			seedDepartment(db, name)
		}

		seedUser(db, cfg.Bootstrap.Admin, internal.RoleAdmin, cfg.Security.BCryptCost)
		for _, m := range cfg.Bootstrap.Managers {
			seedUser(db, m, internal.RoleManager, cfg.Security.BCryptCost)
		}
		seedUser(db, cfg.Bootstrap.FaxIntake, internal.RoleFaxIntake, cfg.Security.BCryptCost)

		fmt.Println("Bootstrap data seeded successfully")
	},
}

func seedDepartment(db *sqlx.DB, name string) {
	if name == "" {
		return
	}

	var one int
	err := db.QueryRow(`SELECT 1 FROM departments WHERE name = $1`, name).Scan(&one)
	if err == nil {
		return
	}
	if err != sql.ErrNoRows {
		log.Fatalf("failed to check department %s: %v", name, err)
	}

	if _, err := db.Exec(`INSERT INTO departments (name) VALUES ($1)`, name); err != nil {
		log.Fatalf("failed to insert department %s: %v", name, err)
	}
	fmt.Println("Seeded department:", name)
}

func seedUser(db *sqlx.DB, seed internal.SeedUser, role internal.Role, bcryptCost int) {
	if seed.Username == "" {
		return
	}

	var one int
	err := db.QueryRow(`SELECT 1 FROM users WHERE username = $1`, seed.Username).Scan(&one)
	if err == nil {
		fmt.Printf("user %s already exists; skipping\n", seed.Username)
		return
	}
	if err != sql.ErrNoRows {
		log.Fatalf("failed to check user %s: %v", seed.Username, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcryptCost)
	if err != nil {
		log.Fatalf("failed to hash password for %s: %v", seed.Username, err)
	}

	_, err = db.Exec(`
		INSERT INTO users (username, email, password_hash, full_name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		seed.Username, seed.Email, string(hash), seed.FullName, role.String())
	if err != nil {
		log.Fatalf("failed to insert user %s: %v", seed.Username, err)
	}
	fmt.Printf("Seeded %s user: %s\n", role.String(), seed.Username)
}
