package database

import (
	"fmt"
	"log"
	"os"

	"artgen-app/internal/domain/billing"
	"artgen-app/internal/domain/generations"
	"artgen-app/internal/domain/plans"
	"artgen-app/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("❌ DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("❌ Failed to connect to database:", err)
	}

	DB = db

	// ✅ REQUIRED for UUID generation
	if err := DB.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Fatal("❌ Failed to enable pgcrypto extension:", err)
	}

	// ✅ Auto-migrate all domain models
	if err := DB.AutoMigrate(
		// core
		&users.User{},
		&users.VerificationToken{},
		&plans.Plan{},
		&plans.CreditPack{},
		&billing.Payment{},

		// generations
		&generations.Record{},
	); err != nil {
		log.Fatal("❌ AutoMigrate error:", err)
	}

	fmt.Println("✅ Connected and migrated successfully")
}
