package db

import (
	"log"
	"os"

	"livedhere/internal/models"
	"livedhere/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(dsn string) {
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=livedhere port=5432 sslmode=disable TimeZone=Europe/Lisbon"
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	// Auto Migrate
	err = DB.AutoMigrate(
		&models.User{},
		&models.Street{},
		&models.Building{},
		&models.Review{},
		&models.SubmissionEvent{},
		&models.ModerationAuditEntry{},
		&models.Report{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	seedAdmin()
	seedBuildings()
}

// seedAdmin creates the moderator account on first boot, when configured.
func seedAdmin() {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}

	var count int64
	DB.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		log.Printf("Failed to hash admin password: %v", err)
		return
	}
	admin := models.User{
		Username: "admin",
		Email:    email,
		Password: hash,
		Role:     "admin",
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("Failed to create admin user %s: %v", email, err)
		return
	}
	log.Printf("Admin user %s created", email)
}

func seedBuildings() {
	var count int64
	DB.Model(&models.Building{}).Count(&count)
	if count > 0 {
		log.Println("Buildings already seeded, skipping")
		return
	}

	street := models.Street{Name: "Rua das Flores", City: "Lisboa"}
	if err := DB.Create(&street).Error; err != nil {
		log.Printf("Failed to create seed street: %v", err)
		return
	}

	buildings := []models.Building{
		{StreetID: street.ID, StreetNumber: 12, BuildingName: "Edifício Primavera", Lat: 38.7100, Lng: -9.1430},
		{StreetID: street.ID, StreetNumber: 27, Lat: 38.7104, Lng: -9.1422},
	}
	for _, building := range buildings {
		if err := DB.Create(&building).Error; err != nil {
			log.Printf("Failed to create seed building %d: %v", building.StreetNumber, err)
		}
	}
	log.Println("Initial buildings created successfully")
}
