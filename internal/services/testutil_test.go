package services

import (
	"testing"

	"livedhere/internal/config"
	"livedhere/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database. A single connection keeps
// sqlite from spawning a fresh empty database per pooled connection.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = gdb.AutoMigrate(
		&models.User{},
		&models.Street{},
		&models.Building{},
		&models.Review{},
		&models.SubmissionEvent{},
		&models.ModerationAuditEntry{},
		&models.Report{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gdb
}

func testConfig() *config.Config {
	return &config.Config{
		EditTokenSecret:           "test_secret",
		EditTokenTTLDays:          14,
		SubmitLimitPerIP:          5,
		SubmitLimitPerBuilding:    5,
		SubmitLimitPerFingerprint: 3,
	}
}

func seedBuilding(t *testing.T, gdb *gorm.DB) models.Building {
	t.Helper()

	street := models.Street{Name: "Rua de Teste", City: "Lisboa"}
	if err := gdb.Create(&street).Error; err != nil {
		t.Fatalf("failed to seed street: %v", err)
	}
	building := models.Building{StreetID: street.ID, StreetNumber: 10}
	if err := gdb.Create(&building).Error; err != nil {
		t.Fatalf("failed to seed building: %v", err)
	}
	return building
}

func seedUser(t *testing.T, gdb *gorm.DB, email, role string) models.User {
	t.Helper()

	user := models.User{Username: "tester", Email: email, Password: "x", Role: role}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return user
}

func goodRatings() models.Ratings {
	return models.Ratings{
		PeopleNoise:         4,
		AnimalNoise:         4,
		Insulation:          3,
		PestIssues:          4,
		AreaSafety:          4,
		NeighbourhoodVibe:   5,
		OutdoorSpaces:       4,
		Parking:             3,
		BuildingMaintenance: 3,
		ConstructionQuality: 3,
	}
}
