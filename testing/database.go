// Package testing provides test utilities and database setup for testing the dispatch service
package testing

import (
	"context"
	"fmt"
	"log"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB represents a test database instance
type TestDB struct {
	DB   *gorm.DB
	Name string
}

// AllModels lists every table the service owns, in creation order
func AllModels() []any {
	return []any{
		&models.Contact{},
		&models.Batch{},
		&models.BatchContact{},
		&models.Campaign{},
		&models.CampaignBatch{},
		&models.CampaignContact{},
		&models.SchedulingQueueRow{},
		&models.SchedulingLog{},
		&models.DispatchSession{},
		&models.DispatchEvent{},
		&models.DeliveryRecord{},
	}
}

// SetupTestDB creates an isolated in-memory SQLite database and migrates the schema
func SetupTestDB() (*TestDB, error) {
	name := fmt.Sprintf("susanoo_test_%s", uuid.NewString())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc:                                  utils.UTCNow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open test database %s: %w", name, err)
	}

	// A single connection keeps the shared in-memory database alive and serializes writers
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(AllModels()...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate test database %s: %w", name, err)
	}

	return &TestDB{DB: db, Name: name}, nil
}

// TeardownTestDB closes the connection, which drops the in-memory database
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB == nil {
		return nil
	}
	sqlDB, err := tdb.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// TestWithDB is a helper function that sets up a test database, runs the test function, and cleans up
func TestWithDB(testFunc func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return fmt.Errorf("failed to setup test database: %w", err)
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			log.Printf("Warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()

	return testFunc(testDB)
}

// CreateTestContext creates a context for testing
func CreateTestContext() context.Context {
	return context.Background()
}
