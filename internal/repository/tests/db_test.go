package repository_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/greenfina/greenfina/internal/model"
)

// setupTestDB opens a private in-memory database per suite.
func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, model.AutoMigrate(db))
	return db
}

func resetTables(db *gorm.DB) {
	for _, table := range []string{
		"stokvela_payments",
		"stokvela_members",
		"stokvela_groups",
		"investments",
		"investment_indices",
		"loan_applications",
		"users",
	} {
		db.Exec("DELETE FROM " + table)
	}
}

func seedUser(t *testing.T, db *gorm.DB, email string) model.User {
	u := model.User{FullName: "Test User", Email: email, Password: "hash", Role: "user"}
	require.NoError(t, db.Create(&u).Error)
	return u
}
