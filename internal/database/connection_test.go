// internal/database/connection_test.go
package database

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type txRecord struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

var txTestDBCounter int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:db_test_%d?mode=memory&cache=shared", atomic.AddInt64(&txTestDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&txRecord{}))
	return db
}

func countRecords(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&txRecord{}).Count(&count).Error)
	return count
}

func TestWithTransactionCommits(t *testing.T) {
	db := openTestDB(t)

	err := WithTransaction(db, func(tx *gorm.DB) error {
		return tx.Create(&txRecord{Name: "kept"}).Error
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countRecords(t, db))
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	sentinel := errors.New("balance check failed")

	err := WithTransaction(db, func(tx *gorm.DB) error {
		if err := tx.Create(&txRecord{Name: "discarded"}).Error; err != nil {
			return err
		}
		return sentinel
	})

	// The callback's error must come back unchanged for errors.Is checks.
	assert.ErrorIs(t, err, sentinel)
	assert.EqualValues(t, 0, countRecords(t, db))
}

func TestWithTransactionRollsBackOnPanic(t *testing.T) {
	db := openTestDB(t)

	assert.Panics(t, func() {
		_ = WithTransaction(db, func(tx *gorm.DB) error {
			if err := tx.Create(&txRecord{Name: "discarded"}).Error; err != nil {
				return err
			}
			panic("handler blew up")
		})
	})
	assert.EqualValues(t, 0, countRecords(t, db))
}
