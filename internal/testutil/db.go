// Package testutil provides shared helpers for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"socialgraph/internal/database"
	"socialgraph/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns an isolated in-memory SQLite database with the full schema
// applied and foreign keys enforced.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps every statement on the same shared-cache database
	// and serialises writers the way row locks would.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateUser inserts a user with a unique username and external id.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		ExternalID: "ext_" + username,
		Email:      username + "@example.com",
		Username:   username,
		Name:       username,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreatePost inserts a post authored by authorID.
func CreatePost(t *testing.T, db *gorm.DB, authorID, content string) *models.Post {
	t.Helper()
	p := &models.Post{AuthorID: authorID, Content: content}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreatePostAt inserts a post with an explicit creation time.
func CreatePostAt(t *testing.T, db *gorm.DB, authorID, content string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{AuthorID: authorID, Content: content, CreatedAt: at}
	require.NoError(t, db.Create(p).Error)
	return p
}

// Count returns the number of rows of model matching the optional condition.
func Count(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
