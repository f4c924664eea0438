// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"hitokoto/internal/db"
	"hitokoto/internal/models"
)

// fixtureNamespace seeds deterministic fixture uuids.
var fixtureNamespace = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

// Categories cycled through by Quotes.
var Categories = []string{
	models.CategoryAnime,
	models.CategoryComic,
	models.CategoryGame,
	models.CategoryLiterature,
}

// SQLiteDB opens a migrated SQLite store in a temp directory. It is closed when the test ends.
func SQLiteDB(t *testing.T) *db.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hitokoto.db")
	database, err := db.New(context.Background(), "sqlite://"+path, db.Options{MaxConnections: 4})
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	if err := database.RunMigrations(); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(database.Close)
	return database
}

// SeededDB opens a SQLite store holding Quotes(n).
func SeededDB(t *testing.T, n int) (*db.DB, []models.Quote) {
	t.Helper()
	database := SQLiteDB(t)
	quotes := Quotes(n)
	Seed(t, database, quotes)
	return database, quotes
}

// Seed inserts quotes into database.
func Seed(t *testing.T, database *db.DB, quotes []models.Quote) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.InsertQuotes(ctx, quotes); err != nil {
		t.Fatalf("failed to seed quotes: %v", err)
	}
}

// Quotes builds n deterministic quotes. Quote i has ID i+1, category
// Categories[i%len(Categories)] and length 5+i, and every third quote has no author.
func Quotes(n int) []models.Quote {
	quotes := make([]models.Quote, n)
	for i := range quotes {
		quotes[i] = NewQuote(i+1, Categories[i%len(Categories)], 5+i)
		if i%3 == 2 {
			quotes[i].FromWho = nil
		}
	}
	return quotes
}

// NewQuote builds one quote with the given id, category and text length.
func NewQuote(id int, category string, length int) models.Quote {
	who := fmt.Sprintf("author %d", id)
	text := strings.Repeat("言", length)
	return models.Quote{
		ID:         int64(id),
		UUID:       uuid.NewSHA1(fixtureNamespace, []byte(fmt.Sprint(id))).String(),
		Text:       text,
		Type:       category,
		FromSource: fmt.Sprintf("source %d", id),
		FromWho:    &who,
		Length:     models.TextLength(text),
	}
}

// ExternalDB connects to the database named by envVar, skipping the test when it is unset.
// The hitokoto table is emptied before and after the test.
func ExternalDB(t *testing.T, envVar string) *db.DB {
	t.Helper()

	connString := os.Getenv(envVar)
	if connString == "" {
		t.Skipf("Skipping integration test: %s not set", envVar)
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString, db.Options{MaxConnections: 4, ConnectTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := database.RunMigrations(); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanup := func() {
		_ = database.Exec(ctx, "DELETE FROM hitokoto")
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		database.Close()
	})
	return database
}
