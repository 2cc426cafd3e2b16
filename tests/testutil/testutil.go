// Package testutil provides shared fixtures for ledger tests: databases,
// quotes and a JSON request helper for gin engines.
package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/persistence/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a postgres-dialect GORM database backed by sqlmock.
// The connection is closed when the test ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{DB: gormDB, Mock: mock, SqlDB: mockDB}
}

// ExpectationsWereMet asserts that all sqlmock expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unfulfilled sqlmock expectations")
}

// NewSQLiteDB opens an in-memory SQLite database with the ledger schema.
// A single connection keeps every query on the same in-memory database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// QuoteOption customizes a seeded quote
type QuoteOption func(*ledger.Quote)

// WithContingency sets the contingency percentage of the quote
func WithContingency(percent int64) QuoteOption {
	return func(q *ledger.Quote) {
		q.ContingencyPercent = decimal.NewFromInt(percent)
	}
}

// WithQuoteStatus overrides the default accepted status
func WithQuoteStatus(status ledger.QuoteStatus) QuoteOption {
	return func(q *ledger.Quote) {
		q.Status = status
	}
}

// SeedQuote inserts an accepted single-line quote for the lead and returns it.
func SeedQuote(t *testing.T, db *gorm.DB, tenantID, leadID uuid.UUID, amount decimal.Decimal, opts ...QuoteOption) *ledger.Quote {
	t.Helper()

	q := &ledger.Quote{
		ID:            uuid.New(),
		TenantID:      tenantID,
		LeadID:        leadID,
		CustomerName:  "Jane Homeowner",
		CustomerEmail: "jane@example.com",
		Status:        ledger.QuoteStatusAccepted,
		LineItems: ledger.LineItems{
			{Description: "Kitchen renovation", Amount: amount},
		},
		ContingencyPercent: decimal.Zero,
	}
	for _, opt := range opts {
		opt(q)
	}
	require.NoError(t, db.Create(models.QuoteModelFromDomain(q)).Error)
	return q
}

// DoJSON sends a request with an optional JSON body through the handler.
// headers is a flat list of name/value pairs.
func DoJSON(h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
