package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cryptodash/coin-backend/shared"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

var DB *sql.DB

// Connect establishes the database connection with the default pool configuration
func Connect(dbURL string) error {
	config := shared.NewDefaultUnifiedConfiguration().Database
	return ConnectWithConfig(dbURL, &config)
}

// ConnectWithConfig establishes database connection with custom configuration
func ConnectWithConfig(dbURL string, config *shared.DatabaseConfig) error {
	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(config.MaxOpenConns)
	DB.SetMaxIdleConns(config.MaxIdleConns)
	DB.SetConnMaxLifetime(config.ConnMaxLifetime)
	DB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), config.PingTimeout)
	defer cancel()

	if err = DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"max_open_conns":     config.MaxOpenConns,
		"max_idle_conns":     config.MaxIdleConns,
		"conn_max_lifetime":  config.ConnMaxLifetime,
		"conn_max_idle_time": config.ConnMaxIdleTime,
	}).Info("Connected to database")

	return nil
}

func Close() {
	if DB != nil {
		DB.Close()
		logrus.Info("Database connection closed")
	}
}

// GetConnectionStats returns current database connection pool statistics
func GetConnectionStats() sql.DBStats {
	if DB == nil {
		return sql.DBStats{}
	}
	return DB.Stats()
}

// HealthCheck pings the database and checks pool health
func HealthCheck() error {
	if DB == nil {
		return fmt.Errorf("database connection not established")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	stats := DB.Stats()

	logrus.WithFields(logrus.Fields{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration,
	}).Debug("Database connection pool health check")

	return nil
}

func Migrate(schemaPath string) error {
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	statements := parseSQLStatements(string(content))

	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)

		if stmt == "" {
			continue
		}

		_, err = DB.Exec(stmt)
		if err != nil {
			// Log the error but continue with other statements for migration scripts
			// that handle existing tables
			logrus.Warnf("Migration statement failed (continuing): %v", err)
		}
	}

	logrus.Info("Database migration completed")
	return nil
}

// parseSQLStatements parses SQL content into individual statements
// This handles multi-line statements and comments properly
func parseSQLStatements(content string) []string {
	var statements []string
	var currentStatement strings.Builder

	lines := strings.Split(content, "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)

		// Skip empty lines and comment-only lines
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		if currentStatement.Len() > 0 {
			currentStatement.WriteString(" ")
		}
		currentStatement.WriteString(line)

		// If line ends with semicolon, we have a complete statement
		if strings.HasSuffix(line, ";") {
			stmt := strings.TrimSuffix(currentStatement.String(), ";")
			stmt = strings.TrimSpace(stmt)
			if stmt != "" {
				statements = append(statements, stmt)
			}
			currentStatement.Reset()
		}
	}

	// Handle any remaining statement without semicolon
	if currentStatement.Len() > 0 {
		stmt := strings.TrimSpace(currentStatement.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}

	return statements
}

// ValidationResult represents the result of schema validation for one table
type ValidationResult struct {
	TableName      string
	IsValid        bool
	MissingColumns []string
	MissingIndexes []string
}

// SchemaValidator checks that the two application tables match what the
// queries expect. Findings are logged, never fatal: Migrate is tolerant of
// pre-existing tables, and an operator may run against a hand-managed schema.
type SchemaValidator struct {
	db *sql.DB
}

// NewSchemaValidator creates a new schema validator instance
func NewSchemaValidator(db *sql.DB) *SchemaValidator {
	return &SchemaValidator{db: db}
}

// ValidateSchema validates the users and favorite_coin tables
func (v *SchemaValidator) ValidateSchema() ([]ValidationResult, error) {
	requiredTables := map[string][]string{
		"users": {
			"id", "first_name", "last_name", "email", "password", "created_at",
		},
		"favorite_coin": {
			"id", "user_id", "coin_name", "symbol", "slug", "created_at",
		},
	}

	requiredIndexes := map[string][]string{
		"users":         {"users_email_key"},
		"favorite_coin": {"favorite_coin_user_symbol_slug_key", "idx_favorite_coin_user_id"},
	}

	var results []ValidationResult

	for tableName, requiredColumns := range requiredTables {
		result := ValidationResult{TableName: tableName, IsValid: true}

		exists, err := v.tableExists(tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to check if table %s exists: %w", tableName, err)
		}
		if !exists {
			result.IsValid = false
			result.MissingColumns = append(result.MissingColumns, "entire table missing")
			results = append(results, result)
			continue
		}

		existingColumns, err := v.getTableColumns(tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}

		for _, columnName := range requiredColumns {
			if _, ok := existingColumns[columnName]; !ok {
				result.IsValid = false
				result.MissingColumns = append(result.MissingColumns, columnName)
			}
		}

		existingIndexes, err := v.getTableIndexes(tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to get indexes for table %s: %w", tableName, err)
		}

		for _, indexName := range requiredIndexes[tableName] {
			if !containsString(existingIndexes, indexName) {
				result.IsValid = false
				result.MissingIndexes = append(result.MissingIndexes, indexName)
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// ValidateAndLogSchema runs validation and logs any findings
func ValidateAndLogSchema() error {
	if DB == nil {
		return fmt.Errorf("database connection not established")
	}

	validator := NewSchemaValidator(DB)
	results, err := validator.ValidateSchema()
	if err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}

	for _, result := range results {
		if result.IsValid {
			continue
		}
		logrus.WithFields(logrus.Fields{
			"table":           result.TableName,
			"missing_columns": result.MissingColumns,
			"missing_indexes": result.MissingIndexes,
		}).Warn("Schema validation found issues")
	}

	return nil
}

func (v *SchemaValidator) tableExists(tableName string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`
	var exists bool
	err := v.db.QueryRow(query, tableName).Scan(&exists)
	return exists, err
}

func (v *SchemaValidator) getTableColumns(tableName string) (map[string]string, error) {
	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
	`
	rows, err := v.db.Query(query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]string)
	for rows.Next() {
		var columnName, dataType string
		if err := rows.Scan(&columnName, &dataType); err != nil {
			return nil, err
		}
		columns[columnName] = dataType
	}

	return columns, rows.Err()
}

func (v *SchemaValidator) getTableIndexes(tableName string) ([]string, error) {
	query := `
		SELECT indexname
		FROM pg_indexes
		WHERE schemaname = 'public' AND tablename = $1
	`
	rows, err := v.db.Query(query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var indexName string
		if err := rows.Scan(&indexName); err != nil {
			return nil, err
		}
		indexes = append(indexes, indexName)
	}

	return indexes, rows.Err()
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
