package database

import (
	"fmt"

	"gorm.io/gorm"
)

// RunMigrations executes all database migrations
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&Query{}, &Judgment{}); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	// Create indexes for better performance
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

var indexes = []string{
	// Case lookups
	`CREATE INDEX IF NOT EXISTS idx_queries_case ON queries(case_type, case_number, year)`,
	// Court filters
	`CREATE INDEX IF NOT EXISTS idx_queries_court ON queries(court_type, court_name)`,
	// History ordering
	`CREATE INDEX IF NOT EXISTS idx_queries_time ON queries(query_time)`,
	// Judgments per query
	`CREATE INDEX IF NOT EXISTS idx_judgments_query ON judgments(query_id)`,
}

// createIndexes creates database indexes
func createIndexes(db *gorm.DB) error {
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
