package repository

import (
	"fmt"

	"github.com/yourusername/crosscheck/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Bar     BarRepository
	Verdict VerdictRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Bar:     NewPostgresBarRepository(db),
		Verdict: NewPostgresVerdictRepository(db),
	}, nil
}
