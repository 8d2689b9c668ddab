package dbrecommend

import (
	"context"

	"github.com/dishola/dishola/internal/domain/recommendation"
)

// Repository looks dishes up by name substring.
type Repository interface {
	FindByName(ctx context.Context, name string, limit int) ([]recommendation.Candidate, error)
}
