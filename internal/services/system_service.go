package services

import (
	"context"
	"errors"

	"github.com/amber-cafe/api/internal/repositories"
)

type systemService struct {
	health repositories.HealthRepository
}

// NewSystemService wraps the dependency health repository for probe handlers.
func NewSystemService(health repositories.HealthRepository) (SystemService, error) {
	if health == nil {
		return nil, errors.New("system service: health repository is required")
	}
	return &systemService{health: health}, nil
}

func (s *systemService) Health(ctx context.Context) (repositories.SystemHealthReport, error) {
	return s.health.Collect(ctx)
}
