package controller

import (
	"context"
	"fmt"
	"strings"

	e "github.com/gartstein/consulting/internal/engagement/errors"
	"github.com/gartstein/consulting/internal/engagement/models"
	"github.com/google/uuid"
)

// CreateMember registers a staff member that can be assigned as consultant.
func (s *EngagementService) CreateMember(ctx context.Context, m *models.Member) (*models.Member, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" || len(m.Name) > 120 {
		return nil, fmt.Errorf("%w: invalid member name", e.ErrValidation)
	}

	now := s.now()
	m.ID = uuid.New()
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := s.repo.CreateMember(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return m, nil
}

func (s *EngagementService) ListMembers(ctx context.Context) ([]models.Member, error) {
	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}
