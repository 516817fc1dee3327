// Package memory provides an in-process engagement store. It backs local
// runs and tests and is selected with STORE=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	e "github.com/gartstein/consulting/internal/engagement/errors"
	"github.com/gartstein/consulting/internal/engagement/models"
	"github.com/gartstein/consulting/internal/engagement/policy"
	"github.com/google/uuid"
)

// Store keeps engagements and members in maps guarded by a mutex. Records
// are copied on the way in and out so callers never share state with it.
type Store struct {
	mu          sync.RWMutex
	engagements map[uuid.UUID]*models.Engagement
	members     map[uuid.UUID]models.Member
	deadlines   policy.DeadlinePolicy
}

// NewStore creates an empty store answering LoadSizeDeadlinePolicy with
// the given static policy.
func NewStore(deadlines policy.DeadlinePolicy) *Store {
	return &Store{
		engagements: make(map[uuid.UUID]*models.Engagement),
		members:     make(map[uuid.UUID]models.Member),
		deadlines:   deadlines,
	}
}

func (s *Store) CreateEngagement(_ context.Context, en *models.Engagement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.engagements[en.ID]; ok {
		return fmt.Errorf("%w: engagement %s already exists", e.ErrValidation, en.ID)
	}
	s.engagements[en.ID] = en.Clone()
	return nil
}

func (s *Store) GetEngagement(_ context.Context, id uuid.UUID) (*models.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	en, ok := s.engagements[id]
	if !ok {
		return nil, e.ErrNotFound
	}
	return en.Clone(), nil
}

// SaveEngagement replaces the stored engagement if its version still equals
// expectedVersion, and bumps en.Version on success.
func (s *Store) SaveEngagement(_ context.Context, en *models.Engagement, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.engagements[en.ID]
	if !ok {
		return e.ErrNotFound
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("%w: engagement %s changed since version %d", e.ErrConcurrentModification, en.ID, expectedVersion)
	}

	en.Version = expectedVersion + 1
	s.engagements[en.ID] = en.Clone()
	return nil
}

func (s *Store) ListEngagements(_ context.Context, filter models.EngagementFilter) ([]models.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Engagement, 0, len(s.engagements))
	for _, en := range s.engagements {
		if filter.Matches(en) {
			out = append(out, *en.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateMember(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[m.ID]; ok {
		return fmt.Errorf("%w: member %s already exists", e.ErrValidation, m.ID)
	}
	s.members[m.ID] = *m
	return nil
}

func (s *Store) GetMember(_ context.Context, id uuid.UUID) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return nil, e.ErrNotFound
	}
	return &m, nil
}

func (s *Store) ListMembers(_ context.Context) ([]models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) LoadSizeDeadlinePolicy(_ context.Context) (policy.DeadlinePolicy, error) {
	return s.deadlines, nil
}

func (s *Store) Close() error {
	return nil
}
