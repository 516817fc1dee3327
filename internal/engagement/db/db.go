package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbmodels "github.com/gartstein/consulting/internal/engagement/db/models"
	e "github.com/gartstein/consulting/internal/engagement/errors"
	"github.com/gartstein/consulting/internal/engagement/models"
	"github.com/gartstein/consulting/internal/engagement/policy"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func NewRepository(cfg *Config) (*Repository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newRepository(db)
}

func newRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&dbmodels.Engagement{}, &dbmodels.Member{}, &dbmodels.DeadlinePolicy{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) CreateEngagement(ctx context.Context, en *models.Engagement) error {
	result := r.db.WithContext(ctx).Create(engagementToRow(en))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: engagement %s already exists", e.ErrValidation, en.ID)
		}
		return storeError(result.Error)
	}
	return nil
}

func (r *Repository) GetEngagement(ctx context.Context, id uuid.UUID) (*models.Engagement, error) {
	var row dbmodels.Engagement
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, storeError(result.Error)
	}
	return rowToEngagement(&row)
}

// SaveEngagement writes the full engagement if the stored version still
// equals expectedVersion, and bumps en.Version on success.
func (r *Repository) SaveEngagement(ctx context.Context, en *models.Engagement, expectedVersion int64) error {
	row := engagementToRow(en)
	next := expectedVersion + 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&dbmodels.Engagement{}).
			Where("id = ? AND version = ?", en.ID, expectedVersion).
			Updates(map[string]interface{}{
				"client":                      row.Client,
				"type":                        row.Type,
				"size":                        row.Size,
				"consultant_id":               row.ConsultantID,
				"start_date":                  row.StartDate,
				"planned_end_date":            row.PlannedEndDate,
				"planned_duration_days":       row.PlannedDurationDays,
				"value":                       row.Value,
				"status":                      row.Status,
				"pause_started_at":            row.PauseStartedAt,
				"paused_days_total":           row.PausedDaysTotal,
				"rating":                      row.Rating,
				"deadline_met":                row.DeadlineMet,
				"closing_signature_confirmed": row.ClosingSignatureConfirmed,
				"commission_percent":          row.CommissionPercent,
				"commission_amount":           row.CommissionAmount,
				"finalized_at":                row.FinalizedAt,
				"cancelled_at":                row.CancelledAt,
				"updated_at":                  row.UpdatedAt,
				"version":                     next,
			})
		if result.Error != nil {
			return storeError(result.Error)
		}
		if result.RowsAffected == 1 {
			return nil
		}

		var count int64
		if err := tx.Model(&dbmodels.Engagement{}).Where("id = ?", en.ID).Count(&count).Error; err != nil {
			return storeError(err)
		}
		if count == 0 {
			return e.ErrNotFound
		}
		return fmt.Errorf("%w: engagement %s changed since version %d", e.ErrConcurrentModification, en.ID, expectedVersion)
	})
	if err != nil {
		return err
	}

	en.Version = next
	return nil
}

func (r *Repository) ListEngagements(ctx context.Context, filter models.EngagementFilter) ([]models.Engagement, error) {
	q := r.db.WithContext(ctx).Model(&dbmodels.Engagement{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.ConsultantID != nil {
		q = q.Where("consultant_id = ?", *filter.ConsultantID)
	}
	if filter.FinalizedFrom != nil {
		q = q.Where("finalized_at >= ?", *filter.FinalizedFrom)
	}
	if filter.FinalizedUntil != nil {
		q = q.Where("finalized_at < ?", *filter.FinalizedUntil)
	}

	var rows []dbmodels.Engagement
	if err := q.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, storeError(err)
	}

	out := make([]models.Engagement, 0, len(rows))
	for i := range rows {
		en, err := rowToEngagement(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *en)
	}
	return out, nil
}

func (r *Repository) CreateMember(ctx context.Context, m *models.Member) error {
	result := r.db.WithContext(ctx).Create(memberToRow(m))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: member %s already exists", e.ErrValidation, m.ID)
		}
		return storeError(result.Error)
	}
	return nil
}

func (r *Repository) GetMember(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var row dbmodels.Member
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, storeError(result.Error)
	}
	return rowToMember(&row), nil
}

func (r *Repository) ListMembers(ctx context.Context) ([]models.Member, error) {
	var rows []dbmodels.Member
	if err := r.db.WithContext(ctx).Order("name asc").Find(&rows).Error; err != nil {
		return nil, storeError(err)
	}
	out := make([]models.Member, 0, len(rows))
	for i := range rows {
		out = append(out, *rowToMember(&rows[i]))
	}
	return out, nil
}

// LoadSizeDeadlinePolicy reads the deadline_policies table. An empty table
// yields the default policy.
func (r *Repository) LoadSizeDeadlinePolicy(ctx context.Context) (policy.DeadlinePolicy, error) {
	var rows []dbmodels.DeadlinePolicy
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return policy.DeadlinePolicy{}, storeError(err)
	}
	if len(rows) == 0 {
		return policy.DefaultDeadlinePolicy(), nil
	}

	p := policy.DeadlinePolicy{
		Limits:        map[models.Size]int{},
		TypeOverrides: map[models.EngagementType]map[models.Size]int{},
	}
	for _, row := range rows {
		size, err := models.ParseSize(row.Size)
		if err != nil {
			return policy.DeadlinePolicy{}, storeError(err)
		}
		if row.EngagementType == "" {
			p.Limits[size] = row.Days
			continue
		}
		typ, err := models.ParseType(row.EngagementType)
		if err != nil {
			return policy.DeadlinePolicy{}, storeError(err)
		}
		if p.TypeOverrides[typ] == nil {
			p.TypeOverrides[typ] = map[models.Size]int{}
		}
		p.TypeOverrides[typ][size] = row.Days
	}
	return p, nil
}

// SeedDeadlinePolicy replaces the contents of the deadline_policies table
// with the limits of p, so rows dropped from the configuration disappear too.
func (r *Repository) SeedDeadlinePolicy(ctx context.Context, p policy.DeadlinePolicy) error {
	var rows []dbmodels.DeadlinePolicy
	for size, days := range p.Limits {
		rows = append(rows, dbmodels.DeadlinePolicy{Size: string(size), Days: days})
	}
	for typ, limits := range p.TypeOverrides {
		for size, days := range limits {
			rows = append(rows, dbmodels.DeadlinePolicy{EngagementType: string(typ), Size: string(size), Days: days})
		}
	}

	return r.WithTransaction(ctx, func(repo *Repository) error {
		if err := repo.db.Where("1 = 1").Delete(&dbmodels.DeadlinePolicy{}).Error; err != nil {
			return storeError(err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := repo.db.Create(&rows).Error; err != nil {
			return storeError(err)
		}
		return nil
	})
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// Exec runs a raw statement. It is meant for maintenance such as truncating
// tables between integration tests.
func (r *Repository) Exec(ctx context.Context, sql string, values ...interface{}) error {
	if err := r.db.WithContext(ctx).Exec(sql, values...).Error; err != nil {
		return storeError(err)
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func storeError(err error) error {
	return fmt.Errorf("%w: %v", e.ErrStore, err)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
