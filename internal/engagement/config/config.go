// Package config loads the service configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/gartstein/consulting/internal/engagement/models"
	"github.com/gartstein/consulting/internal/engagement/policy"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config struct for YAML configuration
type Config struct {
	GRPCPort     int      `yaml:"GRPC_PORT" validate:"required,min=1,max=65535"`
	HTTPPort     int      `yaml:"HTTP_PORT" validate:"required,min=1,max=65535"`
	Store        string   `yaml:"STORE" validate:"required,oneof=memory postgres"`
	DBHost       string   `yaml:"DB_HOST" validate:"required_if=Store postgres"`
	DBPort       int      `yaml:"DB_PORT" validate:"required_if=Store postgres"`
	DBUser       string   `yaml:"DB_USER"`
	DBPassword   string   `yaml:"DB_PASSWORD"`
	DBName       string   `yaml:"DB_NAME" validate:"required_if=Store postgres"`
	DBSSLMode    string   `yaml:"DB_SSLMODE"`
	KafkaBrokers []string `yaml:"KAFKA_BROKERS"`
	JWTSecret    string   `yaml:"JWT_SECRET" validate:"required"`
	Topic        string   `yaml:"TOPIC" validate:"required_with=KafkaBrokers"`

	DeadlinePolicy    map[string]int            `yaml:"DEADLINE_POLICY"`
	DeadlineOverrides map[string]map[string]int `yaml:"DEADLINE_OVERRIDES"`
	CommissionTiers   []CommissionTier          `yaml:"COMMISSION_TIERS" validate:"dive"`
}

// CommissionTier is the YAML form of policy.CommissionTier.
type CommissionTier struct {
	Name        string  `yaml:"NAME" validate:"required"`
	DeadlineMet bool    `yaml:"DEADLINE_MET"`
	MinRating   int     `yaml:"MIN_RATING" validate:"min=1,max=5"`
	MaxRating   int     `yaml:"MAX_RATING" validate:"min=1,max=5,gtefield=MinRating"`
	Percent     float64 `yaml:"PERCENT" validate:"min=0,max=100"`
}

// Load reads the YAML file at path, loads a .env file if one exists, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"STORE":       &c.Store,
		"DB_HOST":     &c.DBHost,
		"DB_USER":     &c.DBUser,
		"DB_PASSWORD": &c.DBPassword,
		"DB_NAME":     &c.DBName,
		"DB_SSLMODE":  &c.DBSSLMode,
		"JWT_SECRET":  &c.JWTSecret,
		"TOPIC":       &c.Topic,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"GRPC_PORT": &c.GRPCPort,
		"HTTP_PORT": &c.HTTPPort,
		"DB_PORT":   &c.DBPort,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.KafkaBrokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.KafkaBrokers = append(c.KafkaBrokers, b)
			}
		}
	}
	return nil
}

// Deadlines builds the deadline policy. Missing sizes fall back to the
// default table.
func (c *Config) Deadlines() (policy.DeadlinePolicy, error) {
	p := policy.DefaultDeadlinePolicy()
	for raw, days := range c.DeadlinePolicy {
		size, err := models.ParseSize(raw)
		if err != nil {
			return policy.DeadlinePolicy{}, err
		}
		p.Limits[size] = days
	}
	for rawType, limits := range c.DeadlineOverrides {
		typ, err := models.ParseType(rawType)
		if err != nil {
			return policy.DeadlinePolicy{}, err
		}
		overrides := map[models.Size]int{}
		for raw, days := range limits {
			size, err := models.ParseSize(raw)
			if err != nil {
				return policy.DeadlinePolicy{}, err
			}
			overrides[size] = days
		}
		p.TypeOverrides[typ] = overrides
	}
	return p, nil
}

// Calculator builds the commission calculator from the configured tiers,
// or the default table when none are configured.
func (c *Config) Calculator() (*policy.Calculator, error) {
	if len(c.CommissionTiers) == 0 {
		return policy.NewCalculator(policy.DefaultCommissionTable())
	}
	table := make(policy.CommissionTable, 0, len(c.CommissionTiers))
	for _, t := range c.CommissionTiers {
		table = append(table, policy.CommissionTier{
			Name:        t.Name,
			DeadlineMet: t.DeadlineMet,
			MinRating:   t.MinRating,
			MaxRating:   t.MaxRating,
			Percent:     decimal.NewFromFloat(t.Percent),
		})
	}
	return policy.NewCalculator(table)
}
