package domain

import (
	"context"
)

// AssessmentRepository defines the interface for assessment persistence
type AssessmentRepository interface {
	Save(ctx context.Context, assessment *Assessment) error
	GetByID(ctx context.Context, id string) (*Assessment, error)
	ListRecent(ctx context.Context, limit int) ([]*Assessment, error)
}

// AssessmentCache defines the interface for recent assessment lookups
type AssessmentCache interface {
	Get(ctx context.Context, id string) (*Assessment, bool, error)
	Set(ctx context.Context, assessment *Assessment) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetModelConfig() *ModelConfig
	GetDatabaseConfig() *DatabaseConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
