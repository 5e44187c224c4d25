// Package store implements the entity store on a transactional relational
// database via GORM.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Metaform/redline/internal/model"
	"github.com/Metaform/redline/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the database and runs migrations for the domain model
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	pgConfig := postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.AutoMigrate(
		&model.ServiceProvider{},
		&model.Dataspace{},
		&model.Tenant{},
		&model.Participant{},
		&model.VirtualParticipantAgent{},
		&model.UploadedFile{},
	); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	return db, nil
}

func logLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	default:
		return gormlogger.Info
	}
}

// Store is the GORM-backed entity store
type Store struct {
	db *gorm.DB
}

// New creates a store over an open database handle
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ServiceProviderByID fetches a service provider
func (s *Store) ServiceProviderByID(ctx context.Context, id uint) (*model.ServiceProvider, error) {
	var provider model.ServiceProvider
	if err := s.db.WithContext(ctx).First(&provider, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &provider, nil
}

// CreateServiceProvider persists a new service provider
func (s *Store) CreateServiceProvider(ctx context.Context, provider *model.ServiceProvider) error {
	return s.db.WithContext(ctx).Create(provider).Error
}

// ListServiceProviders returns all service providers
func (s *Store) ListServiceProviders(ctx context.Context) ([]model.ServiceProvider, error) {
	var providers []model.ServiceProvider
	if err := s.db.WithContext(ctx).Find(&providers).Error; err != nil {
		return nil, err
	}
	return providers, nil
}

// DataspaceByID fetches a dataspace
func (s *Store) DataspaceByID(ctx context.Context, id uint) (*model.Dataspace, error) {
	var dataspace model.Dataspace
	if err := s.db.WithContext(ctx).First(&dataspace, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &dataspace, nil
}

// CreateDataspace persists a new dataspace
func (s *Store) CreateDataspace(ctx context.Context, dataspace *model.Dataspace) error {
	return s.db.WithContext(ctx).Create(dataspace).Error
}

// ListDataspaces returns all dataspaces
func (s *Store) ListDataspaces(ctx context.Context) ([]model.Dataspace, error) {
	var dataspaces []model.Dataspace
	if err := s.db.WithContext(ctx).Find(&dataspaces).Error; err != nil {
		return nil, err
	}
	return dataspaces, nil
}

// TenantByID fetches a tenant with its participants
func (s *Store) TenantByID(ctx context.Context, id uint) (*model.Tenant, error) {
	var tenant model.Tenant
	err := s.db.WithContext(ctx).
		Preload("Participants").
		Preload("Participants.Dataspaces").
		Preload("Participants.Agents").
		First(&tenant, id).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &tenant, nil
}

// CreateTenant persists a tenant together with its associations
func (s *Store) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	return s.db.WithContext(ctx).Create(tenant).Error
}

// SaveTenant updates an existing tenant
func (s *Store) SaveTenant(ctx context.Context, tenant *model.Tenant) error {
	return s.db.WithContext(ctx).Save(tenant).Error
}

// ClaimTenantCorrelationID sets the tenant's correlation id only if it is
// currently null and reports whether this caller won the claim. Losing the
// claim means a concurrent deploy already correlated the tenant.
func (s *Store) ClaimTenantCorrelationID(ctx context.Context, tenantID uint, correlationID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Tenant{}).
		Where("id = ? AND correlation_id IS NULL", tenantID).
		Update("correlation_id", correlationID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ParticipantByID fetches a participant with its tenant, memberships,
// agents, and uploaded files
func (s *Store) ParticipantByID(ctx context.Context, id uint) (*model.Participant, error) {
	var participant model.Participant
	err := s.db.WithContext(ctx).
		Preload("Tenant").
		Preload("Dataspaces").
		Preload("Agents").
		Preload("UploadedFiles").
		First(&participant, id).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &participant, nil
}

// ParticipantByContextID fetches a participant by its identity hub
// correlation key
func (s *Store) ParticipantByContextID(ctx context.Context, participantContextID string) (*model.Participant, error) {
	var participant model.Participant
	err := s.db.WithContext(ctx).
		Preload("Tenant").
		Preload("Dataspaces").
		Preload("Agents").
		Where("participant_context_id = ?", participantContextID).
		First(&participant).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &participant, nil
}

// SaveParticipant updates an existing participant
func (s *Store) SaveParticipant(ctx context.Context, participant *model.Participant) error {
	return s.db.WithContext(ctx).Save(participant).Error
}

// ReplaceAgents swaps a participant's VPA set wholesale. The previous set
// is discarded, not diffed.
func (s *Store) ReplaceAgents(ctx context.Context, participant *model.Participant, agents []model.VirtualParticipantAgent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("participant_id = ?", participant.ID).Delete(&model.VirtualParticipantAgent{}).Error; err != nil {
			return err
		}
		for i := range agents {
			agents[i].ParticipantID = participant.ID
		}
		if len(agents) > 0 {
			if err := tx.Create(&agents).Error; err != nil {
				return err
			}
		}
		participant.Agents = agents
		return nil
	})
}

// AddUploadedFile records a published file on a participant
func (s *Store) AddUploadedFile(ctx context.Context, participantID uint, file *model.UploadedFile) error {
	file.ParticipantID = participantID
	return s.db.WithContext(ctx).Create(file).Error
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ErrNotFound
	}
	return err
}
