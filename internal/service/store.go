package service

import (
	"context"

	"github.com/Metaform/redline/internal/model"
)

// EntityStore is the persistence surface the services depend on
type EntityStore interface {
	ServiceProviderByID(ctx context.Context, id uint) (*model.ServiceProvider, error)
	CreateServiceProvider(ctx context.Context, provider *model.ServiceProvider) error
	ListServiceProviders(ctx context.Context) ([]model.ServiceProvider, error)

	DataspaceByID(ctx context.Context, id uint) (*model.Dataspace, error)
	CreateDataspace(ctx context.Context, dataspace *model.Dataspace) error
	ListDataspaces(ctx context.Context) ([]model.Dataspace, error)

	TenantByID(ctx context.Context, id uint) (*model.Tenant, error)
	CreateTenant(ctx context.Context, tenant *model.Tenant) error
	SaveTenant(ctx context.Context, tenant *model.Tenant) error
	ClaimTenantCorrelationID(ctx context.Context, tenantID uint, correlationID string) (bool, error)

	ParticipantByID(ctx context.Context, id uint) (*model.Participant, error)
	ParticipantByContextID(ctx context.Context, participantContextID string) (*model.Participant, error)
	SaveParticipant(ctx context.Context, participant *model.Participant) error
	ReplaceAgents(ctx context.Context, participant *model.Participant, agents []model.VirtualParticipantAgent) error
	AddUploadedFile(ctx context.Context, participantID uint, file *model.UploadedFile) error
}
