package service

import (
	"context"

	"github.com/Metaform/redline/internal/client/tenantmanager"
	"github.com/Metaform/redline/internal/model"
	"go.uber.org/zap"
)

// NewServiceProvider is the inbound request to create a service provider
type NewServiceProvider struct {
	Name string `json:"name"`
}

// NewDataspace is the inbound request to register a dataspace. ProfileID
// optionally references a dataspace profile in the fleet manager.
type NewDataspace struct {
	Name      string `json:"name"`
	ProfileID string `json:"profileId,omitempty"`
}

// DataspaceProfileGateway resolves dataspace profiles in the fleet manager
type DataspaceProfileGateway interface {
	GetDataspaceProfile(ctx context.Context, id string) (*tenantmanager.DataspaceProfile, error)
}

// ProviderService manages service providers and dataspaces
type ProviderService struct {
	store    EntityStore
	profiles DataspaceProfileGateway
	log      *zap.Logger
}

// NewProviderService creates the provider administration service
func NewProviderService(store EntityStore, profiles DataspaceProfileGateway, log *zap.Logger) *ProviderService {
	return &ProviderService{
		store:    store,
		profiles: profiles,
		log:      log,
	}
}

// CreateServiceProvider registers a new service provider
func (s *ProviderService) CreateServiceProvider(ctx context.Context, request NewServiceProvider) (*model.ServiceProvider, error) {
	provider := &model.ServiceProvider{Name: request.Name}
	if err := s.store.CreateServiceProvider(ctx, provider); err != nil {
		return nil, err
	}
	s.log.Info("Created service provider", zap.Uint("id", provider.ID), zap.String("name", provider.Name))
	return provider, nil
}

// ListServiceProviders returns all service providers
func (s *ProviderService) ListServiceProviders(ctx context.Context) ([]model.ServiceProvider, error) {
	return s.store.ListServiceProviders(ctx)
}

// CreateDataspace registers a dataspace. When a profile id is given it is
// resolved against the fleet manager first so that dangling references
// never enter the store.
func (s *ProviderService) CreateDataspace(ctx context.Context, request NewDataspace) (*model.Dataspace, error) {
	if request.ProfileID != "" {
		if _, err := s.profiles.GetDataspaceProfile(ctx, request.ProfileID); err != nil {
			return nil, wrapGatewayError("dataspace profile lookup", err)
		}
	}

	dataspace := &model.Dataspace{Name: request.Name, ProfileID: request.ProfileID}
	if err := s.store.CreateDataspace(ctx, dataspace); err != nil {
		return nil, err
	}
	s.log.Info("Created dataspace", zap.Uint("id", dataspace.ID), zap.String("name", dataspace.Name))
	return dataspace, nil
}

// ListDataspaces returns all dataspaces
func (s *ProviderService) ListDataspaces(ctx context.Context) ([]model.Dataspace, error) {
	return s.store.ListDataspaces(ctx)
}
