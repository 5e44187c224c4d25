// Package service implements the provisioning orchestrator and the asset
// publication pipeline over the entity store and the external system
// gateways.
package service

import (
	"context"
	"errors"

	"github.com/Metaform/redline/internal/client/tenantmanager"
	"github.com/Metaform/redline/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewTenantRegistration is the inbound request to register a tenant
type NewTenantRegistration struct {
	TenantName string            `json:"tenantName"`
	Dataspaces []uint            `json:"dataspaces"`
	Properties map[string]string `json:"properties,omitempty"`
}

// NewParticipantDeployment is the inbound request to deploy a participant
type NewParticipantDeployment struct {
	ParticipantID uint   `json:"participantId"`
	WebDID        string `json:"webDid"`
}

// VPAResource is the read model of a deployed agent
type VPAResource struct {
	ID    uint                  `json:"id"`
	Type  model.VPAType         `json:"type"`
	State model.DeploymentState `json:"state"`
}

// ParticipantResource is the read model of a participant
type ParticipantResource struct {
	ID         uint          `json:"id"`
	Identifier string        `json:"identifier"`
	VPAs       []VPAResource `json:"vpas"`
	Dataspaces []uint        `json:"dataspaces"`
}

// TenantResource is the read model of a tenant aggregate
type TenantResource struct {
	ID           uint                  `json:"id"`
	Name         string                `json:"name"`
	Participants []ParticipantResource `json:"participants"`
}

// TenantManagerGateway is the fleet manager surface the orchestrator uses
type TenantManagerGateway interface {
	CreateTenant(ctx context.Context, req tenantmanager.TenantCreationRequest) (*tenantmanager.Tenant, error)
	CreateParticipantProfile(ctx context.Context, tenantID string, profile tenantmanager.ParticipantProfile) (*tenantmanager.ParticipantProfile, error)
}

// TenantService drives the correlation lifecycle of tenants and
// participants against the fleet manager.
type TenantService struct {
	store         EntityStore
	tenantManager TenantManagerGateway
	log           *zap.Logger
}

// NewTenantService creates the provisioning orchestrator
func NewTenantService(store EntityStore, tenantManager TenantManagerGateway, log *zap.Logger) *TenantService {
	return &TenantService{
		store:         store,
		tenantManager: tenantManager,
		log:           log,
	}
}

// RegisterTenant creates a tenant with one participant and its dataspace
// memberships. Purely local; the fleet manager is not contacted until the
// participant is deployed.
func (s *TenantService) RegisterTenant(ctx context.Context, serviceProviderID uint, registration NewTenantRegistration) (*model.Tenant, error) {
	provider, err := s.store.ServiceProviderByID(ctx, serviceProviderID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, &NotFoundError{Entity: "service provider", ID: serviceProviderID}
		}
		return nil, err
	}

	dataspaces := make([]model.Dataspace, 0, len(registration.Dataspaces))
	for _, dataspaceID := range registration.Dataspaces {
		dataspace, err := s.store.DataspaceByID(ctx, dataspaceID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, &NotFoundError{Entity: "dataspace", ID: dataspaceID}
			}
			return nil, err
		}
		dataspaces = append(dataspaces, *dataspace)
	}

	tenant := &model.Tenant{
		Name:              registration.TenantName,
		Properties:        model.EncodeMetadata(registration.Properties),
		ServiceProviderID: provider.ID,
		Participants: []model.Participant{
			{
				Identifier: registration.TenantName,
				Dataspaces: dataspaces,
			},
		},
	}
	if err := s.store.CreateTenant(ctx, tenant); err != nil {
		return nil, err
	}

	s.log.Info("Registered tenant",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("name", tenant.Name),
		zap.Uint("service_provider_id", provider.ID))
	return tenant, nil
}

// DeployParticipant provisions a participant in the fleet manager. The
// owning tenant is created remotely first if it has no correlation id yet.
// Re-deploying an already correlated participant still issues the profile
// creation call and replaces the VPA set, which re-syncs agent state.
func (s *TenantService) DeployParticipant(ctx context.Context, deployment NewParticipantDeployment) (*ParticipantResource, error) {
	participant, err := s.store.ParticipantByID(ctx, deployment.ParticipantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, &NotFoundError{Entity: "participant", ID: deployment.ParticipantID}
		}
		return nil, err
	}

	tenant := participant.Tenant
	if tenant == nil {
		tenant, err = s.store.TenantByID(ctx, participant.TenantID)
		if err != nil {
			return nil, err
		}
	}

	if tenant.CorrelationID == nil {
		created, err := s.tenantManager.CreateTenant(ctx, tenantmanager.TenantCreationRequest{Properties: tenant.PropertyMap()})
		if err != nil {
			return nil, wrapGatewayError("tenant creation", err)
		}
		won, err := s.store.ClaimTenantCorrelationID(ctx, tenant.ID, created.ID)
		if err != nil {
			return nil, err
		}
		if won {
			tenant.CorrelationID = &created.ID
		} else {
			// A concurrent deploy correlated the tenant first; adopt its id
			fresh, err := s.store.TenantByID(ctx, tenant.ID)
			if err != nil {
				return nil, err
			}
			tenant.CorrelationID = fresh.CorrelationID
			s.log.Warn("Lost tenant correlation claim, adopting existing id",
				zap.Uint("tenant_id", tenant.ID))
		}
	}

	profile, err := s.tenantManager.CreateParticipantProfile(ctx, *tenant.CorrelationID, tenantmanager.ParticipantProfile{
		ID:               uuid.New().String(),
		Version:          0,
		Identifier:       deployment.WebDID,
		TenantID:         *tenant.CorrelationID,
		ParticipantRoles: map[string][]string{},
		Properties:       map[string]any{},
		VPAs:             []tenantmanager.VirtualParticipantAgent{},
	})
	if err != nil {
		return nil, wrapGatewayError("participant profile creation", err)
	}

	// Correlation id is first-write-wins; the identifier always tracks the
	// fleet manager's response
	if participant.CorrelationID == nil {
		participant.CorrelationID = &profile.ID
	}
	participant.Identifier = profile.Identifier

	agents, err := translateAgents(profile.VPAs)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveParticipant(ctx, participant); err != nil {
		return nil, err
	}
	if err := s.store.ReplaceAgents(ctx, participant, agents); err != nil {
		return nil, err
	}

	s.log.Info("Deployed participant",
		zap.Uint("participant_id", participant.ID),
		zap.String("identifier", participant.Identifier),
		zap.Int("agent_count", len(agents)))
	return toParticipantResource(participant), nil
}

// GetTenant returns a tenant aggregate with its participants
func (s *TenantService) GetTenant(ctx context.Context, id uint) (*TenantResource, error) {
	tenant, err := s.store.TenantByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, &NotFoundError{Entity: "tenant", ID: id}
		}
		return nil, err
	}

	participants := make([]ParticipantResource, 0, len(tenant.Participants))
	for i := range tenant.Participants {
		participants = append(participants, *toParticipantResource(&tenant.Participants[i]))
	}
	return &TenantResource{ID: tenant.ID, Name: tenant.Name, Participants: participants}, nil
}

// GetParticipant returns a single participant read model
func (s *TenantService) GetParticipant(ctx context.Context, id uint) (*ParticipantResource, error) {
	participant, err := s.store.ParticipantByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, &NotFoundError{Entity: "participant", ID: id}
		}
		return nil, err
	}
	return toParticipantResource(participant), nil
}

// translateAgents maps external VPA descriptors into the internal agent
// set. An unknown type tag or state is rejected, never stored.
func translateAgents(descriptors []tenantmanager.VirtualParticipantAgent) ([]model.VirtualParticipantAgent, error) {
	agents := make([]model.VirtualParticipantAgent, 0, len(descriptors))
	for _, descriptor := range descriptors {
		vpaType, err := model.VPATypeFromExternal(descriptor.Type)
		if err != nil {
			return nil, err
		}
		state, err := model.DeploymentStateFromExternal(descriptor.State)
		if err != nil {
			return nil, err
		}
		agents = append(agents, model.VirtualParticipantAgent{Type: vpaType, State: state})
	}
	return agents, nil
}

func toParticipantResource(participant *model.Participant) *ParticipantResource {
	vpas := make([]VPAResource, 0, len(participant.Agents))
	for _, agent := range participant.Agents {
		vpas = append(vpas, VPAResource{ID: agent.ID, Type: agent.Type, State: agent.State})
	}
	dataspaces := make([]uint, 0, len(participant.Dataspaces))
	for _, dataspace := range participant.Dataspaces {
		dataspaces = append(dataspaces, dataspace.ID)
	}
	return &ParticipantResource{
		ID:         participant.ID,
		Identifier: participant.Identifier,
		VPAs:       vpas,
		Dataspaces: dataspaces,
	}
}
