package service

import (
	"context"
	"errors"

	"github.com/Metaform/redline/internal/client/identityhub"
	"github.com/Metaform/redline/internal/model"
	"go.uber.org/zap"
)

// IdentityHubGateway is the identity hub surface the service uses
type IdentityHubGateway interface {
	GetParticipant(ctx context.Context, creds model.ClientCredentials, participantContextID string) (*identityhub.ParticipantContext, error)
	QueryCredentials(ctx context.Context, creds model.ClientCredentials, participantContextID, credentialType string) ([]identityhub.CredentialResource, error)
	RequestCredential(ctx context.Context, creds model.ClientCredentials, participantContextID string, request identityhub.CredentialRequest) error
	QueryKeyPairs(ctx context.Context, creds model.ClientCredentials, participantContextID string) ([]identityhub.KeyPairResource, error)
	AddKeyPair(ctx context.Context, creds model.ClientCredentials, participantContextID string, descriptor identityhub.KeyDescriptor, makeDefault bool) error
}

// SecretReader resolves wrapped secret values from the secret store
type SecretReader interface {
	ReadSecret(ctx context.Context, path string) (string, error)
}

// IdentityService exposes a participant's identity hub state: its context,
// credentials, and key pairs, plus the API token stored in the secret store.
type IdentityService struct {
	store       EntityStore
	identityHub IdentityHubGateway
	secrets     SecretReader
	log         *zap.Logger
}

// NewIdentityService creates the identity service
func NewIdentityService(store EntityStore, identityHub IdentityHubGateway, secrets SecretReader, log *zap.Logger) *IdentityService {
	return &IdentityService{
		store:       store,
		identityHub: identityHub,
		secrets:     secrets,
		log:         log,
	}
}

// GetParticipantContext fetches the identity hub context of a participant
func (s *IdentityService) GetParticipantContext(ctx context.Context, participantID uint) (*identityhub.ParticipantContext, error) {
	participant, err := s.loadParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	participantContext, err := s.identityHub.GetParticipant(ctx, participant.ClientCredentials, participant.ParticipantContextID)
	if err != nil {
		return nil, wrapGatewayError("participant context lookup", err)
	}
	return participantContext, nil
}

// ListCredentials returns the verifiable credentials held for a
// participant, optionally filtered by type
func (s *IdentityService) ListCredentials(ctx context.Context, participantID uint, credentialType string) ([]identityhub.CredentialResource, error) {
	participant, err := s.loadParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	credentials, err := s.identityHub.QueryCredentials(ctx, participant.ClientCredentials, participant.ParticipantContextID, credentialType)
	if err != nil {
		return nil, wrapGatewayError("credential query", err)
	}
	return credentials, nil
}

// RequestCredential asks an issuer for a credential on behalf of a
// participant
func (s *IdentityService) RequestCredential(ctx context.Context, participantID uint, request identityhub.CredentialRequest) error {
	participant, err := s.loadParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	if err := s.identityHub.RequestCredential(ctx, participant.ClientCredentials, participant.ParticipantContextID, request); err != nil {
		return wrapGatewayError("credential request", err)
	}
	return nil
}

// ListKeyPairs returns the signing key pairs bound to a participant
func (s *IdentityService) ListKeyPairs(ctx context.Context, participantID uint) ([]identityhub.KeyPairResource, error) {
	participant, err := s.loadParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	keyPairs, err := s.identityHub.QueryKeyPairs(ctx, participant.ClientCredentials, participant.ParticipantContextID)
	if err != nil {
		return nil, wrapGatewayError("key pair query", err)
	}
	return keyPairs, nil
}

// AddKeyPair creates a new key pair for a participant
func (s *IdentityService) AddKeyPair(ctx context.Context, participantID uint, descriptor identityhub.KeyDescriptor, makeDefault bool) error {
	participant, err := s.loadParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	if err := s.identityHub.AddKeyPair(ctx, participant.ClientCredentials, participant.ParticipantContextID, descriptor, makeDefault); err != nil {
		return wrapGatewayError("key pair creation", err)
	}
	return nil
}

// ResolveAPIToken reads the participant's API token from the secret store
// via the token alias on its identity hub context. An absent secret yields
// an empty string.
func (s *IdentityService) ResolveAPIToken(ctx context.Context, participantID uint) (string, error) {
	participant, err := s.loadParticipant(ctx, participantID)
	if err != nil {
		return "", err
	}
	participantContext, err := s.identityHub.GetParticipant(ctx, participant.ClientCredentials, participant.ParticipantContextID)
	if err != nil {
		return "", wrapGatewayError("participant context lookup", err)
	}
	if participantContext.APITokenAlias == "" {
		return "", nil
	}
	return s.secrets.ReadSecret(ctx, participantContext.APITokenAlias)
}

func (s *IdentityService) loadParticipant(ctx context.Context, participantID uint) (*model.Participant, error) {
	participant, err := s.store.ParticipantByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, &NotFoundError{Entity: "participant", ID: participantID}
		}
		return nil, err
	}
	return participant, nil
}
