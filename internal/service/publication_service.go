package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Metaform/redline/internal/client"
	"github.com/Metaform/redline/internal/client/dataplane"
	"github.com/Metaform/redline/internal/client/management"
	"github.com/Metaform/redline/internal/model"
	"github.com/Metaform/redline/prometheus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ControlPlaneGateway is the management API surface the pipeline uses
type ControlPlaneGateway interface {
	CreateCelExpression(ctx context.Context, creds model.ClientCredentials, expression management.NewCelExpression) error
	CreateAsset(ctx context.Context, creds model.ClientCredentials, participantContextID string, asset management.NewAsset) error
	CreatePolicyDefinition(ctx context.Context, creds model.ClientCredentials, participantContextID string, policy management.NewPolicyDefinition) error
	CreateContractDefinition(ctx context.Context, creds model.ClientCredentials, participantContextID string, definition management.NewContractDefinition) error
	RegisterDataplane(ctx context.Context, creds model.ClientCredentials, participantContextID string, registration management.DataplaneRegistration) error
	RequestContractNegotiation(ctx context.Context, creds model.ClientCredentials, participantContextID string, request management.ContractRequest) (*management.IDResponse, error)
	GetContractNegotiation(ctx context.Context, creds model.ClientCredentials, participantContextID, negotiationID string) (*management.Negotiation, error)
}

// DataPlaneGateway is the data plane surface the pipeline uses
type DataPlaneGateway interface {
	Upload(ctx context.Context, creds model.ClientCredentials, metadata map[string]string, fileName, contentType string, data io.Reader) (*dataplane.UploadResponse, error)
	Download(ctx context.Context, creds model.ClientCredentials, fileID string) ([]byte, error)
}

// PublicationService publishes uploaded files as governed assets. Every
// publication runs the full pipeline from the top; the idempotent steps
// tolerate conflicts so a retry repeats only the side-effect-free paths.
type PublicationService struct {
	store        EntityStore
	controlPlane ControlPlaneGateway
	dataPlane    DataPlaneGateway
	adminCreds   model.ClientCredentials
	log          *zap.Logger
}

// NewPublicationService creates the asset publication pipeline. The admin
// credentials authorize the CEL expression step, which has no participant
// scope.
func NewPublicationService(store EntityStore, controlPlane ControlPlaneGateway, dataPlane DataPlaneGateway, adminCreds model.ClientCredentials, log *zap.Logger) *PublicationService {
	return &PublicationService{
		store:        store,
		controlPlane: controlPlane,
		dataPlane:    dataPlane,
		adminCreds:   adminCreds,
		log:          log,
	}
}

// PublishFile drives the publication pipeline: CEL expression, asset,
// shared policy, shared contract definition, then the physical upload.
// Conflicts are tolerated only for the policy and the contract definition.
// A failed upload leaves the control plane resources in place; publication
// is retried from the top.
func (s *PublicationService) PublishFile(ctx context.Context, participantID uint, metadata map[string]string, fileName, contentType string, data io.Reader) (*model.UploadedFile, error) {
	participant, err := s.store.ParticipantByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, &NotFoundError{Entity: "participant", ID: participantID}
		}
		return nil, err
	}
	creds := participant.ClientCredentials
	contextID := participant.ParticipantContextID

	if err := timedStep("cel_expression", func() error {
		return s.controlPlane.CreateCelExpression(ctx, s.adminCreds, MembershipCelExpression)
	}); err != nil {
		return nil, wrapGatewayError("cel expression creation", err)
	}

	asset := management.NewAsset{
		ID: uuid.New().String(),
		Properties: map[string]string{
			"name":        fileName,
			"contentType": contentType,
		},
		PrivateProperties: map[string]string{
			PermissionPropertyKey: AssetPermission,
		},
		DataAddress: map[string]string{
			"type": "HttpData",
		},
	}
	if err := timedStep("asset", func() error {
		return s.controlPlane.CreateAsset(ctx, creds, contextID, asset)
	}); err != nil {
		return nil, wrapGatewayError("asset creation", err)
	}

	if err := s.controlPlane.CreatePolicyDefinition(ctx, creds, contextID, MembershipPolicy); err != nil {
		if !client.IsConflict(err) {
			return nil, wrapGatewayError("policy creation", err)
		}
		s.log.Debug("Membership policy already exists", zap.String("participant_context_id", contextID))
	}

	if err := s.controlPlane.CreateContractDefinition(ctx, creds, contextID, MembershipContractDefinition); err != nil {
		if !client.IsConflict(err) {
			return nil, wrapGatewayError("contract definition creation", err)
		}
		s.log.Debug("Membership contract definition already exists", zap.String("participant_context_id", contextID))
	}

	var uploaded *dataplane.UploadResponse
	if err := timedStep("upload", func() error {
		var uploadErr error
		uploaded, uploadErr = s.dataPlane.Upload(ctx, creds, metadata, fileName, contentType, data)
		return uploadErr
	}); err != nil {
		return nil, wrapGatewayError("file upload", err)
	}

	file := &model.UploadedFile{
		FileID:      uploaded.ID,
		FileName:    fileName,
		ContentType: contentType,
		Metadata:    model.EncodeMetadata(metadata),
	}
	if err := s.store.AddUploadedFile(ctx, participant.ID, file); err != nil {
		return nil, err
	}

	s.log.Info("Published file",
		zap.Uint("participant_id", participant.ID),
		zap.String("file_id", file.FileID),
		zap.String("file_name", file.FileName))
	return file, nil
}

// timedStep observes a pipeline step's duration regardless of outcome
func timedStep(name string, fn func() error) error {
	done := prometheus.TrackPipelineStep(name)
	err := fn()
	done(time.Now())
	return err
}

// RegisterDataplane announces a data plane endpoint to the control plane
// for the participant's context
func (s *PublicationService) RegisterDataplane(ctx context.Context, participantID uint, registration management.DataplaneRegistration) error {
	participant, err := s.store.ParticipantByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return &NotFoundError{Entity: "participant", ID: participantID}
		}
		return err
	}

	if err := s.controlPlane.RegisterDataplane(ctx, participant.ClientCredentials, participant.ParticipantContextID, registration); err != nil {
		return wrapGatewayError("dataplane registration", err)
	}

	s.log.Info("Registered data plane",
		zap.Uint("participant_id", participant.ID),
		zap.String("url", registration.URL))
	return nil
}

// ListFiles returns the published files recorded for a participant
func (s *PublicationService) ListFiles(ctx context.Context, participantID uint) ([]model.UploadedFile, error) {
	participant, err := s.store.ParticipantByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, &NotFoundError{Entity: "participant", ID: participantID}
		}
		return nil, err
	}
	return participant.UploadedFiles, nil
}

// DownloadFile fetches a published file's bytes. The file must be recorded
// on the participant; foreign file ids are rejected as not found.
func (s *PublicationService) DownloadFile(ctx context.Context, participantID uint, fileID string) ([]byte, *model.UploadedFile, error) {
	participant, err := s.store.ParticipantByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil, &NotFoundError{Entity: "participant", ID: participantID}
		}
		return nil, nil, err
	}

	var record *model.UploadedFile
	for i := range participant.UploadedFiles {
		if participant.UploadedFiles[i].FileID == fileID {
			record = &participant.UploadedFiles[i]
			break
		}
	}
	if record == nil {
		return nil, nil, &NotFoundError{Entity: "uploaded file", ID: fileID}
	}

	data, err := s.dataPlane.Download(ctx, participant.ClientCredentials, fileID)
	if err != nil {
		return nil, nil, wrapGatewayError("file download", err)
	}
	return data, record, nil
}

// RequestContract starts a contract negotiation on behalf of a participant
func (s *PublicationService) RequestContract(ctx context.Context, participantID uint, request management.ContractRequest) (*management.IDResponse, error) {
	participant, err := s.store.ParticipantByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, &NotFoundError{Entity: "participant", ID: participantID}
		}
		return nil, err
	}

	response, err := s.controlPlane.RequestContractNegotiation(ctx, participant.ClientCredentials, participant.ParticipantContextID, request)
	if err != nil {
		return nil, wrapGatewayError("contract negotiation request", err)
	}
	return response, nil
}

// GetNegotiation fetches the current state of a contract negotiation
func (s *PublicationService) GetNegotiation(ctx context.Context, participantID uint, negotiationID string) (*management.Negotiation, error) {
	participant, err := s.store.ParticipantByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, &NotFoundError{Entity: "participant", ID: participantID}
		}
		return nil, err
	}

	negotiation, err := s.controlPlane.GetContractNegotiation(ctx, participant.ClientCredentials, participant.ParticipantContextID, negotiationID)
	if err != nil {
		return nil, wrapGatewayError("contract negotiation lookup", err)
	}
	return negotiation, nil
}
