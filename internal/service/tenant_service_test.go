package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Metaform/redline/internal/client/tenantmanager"
	"github.com/Metaform/redline/internal/model"
	"github.com/Metaform/redline/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore is an in-memory EntityStore for service tests
type fakeStore struct {
	mu           sync.Mutex
	providers    map[uint]*model.ServiceProvider
	dataspaces   map[uint]*model.Dataspace
	tenants      map[uint]*model.Tenant
	participants map[uint]*model.Participant
	nextID       uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		providers:    map[uint]*model.ServiceProvider{},
		dataspaces:   map[uint]*model.Dataspace{},
		tenants:      map[uint]*model.Tenant{},
		participants: map[uint]*model.Participant{},
	}
}

func (f *fakeStore) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addProvider(name string) *model.ServiceProvider {
	provider := &model.ServiceProvider{ID: f.id(), Name: name}
	f.providers[provider.ID] = provider
	return provider
}

func (f *fakeStore) addDataspace(name string) *model.Dataspace {
	dataspace := &model.Dataspace{ID: f.id(), Name: name}
	f.dataspaces[dataspace.ID] = dataspace
	return dataspace
}

func (f *fakeStore) addTenant(providerID uint, name string) *model.Tenant {
	tenant := &model.Tenant{ID: f.id(), Name: name, ServiceProviderID: providerID}
	f.tenants[tenant.ID] = tenant
	return tenant
}

func (f *fakeStore) addParticipant(tenant *model.Tenant, identifier string) *model.Participant {
	participant := &model.Participant{ID: f.id(), Identifier: identifier, TenantID: tenant.ID, Tenant: tenant}
	f.participants[participant.ID] = participant
	return participant
}

func (f *fakeStore) ServiceProviderByID(ctx context.Context, id uint) (*model.ServiceProvider, error) {
	if provider, ok := f.providers[id]; ok {
		return provider, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) CreateServiceProvider(ctx context.Context, provider *model.ServiceProvider) error {
	provider.ID = f.id()
	f.providers[provider.ID] = provider
	return nil
}

func (f *fakeStore) ListServiceProviders(ctx context.Context) ([]model.ServiceProvider, error) {
	var providers []model.ServiceProvider
	for _, provider := range f.providers {
		providers = append(providers, *provider)
	}
	return providers, nil
}

func (f *fakeStore) DataspaceByID(ctx context.Context, id uint) (*model.Dataspace, error) {
	if dataspace, ok := f.dataspaces[id]; ok {
		return dataspace, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) CreateDataspace(ctx context.Context, dataspace *model.Dataspace) error {
	dataspace.ID = f.id()
	f.dataspaces[dataspace.ID] = dataspace
	return nil
}

func (f *fakeStore) ListDataspaces(ctx context.Context) ([]model.Dataspace, error) {
	var dataspaces []model.Dataspace
	for _, dataspace := range f.dataspaces {
		dataspaces = append(dataspaces, *dataspace)
	}
	return dataspaces, nil
}

func (f *fakeStore) TenantByID(ctx context.Context, id uint) (*model.Tenant, error) {
	if tenant, ok := f.tenants[id]; ok {
		return tenant, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	tenant.ID = f.id()
	for i := range tenant.Participants {
		tenant.Participants[i].ID = f.id()
		tenant.Participants[i].TenantID = tenant.ID
		f.participants[tenant.Participants[i].ID] = &tenant.Participants[i]
	}
	f.tenants[tenant.ID] = tenant
	return nil
}

func (f *fakeStore) SaveTenant(ctx context.Context, tenant *model.Tenant) error {
	f.tenants[tenant.ID] = tenant
	return nil
}

func (f *fakeStore) ClaimTenantCorrelationID(ctx context.Context, tenantID uint, correlationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tenant, ok := f.tenants[tenantID]
	if !ok {
		return false, model.ErrNotFound
	}
	if tenant.CorrelationID != nil {
		return false, nil
	}
	tenant.CorrelationID = &correlationID
	return true, nil
}

func (f *fakeStore) ParticipantByID(ctx context.Context, id uint) (*model.Participant, error) {
	if participant, ok := f.participants[id]; ok {
		return participant, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) ParticipantByContextID(ctx context.Context, participantContextID string) (*model.Participant, error) {
	for _, participant := range f.participants {
		if participant.ParticipantContextID == participantContextID {
			return participant, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) SaveParticipant(ctx context.Context, participant *model.Participant) error {
	f.participants[participant.ID] = participant
	return nil
}

func (f *fakeStore) ReplaceAgents(ctx context.Context, participant *model.Participant, agents []model.VirtualParticipantAgent) error {
	for i := range agents {
		agents[i].ID = f.id()
		agents[i].ParticipantID = participant.ID
	}
	participant.Agents = agents
	return nil
}

func (f *fakeStore) AddUploadedFile(ctx context.Context, participantID uint, file *model.UploadedFile) error {
	participant, ok := f.participants[participantID]
	if !ok {
		return model.ErrNotFound
	}
	file.ID = f.id()
	file.ParticipantID = participantID
	participant.UploadedFiles = append(participant.UploadedFiles, *file)
	return nil
}

// fleetManagerStub serves the tenant manager API and counts requests per path
type fleetManagerStub struct {
	server        *httptest.Server
	tenantCreates int
	profileCreate int
	profileBody   string
}

func newFleetManagerStub(t *testing.T, profileBody string) *fleetManagerStub {
	stub := &fleetManagerStub{profileBody: profileBody}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1alpha1/tenants":
			stub.tenantCreates++
			w.Write([]byte(`{"id":"T1","version":0,"properties":{}}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/participant-profiles"):
			stub.profileCreate++
			w.Write([]byte(stub.profileBody))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return stub
}

func (s *fleetManagerStub) client() *tenantmanager.Client {
	return tenantmanager.New(&config.TenantManagerConfig{URL: s.server.URL}, zap.NewNop())
}

const threeVPAProfile = `{
	"id": "P1",
	"version": 0,
	"identifier": "did:web:acme",
	"tenantId": "T1",
	"error": false,
	"vpas": [
		{"id": "v1", "version": 0, "state": "pending", "type": "cfm.connector", "cellId": "c1"},
		{"id": "v2", "version": 0, "state": "pending", "type": "cfm.credentialservice", "cellId": "c1"},
		{"id": "v3", "version": 0, "state": "pending", "type": "cfm.dataplane", "cellId": "c1"}
	]
}`

func TestRegisterTenantIsPurelyLocal(t *testing.T) {
	store := newFakeStore()
	provider := store.addProvider("acme-provider")
	dataspace := store.addDataspace("mobility")

	stub := newFleetManagerStub(t, threeVPAProfile)
	defer stub.server.Close()
	svc := NewTenantService(store, stub.client(), zap.NewNop())

	tenant, err := svc.RegisterTenant(context.Background(), provider.ID, NewTenantRegistration{
		TenantName: "acme",
		Dataspaces: []uint{dataspace.ID},
	})

	require.NoError(t, err)
	require.Len(t, tenant.Participants, 1)
	assert.Equal(t, "acme", tenant.Participants[0].Identifier)
	require.Len(t, tenant.Participants[0].Dataspaces, 1)
	assert.Equal(t, dataspace.ID, tenant.Participants[0].Dataspaces[0].ID)
	assert.Nil(t, tenant.CorrelationID)

	// Registration never contacts the fleet manager
	assert.Equal(t, 0, stub.tenantCreates)
	assert.Equal(t, 0, stub.profileCreate)

	// An omitted property bag still encodes as a JSON object for the
	// jsonb column
	assert.Equal(t, "{}", tenant.Properties)
}

func TestRegisterTenantRejectsUnknownDataspace(t *testing.T) {
	store := newFakeStore()
	provider := store.addProvider("acme-provider")

	stub := newFleetManagerStub(t, threeVPAProfile)
	defer stub.server.Close()
	svc := NewTenantService(store, stub.client(), zap.NewNop())

	_, err := svc.RegisterTenant(context.Background(), provider.ID, NewTenantRegistration{
		TenantName: "acme",
		Dataspaces: []uint{999},
	})

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "dataspace", notFound.Entity)
}

func TestRegisterTenantRejectsUnknownProvider(t *testing.T) {
	store := newFakeStore()
	stub := newFleetManagerStub(t, threeVPAProfile)
	defer stub.server.Close()
	svc := NewTenantService(store, stub.client(), zap.NewNop())

	_, err := svc.RegisterTenant(context.Background(), 42, NewTenantRegistration{TenantName: "acme"})

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "service provider", notFound.Entity)
}

func TestDeployParticipantCreatesTenantThenProfile(t *testing.T) {
	store := newFakeStore()
	provider := store.addProvider("acme-provider")
	tenant := store.addTenant(provider.ID, "acme")
	participant := store.addParticipant(tenant, "acme")

	stub := newFleetManagerStub(t, threeVPAProfile)
	defer stub.server.Close()
	svc := NewTenantService(store, stub.client(), zap.NewNop())

	resource, err := svc.DeployParticipant(context.Background(), NewParticipantDeployment{
		ParticipantID: participant.ID,
		WebDID:        "did:web:acme",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, stub.tenantCreates)
	assert.Equal(t, 1, stub.profileCreate)

	require.NotNil(t, tenant.CorrelationID)
	assert.Equal(t, "T1", *tenant.CorrelationID)
	require.NotNil(t, participant.CorrelationID)
	assert.Equal(t, "P1", *participant.CorrelationID)

	// Identifier tracks the fleet manager's response
	assert.Equal(t, "did:web:acme", resource.Identifier)

	require.Len(t, resource.VPAs, 3)
	types := map[model.VPAType]model.DeploymentState{}
	for _, vpa := range resource.VPAs {
		types[vpa.Type] = vpa.State
	}
	assert.Equal(t, model.DeploymentStatePending, types[model.VPATypeControlPlane])
	assert.Equal(t, model.DeploymentStatePending, types[model.VPATypeCredentialService])
	assert.Equal(t, model.DeploymentStatePending, types[model.VPATypeDataPlane])
}

func TestDeployParticipantSkipsTenantCreationWhenCorrelated(t *testing.T) {
	store := newFakeStore()
	provider := store.addProvider("acme-provider")
	tenant := store.addTenant(provider.ID, "acme")
	correlationID := "T1"
	tenant.CorrelationID = &correlationID
	participant := store.addParticipant(tenant, "acme")

	stub := newFleetManagerStub(t, threeVPAProfile)
	defer stub.server.Close()
	svc := NewTenantService(store, stub.client(), zap.NewNop())

	_, err := svc.DeployParticipant(context.Background(), NewParticipantDeployment{
		ParticipantID: participant.ID,
		WebDID:        "did:web:acme",
	})

	require.NoError(t, err)
	assert.Equal(t, 0, stub.tenantCreates)
	assert.Equal(t, 1, stub.profileCreate)
}

func TestDeployParticipantResyncReplacesAgents(t *testing.T) {
	store := newFakeStore()
	provider := store.addProvider("acme-provider")
	tenant := store.addTenant(provider.ID, "acme")
	participant := store.addParticipant(tenant, "acme")

	stub := newFleetManagerStub(t, threeVPAProfile)
	defer stub.server.Close()
	svc := NewTenantService(store, stub.client(), zap.NewNop())

	_, err := svc.DeployParticipant(context.Background(), NewParticipantDeployment{ParticipantID: participant.ID, WebDID: "did:web:acme"})
	require.NoError(t, err)
	firstCorrelation := *participant.CorrelationID

	// Second deploy still issues the profile call and replaces the VPA set
	stub.profileBody = `{
		"id": "P2",
		"version": 1,
		"identifier": "did:web:acme",
		"tenantId": "T1",
		"error": false,
		"vpas": [{"id": "v9", "version": 0, "state": "active", "type": "cfm.connector", "cellId": "c1"}]
	}`
	resource, err := svc.DeployParticipant(context.Background(), NewParticipantDeployment{ParticipantID: participant.ID, WebDID: "did:web:acme"})
	require.NoError(t, err)

	assert.Equal(t, 1, stub.tenantCreates)
	assert.Equal(t, 2, stub.profileCreate)

	// Correlation id is first-write-wins
	assert.Equal(t, firstCorrelation, *participant.CorrelationID)

	require.Len(t, resource.VPAs, 1)
	assert.Equal(t, model.DeploymentStateActive, resource.VPAs[0].State)
}

func TestDeployParticipantRejectsUnknownVPAType(t *testing.T) {
	store := newFakeStore()
	provider := store.addProvider("acme-provider")
	tenant := store.addTenant(provider.ID, "acme")
	participant := store.addParticipant(tenant, "acme")

	stub := newFleetManagerStub(t, `{
		"id": "P1", "version": 0, "identifier": "did:web:acme", "tenantId": "T1", "error": false,
		"vpas": [{"id": "v1", "version": 0, "state": "pending", "type": "cfm.unknown", "cellId": "c1"}]
	}`)
	defer stub.server.Close()
	svc := NewTenantService(store, stub.client(), zap.NewNop())

	_, err := svc.DeployParticipant(context.Background(), NewParticipantDeployment{ParticipantID: participant.ID, WebDID: "did:web:acme"})

	var mappingErr *model.MappingError
	require.ErrorAs(t, err, &mappingErr)
	assert.Equal(t, "cfm.unknown", mappingErr.Value)
}

func TestDeployParticipantNotFound(t *testing.T) {
	store := newFakeStore()
	stub := newFleetManagerStub(t, threeVPAProfile)
	defer stub.server.Close()
	svc := NewTenantService(store, stub.client(), zap.NewNop())

	_, err := svc.DeployParticipant(context.Background(), NewParticipantDeployment{ParticipantID: 404})

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 0, stub.tenantCreates)
}

func TestGetTenantAggregatesParticipants(t *testing.T) {
	store := newFakeStore()
	provider := store.addProvider("acme-provider")
	tenant := store.addTenant(provider.ID, "acme")
	participant := store.addParticipant(tenant, "acme")
	tenant.Participants = []model.Participant{*participant}

	stub := newFleetManagerStub(t, threeVPAProfile)
	defer stub.server.Close()
	svc := NewTenantService(store, stub.client(), zap.NewNop())

	resource, err := svc.GetTenant(context.Background(), tenant.ID)

	require.NoError(t, err)
	assert.Equal(t, "acme", resource.Name)
	require.Len(t, resource.Participants, 1)
	assert.Equal(t, "acme", resource.Participants[0].Identifier)
}
