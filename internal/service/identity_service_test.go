package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Metaform/redline/internal/client/identityhub"
	"github.com/Metaform/redline/internal/model"
	"github.com/Metaform/redline/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSecrets struct {
	values map[string]string
}

func (f *fakeSecrets) ReadSecret(ctx context.Context, path string) (string, error) {
	return f.values[path], nil
}

func newIdentityFixture(t *testing.T, handler http.HandlerFunc) (*IdentityService, *model.Participant, *fakeSecrets) {
	store := newFakeStore()
	provider := store.addProvider("acme-provider")
	tenant := store.addTenant(provider.ID, "acme")
	participant := store.addParticipant(tenant, "acme")
	participant.ParticipantContextID = "ctx-1"
	participant.ClientCredentials = model.ClientCredentials{ClientID: "participant-1", ClientSecret: "s3cret"}

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := &staticTokens{}
	ihClient := identityhub.New(&config.IdentityHubConfig{URL: server.URL}, tokens, zap.NewNop())
	secrets := &fakeSecrets{values: map[string]string{}}
	svc := NewIdentityService(store, ihClient, secrets, zap.NewNop())
	return svc, participant, secrets
}

func TestResolveAPITokenReadsSecretByAlias(t *testing.T) {
	svc, participant, secrets := newIdentityFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"ctx-1","participantContextId":"ctx-1","did":"did:web:acme","apiTokenAlias":"ctx-1-token","state":1}`))
	})
	secrets.values["ctx-1-token"] = "super-secret-api-token"

	token, err := svc.ResolveAPIToken(context.Background(), participant.ID)

	require.NoError(t, err)
	assert.Equal(t, "super-secret-api-token", token)
}

func TestResolveAPITokenWithoutAliasIsEmpty(t *testing.T) {
	svc, participant, _ := newIdentityFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"ctx-1","participantContextId":"ctx-1","did":"did:web:acme","state":1}`))
	})

	token, err := svc.ResolveAPIToken(context.Background(), participant.ID)

	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestListCredentialsUnknownParticipant(t *testing.T) {
	svc, _, _ := newIdentityFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := svc.ListCredentials(context.Background(), 404, "")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}
