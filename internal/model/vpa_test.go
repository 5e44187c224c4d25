package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVPATypeFromExternal(t *testing.T) {
	tests := []struct {
		tag  string
		want VPAType
	}{
		{"cfm.connector", VPATypeControlPlane},
		{"cfm.credentialservice", VPATypeCredentialService},
		{"cfm.dataplane", VPATypeDataPlane},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := VPATypeFromExternal(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVPATypeFromExternalRejectsUnknownTag(t *testing.T) {
	_, err := VPATypeFromExternal("cfm.unknown")

	var mappingErr *MappingError
	require.ErrorAs(t, err, &mappingErr)
	assert.Equal(t, "cfm.unknown", mappingErr.Value)
}

func TestDeploymentStateFromExternalIsCaseInsensitive(t *testing.T) {
	tests := []struct {
		state string
		want  DeploymentState
	}{
		{"pending", DeploymentStatePending},
		{"PENDING", DeploymentStatePending},
		{"Active", DeploymentStateActive},
		{"error", DeploymentStateError},
		{"disposing", DeploymentStateDisposing},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			got, err := DeploymentStateFromExternal(tt.state)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeploymentStateFromExternalRejectsUnknownState(t *testing.T) {
	_, err := DeploymentStateFromExternal("exploded")

	var mappingErr *MappingError
	require.ErrorAs(t, err, &mappingErr)
}

func TestTenantPropertyMapAlwaysCarriesName(t *testing.T) {
	tenant := &Tenant{Name: "acme", Properties: `{"region":"eu"}`}

	properties := tenant.PropertyMap()

	assert.Equal(t, "acme", properties["name"])
	assert.Equal(t, "eu", properties["region"])
}

func TestTenantPropertyMapDegradesOnCorruptBag(t *testing.T) {
	tenant := &Tenant{Name: "acme", Properties: "{broken"}

	properties := tenant.PropertyMap()

	assert.Equal(t, map[string]string{"name": "acme"}, properties)
}
