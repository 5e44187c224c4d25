package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// VPAType identifies the deployed capability a virtual participant agent
// provides.
type VPAType string

const (
	VPATypeControlPlane      VPAType = "CONTROL_PLANE"
	VPATypeCredentialService VPAType = "CREDENTIAL_SERVICE"
	VPATypeDataPlane         VPAType = "DATA_PLANE"
)

// DeploymentState tracks the lifecycle of a deployed resource. States are
// only ever assigned by translating the external system's state string.
type DeploymentState string

const (
	DeploymentStateInitial   DeploymentState = "INITIAL"
	DeploymentStatePending   DeploymentState = "PENDING"
	DeploymentStateActive    DeploymentState = "ACTIVE"
	DeploymentStateDisposing DeploymentState = "DISPOSING"
	DeploymentStateDisposed  DeploymentState = "DISPOSED"
	DeploymentStateLocked    DeploymentState = "LOCKED"
	DeploymentStateOffline   DeploymentState = "OFFLINE"
	DeploymentStateError     DeploymentState = "ERROR"
)

// vpaTypesByExternalName maps the fleet manager's type tags to the internal
// agent types.
var vpaTypesByExternalName = map[string]VPAType{
	"cfm.connector":         VPATypeControlPlane,
	"cfm.credentialservice": VPATypeCredentialService,
	"cfm.dataplane":         VPATypeDataPlane,
}

var deploymentStates = map[string]DeploymentState{
	"INITIAL":   DeploymentStateInitial,
	"PENDING":   DeploymentStatePending,
	"ACTIVE":    DeploymentStateActive,
	"DISPOSING": DeploymentStateDisposing,
	"DISPOSED":  DeploymentStateDisposed,
	"LOCKED":    DeploymentStateLocked,
	"OFFLINE":   DeploymentStateOffline,
	"ERROR":     DeploymentStateError,
}

// MappingError indicates an external enum/tag value with no local equivalent
type MappingError struct {
	Kind  string
	Value string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("no %s mapping for external value %q", e.Kind, e.Value)
}

// VPATypeFromExternal translates a fleet manager type tag into the internal
// agent type. Unknown tags are rejected, never stored.
func VPATypeFromExternal(tag string) (VPAType, error) {
	vpaType, ok := vpaTypesByExternalName[tag]
	if !ok {
		return "", &MappingError{Kind: "vpa type", Value: tag}
	}
	return vpaType, nil
}

// DeploymentStateFromExternal translates a fleet manager state string by
// case-insensitive name match.
func DeploymentStateFromExternal(state string) (DeploymentState, error) {
	deploymentState, ok := deploymentStates[strings.ToUpper(state)]
	if !ok {
		return "", &MappingError{Kind: "deployment state", Value: state}
	}
	return deploymentState, nil
}

// VirtualParticipantAgent is a deployed capability of a participant. The
// agent set is replaced wholesale whenever the fleet manager returns a fresh
// list; individual agents are never diffed or updated in place.
type VirtualParticipantAgent struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	ParticipantID uint            `json:"participant_id" gorm:"index;not null"`
	Type          VPAType         `json:"type" gorm:"type:varchar(50);not null"`
	State         DeploymentState `json:"state" gorm:"type:varchar(50);not null"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `json:"-" gorm:"index"`
}
