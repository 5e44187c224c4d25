package service

import "github.com/Metaform/redline/internal/client/management"

const (
	// AssetPermission tags every published asset so that the single shared
	// membership contract definition governs all of them.
	AssetPermission = "membership_asset"

	// MembershipPolicyID is the deterministic id of the shared membership
	// policy. Creating it again yields a conflict, which callers treat as
	// success.
	MembershipPolicyID = "membership_policy"

	// MembershipContractDefinitionID is the deterministic id of the shared
	// contract definition selecting all membership assets.
	MembershipContractDefinitionID = "membership_contract_definition"

	// MembershipCelExpressionID is the deterministic id of the global CEL
	// authorization expression. Recreation has no conflict tolerance.
	MembershipCelExpressionID = "membership_cel"

	// PermissionProperty is the private property key asset selectors match on
	PermissionProperty = "privateProperties.'https://w3id.org/edc/v0.0.1/ns/permission'"

	// PermissionPropertyKey is the private property key written onto assets
	PermissionPropertyKey = "https://w3id.org/edc/v0.0.1/ns/permission"
)

// MembershipPolicy is the shared policy every uploaded file falls under.
// The MembershipCredential must be presented to view the asset.
var MembershipPolicy = management.NewPolicyDefinition{
	ID: MembershipPolicyID,
	Policy: management.PolicySet{
		Permissions: []management.Permission{
			{
				Action: "use",
				Constraints: []management.Constraint{
					{LeftOperand: "MembershipCredential", Operator: "eq", RightOperand: "active"},
				},
			},
		},
	},
}

// MembershipContractDefinition selects exactly the assets carrying the
// membership permission private property.
var MembershipContractDefinition = management.NewContractDefinition{
	ID:               MembershipContractDefinitionID,
	AccessPolicyID:   MembershipPolicyID,
	ContractPolicyID: MembershipPolicyID,
	AssetsSelector: []management.Criterion{
		{OperandLeft: PermissionProperty, Operator: "=", OperandRight: AssetPermission},
	},
}

// MembershipCelExpression authorizes catalog and transfer requests for
// holders of an active membership credential.
var MembershipCelExpression = management.NewCelExpression{
	ID:          MembershipCelExpressionID,
	Expression:  "credential.type == 'MembershipCredential' && credential.status == 'active'",
	LeftOperand: "MembershipCredential",
	Description: "Grants access to membership assets",
	Scopes:      []string{"catalog", "transfer"},
}
