// model/appcontext.go
package model

// AppContext carries the resolved caller identity for one request. The
// authentication layer populates it; the core treats every field as an
// opaque string for SoD and delegation comparisons.
type AppContext struct {
	TenantID      string   `json:"tenantId"`
	WorkspaceID   string   `json:"workspaceId"`
	PrincipalID   string   `json:"principalId"`
	Roles         []string `json:"roles,omitempty"`
	CorrelationID string   `json:"correlationId,omitempty"`
}
