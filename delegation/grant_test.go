package delegation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clearance_errors "github.com/clearops/clearance/errors"
	"github.com/clearops/clearance/delegation"
	"github.com/clearops/clearance/model"
)

func validInput() delegation.GrantInput {
	return delegation.GrantInput{
		GrantID:         "grant-1",
		DelegatorUserID: "alice",
		DelegateUserID:  "bob",
		Reason:          "on call rotation",
		StartsAtIso:     "2026-02-01T00:00:00Z",
		ExpiresAtIso:    "2026-02-08T00:00:00Z",
	}
}

func assertValidationError(t *testing.T, err error, field string) {
	t.Helper()
	var validationErr *clearance_errors.DelegationValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, field, validationErr.Field)
}

func TestCreateGrant(t *testing.T) {
	t.Run("CreateGrant_ValidInput", func(t *testing.T) {
		grant, err := delegation.CreateGrant(validInput())
		require.NoError(t, err)

		assert.Equal(t, "grant-1", grant.GrantID)
		assert.Equal(t, "alice", grant.DelegatorUserID)
		assert.Equal(t, "bob", grant.DelegateUserID)
		assert.Nil(t, grant.Revocation)
	})

	t.Run("CreateGrant_EmptyGrantID", func(t *testing.T) {
		input := validInput()
		input.GrantID = ""

		_, err := delegation.CreateGrant(input)
		assertValidationError(t, err, "grantId")
	})

	t.Run("CreateGrant_EmptyDelegate", func(t *testing.T) {
		input := validInput()
		input.DelegateUserID = ""

		_, err := delegation.CreateGrant(input)
		assertValidationError(t, err, "delegatorUserId")
	})

	t.Run("CreateGrant_SelfDelegationForbidden", func(t *testing.T) {
		input := validInput()
		input.DelegateUserID = "alice"

		_, err := delegation.CreateGrant(input)
		assertValidationError(t, err, "delegateUserId")
	})

	t.Run("CreateGrant_EmptyReason", func(t *testing.T) {
		input := validInput()
		input.Reason = ""

		_, err := delegation.CreateGrant(input)
		assertValidationError(t, err, "reason")
	})

	t.Run("CreateGrant_MalformedStart", func(t *testing.T) {
		input := validInput()
		input.StartsAtIso = "yesterday"

		_, err := delegation.CreateGrant(input)
		assertValidationError(t, err, "startsAtIso")
	})

	t.Run("CreateGrant_NonIncreasingWindow", func(t *testing.T) {
		input := validInput()
		input.ExpiresAtIso = input.StartsAtIso

		_, err := delegation.CreateGrant(input)
		assertValidationError(t, err, "expiresAtIso")
	})
}

func TestRevokeGrant(t *testing.T) {
	t.Run("RevokeGrant_RecordsRevocation", func(t *testing.T) {
		grant, err := delegation.CreateGrant(validInput())
		require.NoError(t, err)

		revoked, err := delegation.RevokeGrant(grant, "carol", "2026-02-03T09:00:00Z", "policy change")
		require.NoError(t, err)

		require.NotNil(t, revoked.Revocation)
		assert.Equal(t, "carol", revoked.Revocation.RevokedByUserID)
		assert.Equal(t, "2026-02-03T09:00:00Z", revoked.Revocation.RevokedAtIso)
		assert.Nil(t, grant.Revocation, "original grant value must stay untouched")
	})

	t.Run("RevokeGrant_SecondRevocationRejected", func(t *testing.T) {
		grant, err := delegation.CreateGrant(validInput())
		require.NoError(t, err)
		revoked, err := delegation.RevokeGrant(grant, "carol", "2026-02-03T09:00:00Z", "policy change")
		require.NoError(t, err)

		_, err = delegation.RevokeGrant(revoked, "dave", "2026-02-04T09:00:00Z", "again")
		assertValidationError(t, err, "revocation")
	})

	t.Run("RevokeGrant_MalformedTimestampRejected", func(t *testing.T) {
		grant, err := delegation.CreateGrant(validInput())
		require.NoError(t, err)

		_, err = delegation.RevokeGrant(grant, "carol", "soon", "policy change")
		assertValidationError(t, err, "revokedAtIso")
	})
}

func TestGetStatus(t *testing.T) {
	grant, err := delegation.CreateGrant(validInput())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("GetStatus_BeforeWindowExpired", func(t *testing.T) {
		status, err := delegation.GetStatus(grant, "2026-01-31T23:59:59Z")
		require.NoError(t, err)
		assert.Equal(t, model.DelegationExpired, status)
	})

	t.Run("GetStatus_ActiveAtExactStart", func(t *testing.T) {
		status, err := delegation.GetStatus(grant, "2026-02-01T00:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, model.DelegationActive, status)
	})

	t.Run("GetStatus_ExpiredAtExactExpiry", func(t *testing.T) {
		status, err := delegation.GetStatus(grant, "2026-02-08T00:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, model.DelegationExpired, status)
	})

	t.Run("GetStatus_RevocationWinsInsideWindow", func(t *testing.T) {
		revoked, err := delegation.RevokeGrant(grant, "carol", "2026-02-02T00:00:00Z", "policy change")
		require.NoError(t, err)

		status, err := delegation.GetStatus(revoked, "2026-02-03T00:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, model.DelegationRevoked, status)
	})

	t.Run("GetStatus_RevocationWinsOutsideWindow", func(t *testing.T) {
		revoked, err := delegation.RevokeGrant(grant, "carol", "2026-02-02T00:00:00Z", "policy change")
		require.NoError(t, err)

		status, err := delegation.GetStatus(revoked, "2026-03-01T00:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, model.DelegationRevoked, status)
	})

	t.Run("GetStatus_MalformedTimeRejected", func(t *testing.T) {
		_, err := delegation.GetStatus(grant, "now")
		assertValidationError(t, err, "atIso")
	})
}

func TestIsApplicable(t *testing.T) {
	scoped := func(scope model.DelegationScope) model.DelegationGrantV1 {
		input := validInput()
		input.Scope = scope
		grant, err := delegation.CreateGrant(input)
		if err != nil {
			t.Fatal(err)
		}
		return grant
	}

	t.Run("IsApplicable_EmptyScopeCoversEverything", func(t *testing.T) {
		grant := scoped(model.DelegationScope{})
		assert.True(t, delegation.IsApplicable(grant, model.DelegationScopeContext{
			WorkspaceID: "ws-1", RiskLevel: model.RiskCritical, SubjectKind: "deployment",
		}))
	})

	t.Run("IsApplicable_WorkspaceMismatch", func(t *testing.T) {
		grant := scoped(model.DelegationScope{WorkspaceID: "ws-1"})
		assert.False(t, delegation.IsApplicable(grant, model.DelegationScopeContext{WorkspaceID: "ws-2"}))
		assert.True(t, delegation.IsApplicable(grant, model.DelegationScopeContext{WorkspaceID: "ws-1"}))
	})

	t.Run("IsApplicable_AbsentDimensionNeverConstrains", func(t *testing.T) {
		grant := scoped(model.DelegationScope{WorkspaceID: "ws-1", MaxRiskLevel: model.RiskLow})
		assert.True(t, delegation.IsApplicable(grant, model.DelegationScopeContext{}))
	})

	t.Run("IsApplicable_RiskAboveCeiling", func(t *testing.T) {
		grant := scoped(model.DelegationScope{MaxRiskLevel: model.RiskMedium})
		assert.True(t, delegation.IsApplicable(grant, model.DelegationScopeContext{RiskLevel: model.RiskMedium}))
		assert.False(t, delegation.IsApplicable(grant, model.DelegationScopeContext{RiskLevel: model.RiskHigh}))
	})

	t.Run("IsApplicable_SubjectKindMembership", func(t *testing.T) {
		grant := scoped(model.DelegationScope{SubjectKinds: []string{"deployment", "config"}})
		assert.True(t, delegation.IsApplicable(grant, model.DelegationScopeContext{SubjectKind: "config"}))
		assert.False(t, delegation.IsApplicable(grant, model.DelegationScopeContext{SubjectKind: "database"}))
	})
}
