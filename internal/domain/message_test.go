package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJobMessage(t *testing.T) {
	msg, err := DecodeJobMessage([]byte(`{
		"correlation_id": "corr-1",
		"target_platform": "aws",
		"principal_type": "User",
		"principal_name": "alice",
		"action": "grant",
		"permission_ref": "ReadOnlyAccess",
		"account_id": "123456789012",
		"attempt": 2
	}`))
	require.NoError(t, err)
	assert.Equal(t, "corr-1", msg.CorrelationID)
	assert.Equal(t, 2, msg.Attempt)
}

// Decoders must tolerate extra fields from newer producers.
func TestDecodeJobMessage_UnknownFieldsTolerated(t *testing.T) {
	msg, err := DecodeJobMessage([]byte(`{"correlation_id": "corr-1", "some_future_field": true}`))
	require.NoError(t, err)
	assert.Equal(t, "corr-1", msg.CorrelationID)
}

func TestDecodeJobMessage_Malformed(t *testing.T) {
	_, err := DecodeJobMessage([]byte(`{not json`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestDecodeJobMessage_MissingCorrelationID(t *testing.T) {
	_, err := DecodeJobMessage([]byte(`{"target_platform": "aws"}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestNewJobMessage(t *testing.T) {
	req := &AccessRequest{
		CorrelationID:  "corr-1",
		AccountID:      "123456789012",
		TargetPlatform: "aws",
		PrincipalType:  PrincipalTypeRole,
		PrincipalName:  "deploy-role",
		Action:         ActionRevoke,
		PermissionRef:  "TeamAccess",
		PermissionType: PermissionTypeCustomer,
	}

	msg := NewJobMessage(req)
	assert.Equal(t, "corr-1", msg.CorrelationID)
	assert.Equal(t, ActionRevoke, msg.Action)
	assert.Equal(t, 0, msg.Attempt)

	payload, err := msg.Encode()
	require.NoError(t, err)
	decoded, err := DecodeJobMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestAccessRequest_Validate(t *testing.T) {
	valid := func() *AccessRequest {
		return &AccessRequest{
			ClientRequestID: "req-1",
			AccountID:       "123456789012",
			TargetPlatform:  "aws",
			PrincipalType:   PrincipalTypeUser,
			PrincipalName:   "alice",
			Action:          ActionGrant,
			PermissionRef:   "ReadOnlyAccess",
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(r *AccessRequest)
	}{
		{"missing client request id", func(r *AccessRequest) { r.ClientRequestID = "" }},
		{"missing account", func(r *AccessRequest) { r.AccountID = "" }},
		{"missing platform", func(r *AccessRequest) { r.TargetPlatform = "" }},
		{"missing principal", func(r *AccessRequest) { r.PrincipalName = "" }},
		{"bad principal type", func(r *AccessRequest) { r.PrincipalType = "Group" }},
		{"bad action", func(r *AccessRequest) { r.Action = "escalate" }},
		{"missing permission", func(r *AccessRequest) { r.PermissionRef = "" }},
		{"bad permission type", func(r *AccessRequest) { r.PermissionType = "inline" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			var verr *ValidationError
			require.ErrorAs(t, r.Validate(), &verr)
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInProgress.Terminal())
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestActor_CanAccess(t *testing.T) {
	assert.True(t, Actor{Name: "worker", Platform: "aws"}.CanAccess("aws"))
	assert.False(t, Actor{Name: "worker", Platform: "aws"}.CanAccess("gcp"))
	assert.True(t, Actor{Name: "ops", Platform: PlatformWildcard}.CanAccess("gcp"))
}
