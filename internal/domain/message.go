package domain

import "encoding/json"

// JobMessage is the transient queue payload referencing an AccessRequest.
// It is a flat, versionless JSON document; decoders must tolerate unknown
// extra fields. It exists only between enqueue and the consumer's claim —
// the state store stays authoritative for everything in it.
type JobMessage struct {
	CorrelationID  string `json:"correlation_id"`
	TargetPlatform string `json:"target_platform"`
	PrincipalType  string `json:"principal_type"`
	PrincipalName  string `json:"principal_name"`
	Action         string `json:"action"`
	PermissionRef  string `json:"permission_ref"`
	PermissionType string `json:"permission_type"`
	AccountID      string `json:"account_id"`
	// Attempt counts transient-failure redeliveries of this request so the
	// consumer can stop retrying after a bounded budget.
	Attempt int `json:"attempt,omitempty"`
}

// NewJobMessage builds the queue payload for a request.
func NewJobMessage(r *AccessRequest) *JobMessage {
	return &JobMessage{
		CorrelationID:  r.CorrelationID,
		TargetPlatform: r.TargetPlatform,
		PrincipalType:  r.PrincipalType,
		PrincipalName:  r.PrincipalName,
		Action:         r.Action,
		PermissionRef:  r.PermissionRef,
		PermissionType: r.PermissionType,
		AccountID:      r.AccountID,
	}
}

// Encode serializes the message for queue transport.
func (m *JobMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeJobMessage parses a queue payload. A payload without a correlation
// id is malformed — there is nothing to claim in the state store.
func DecodeJobMessage(payload []byte) (*JobMessage, error) {
	var m JobMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, ErrValidation("malformed job payload: %v", err)
	}
	if m.CorrelationID == "" {
		return nil, ErrValidation("job payload is missing correlation_id")
	}
	return &m, nil
}
