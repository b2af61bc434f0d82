package domain

import "time"

// Status is the lifecycle state of an access request. The state store is
// the only durable owner of status; every transition is recorded in the
// audit log.
type Status string

// Request lifecycle statuses.
const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Principal types accepted by the execution adapters.
const (
	PrincipalTypeUser = "User"
	PrincipalTypeRole = "Role"
)

// Requested actions.
const (
	ActionGrant  = "grant"
	ActionRevoke = "revoke"
)

// Permission reference types. Managed permissions resolve against the
// platform's built-in policy namespace, customer permissions against the
// target account's own.
const (
	PermissionTypeManaged  = "managed"
	PermissionTypeCustomer = "customer"
)

// AccessRequest is the unit of work: one requested grant or revoke of a
// permission for a principal on a target platform. All fields except
// Status and UpdatedAt are immutable after creation.
type AccessRequest struct {
	CorrelationID   string
	ClientRequestID string
	AccountID       string
	TargetPlatform  string
	PrincipalType   string
	PrincipalName   string
	Action          string
	PermissionRef   string
	PermissionType  string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks that a request submitted for processing is well-formed.
// Request-schema validation beyond this happens at the HTTP boundary.
func (r *AccessRequest) Validate() error {
	if r.ClientRequestID == "" {
		return ErrValidation("client_request_id is required")
	}
	if r.AccountID == "" {
		return ErrValidation("account_id is required")
	}
	if r.TargetPlatform == "" {
		return ErrValidation("target_platform is required")
	}
	if r.PrincipalName == "" {
		return ErrValidation("principal_name is required")
	}
	if r.PrincipalType != PrincipalTypeUser && r.PrincipalType != PrincipalTypeRole {
		return ErrValidation("principal_type must be %q or %q", PrincipalTypeUser, PrincipalTypeRole)
	}
	if r.Action != ActionGrant && r.Action != ActionRevoke {
		return ErrValidation("action must be %q or %q", ActionGrant, ActionRevoke)
	}
	if r.PermissionRef == "" {
		return ErrValidation("permission_ref is required")
	}
	switch r.PermissionType {
	case "", PermissionTypeManaged, PermissionTypeCustomer:
	default:
		return ErrValidation("permission_type must be %q or %q", PermissionTypeManaged, PermissionTypeCustomer)
	}
	return nil
}

// StatusRecord is the read-model served by the status reader and cached
// with a TTL. It carries only what a polling client needs.
type StatusRecord struct {
	CorrelationID string    `json:"correlation_id"`
	Status        Status    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AuditLogEntry records one status transition of a request. Entries are
// append-only: the entries for a request, in id order, reconstruct its
// full status history.
type AuditLogEntry struct {
	ID            int64
	CorrelationID string
	PriorStatus   *Status // nil for the creation entry
	NewStatus     Status
	Detail        string
	CreatedAt     time.Time
}

// ExternalReference stores the target platform's own identifier for an
// executed action. Written only when a request finalizes to SUCCESS.
type ExternalReference struct {
	ID            int64
	CorrelationID string
	Platform      string
	ReferenceID   string
	CreatedAt     time.Time
}
