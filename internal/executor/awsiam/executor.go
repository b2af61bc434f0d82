// Package awsiam executes grant and revoke actions against AWS IAM in the
// target account, entered via STS assume-role.
package awsiam

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/aws/smithy-go/middleware"

	"csecbridge/internal/domain"
)

var _ domain.Executor = (*Executor)(nil)

// ProviderReferenceFallback is recorded when AWS returns no request id.
const ProviderReferenceFallback = "not-defined"

// STSAPI is the subset of the STS client the executor needs.
type STSAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// IAMAPI is the subset of the IAM client the executor needs.
type IAMAPI interface {
	AttachUserPolicy(ctx context.Context, params *iam.AttachUserPolicyInput, optFns ...func(*iam.Options)) (*iam.AttachUserPolicyOutput, error)
	DetachUserPolicy(ctx context.Context, params *iam.DetachUserPolicyInput, optFns ...func(*iam.Options)) (*iam.DetachUserPolicyOutput, error)
	AttachRolePolicy(ctx context.Context, params *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
	DetachRolePolicy(ctx context.Context, params *iam.DetachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error)
}

// Config tunes how the executor enters target accounts.
type Config struct {
	// Region is used for the per-account IAM clients.
	Region string
	// HandlerRoleName is the role assumed inside each target account.
	HandlerRoleName string
	// SessionName labels assume-role sessions in the target account's
	// CloudTrail.
	SessionName string
}

// Executor attaches or detaches managed policies for users and roles. Each
// job assumes the handler role in the job's target account, so one executor
// serves any number of accounts.
type Executor struct {
	stsClient STSAPI
	cfg       Config

	// newIAMClient is swapped out in tests.
	newIAMClient func(creds aws.CredentialsProvider) IAMAPI
}

func New(stsClient STSAPI, cfg Config) *Executor {
	e := &Executor{stsClient: stsClient, cfg: cfg}
	e.newIAMClient = func(creds aws.CredentialsProvider) IAMAPI {
		return iam.New(iam.Options{
			Region:      cfg.Region,
			Credentials: creds,
		})
	}
	return e
}

// Execute performs the job's grant or revoke in the target account. IAM
// attach and detach are idempotent on the AWS side, so re-executing a job
// after a reap cannot double-apply.
func (e *Executor) Execute(ctx context.Context, job *domain.JobMessage) (*domain.ExecutionResult, error) {
	client := e.newIAMClient(e.credentialsFor(job.AccountID))
	policyARN := policyARN(job)

	var (
		md  middleware.Metadata
		err error
	)
	switch {
	case job.PrincipalType == domain.PrincipalTypeUser && job.Action == domain.ActionGrant:
		var out *iam.AttachUserPolicyOutput
		out, err = client.AttachUserPolicy(ctx, &iam.AttachUserPolicyInput{
			UserName:  aws.String(job.PrincipalName),
			PolicyArn: aws.String(policyARN),
		})
		if out != nil {
			md = out.ResultMetadata
		}
	case job.PrincipalType == domain.PrincipalTypeUser && job.Action == domain.ActionRevoke:
		var out *iam.DetachUserPolicyOutput
		out, err = client.DetachUserPolicy(ctx, &iam.DetachUserPolicyInput{
			UserName:  aws.String(job.PrincipalName),
			PolicyArn: aws.String(policyARN),
		})
		if out != nil {
			md = out.ResultMetadata
		}
	case job.PrincipalType == domain.PrincipalTypeRole && job.Action == domain.ActionGrant:
		var out *iam.AttachRolePolicyOutput
		out, err = client.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
			RoleName:  aws.String(job.PrincipalName),
			PolicyArn: aws.String(policyARN),
		})
		if out != nil {
			md = out.ResultMetadata
		}
	case job.PrincipalType == domain.PrincipalTypeRole && job.Action == domain.ActionRevoke:
		var out *iam.DetachRolePolicyOutput
		out, err = client.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
			RoleName:  aws.String(job.PrincipalName),
			PolicyArn: aws.String(policyARN),
		})
		if out != nil {
			md = out.ResultMetadata
		}
	default:
		return nil, domain.ErrExecutionPermanent("UnsupportedOperation",
			"no IAM operation for principal_type=%q action=%q", job.PrincipalType, job.Action)
	}
	if err != nil {
		return nil, classify(err)
	}

	ref, ok := awsmiddleware.GetRequestIDMetadata(md)
	if !ok || ref == "" {
		ref = ProviderReferenceFallback
	}
	return &domain.ExecutionResult{ProviderReference: ref}, nil
}

// credentialsFor builds an assume-role credential provider for the handler
// role in the target account.
func (e *Executor) credentialsFor(accountID string) aws.CredentialsProvider {
	roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, e.cfg.HandlerRoleName)
	provider := stscreds.NewAssumeRoleProvider(e.stsClient, roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = e.cfg.SessionName
	})
	return aws.NewCredentialsCache(provider)
}

// policyARN resolves the job's permission reference to a policy ARN: full
// ARNs pass through, managed names resolve against the AWS policy
// namespace, customer names against the target account.
func policyARN(job *domain.JobMessage) string {
	if strings.HasPrefix(job.PermissionRef, "arn:") {
		return job.PermissionRef
	}
	if job.PermissionType == domain.PermissionTypeCustomer {
		return fmt.Sprintf("arn:aws:iam::%s:policy/%s", job.AccountID, job.PermissionRef)
	}
	return "arn:aws:iam::aws:policy/" + job.PermissionRef
}

// permanentCodes are API failures that will not succeed on redelivery
// without external intervention.
var permanentCodes = map[string]struct{}{
	"NoSuchEntity":            {},
	"InvalidInput":            {},
	"AccessDenied":            {},
	"AccessDeniedException":   {},
	"MalformedPolicyDocument": {},
	"ValidationError":         {},
}

// classify maps an AWS failure to the engine's retry classes. API errors
// outside the permanent set (throttling, service unavailable) and
// transport-level failures are transient; the consumer's retry budget
// bounds them.
func classify(err error) *domain.ExecutionError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrExecutionTransient("RequestTimeout", "%v", err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if _, ok := permanentCodes[code]; ok {
			return domain.ErrExecutionPermanent(code, "%s", apiErr.ErrorMessage())
		}
		return domain.ErrExecutionTransient(code, "%s", apiErr.ErrorMessage())
	}

	return domain.ErrExecutionTransient("", "%v", err)
}
