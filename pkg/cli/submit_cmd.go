package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newSubmitCmd(host *string) *cobra.Command {
	var (
		clientRequestID string
		accountID       string
		platform        string
		principalType   string
		principal       string
		action          string
		permission      string
		permissionType  string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an access request",
		Example: `  csecbridge submit --client-request-id req-42 --account 123456789012 \
    --principal alice --principal-type User --action grant --permission ReadOnlyAccess`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			body := map[string]string{
				"client_request_id": clientRequestID,
				"account_id":        accountID,
				"target_platform":   platform,
				"principal_type":    principalType,
				"principal_name":    principal,
				"action":            action,
				"permission_ref":    permission,
				"permission_type":   permissionType,
			}
			var resp json.RawMessage
			if err := doJSON("POST", *host+"/v1/requests", body, &resp); err != nil {
				return err
			}
			return printJSON(resp)
		},
	}

	cmd.Flags().StringVar(&clientRequestID, "client-request-id", "", "caller's own request id (required)")
	cmd.Flags().StringVar(&accountID, "account", "", "target account id (required)")
	cmd.Flags().StringVar(&platform, "platform", "aws", "target platform")
	cmd.Flags().StringVar(&principalType, "principal-type", "User", "principal type: User or Role")
	cmd.Flags().StringVar(&principal, "principal", "", "principal name (required)")
	cmd.Flags().StringVar(&action, "action", "grant", "action: grant or revoke")
	cmd.Flags().StringVar(&permission, "permission", "", "policy name or full ARN (required)")
	cmd.Flags().StringVar(&permissionType, "permission-type", "managed", "permission type: managed or customer")
	_ = cmd.MarkFlagRequired("client-request-id")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("permission")

	return cmd
}
