package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newStatusCmd(host *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <correlation-id>",
		Short: "Show the current status of a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var resp json.RawMessage
			if err := doJSON("GET", *host+"/v1/requests/"+args[0], nil, &resp); err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
}

func newHistoryCmd(host *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history <correlation-id>",
		Short: "Show a request's full transition history and provider references",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var resp json.RawMessage
			if err := doJSON("GET", *host+"/v1/requests/"+args[0]+"/history", nil, &resp); err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
}
