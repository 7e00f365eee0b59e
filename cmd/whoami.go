package cmd

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"

	"github.com/alexbacchin/awsconnect/internal/awsx"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity of the selected credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}

		id, err := awsx.CallerIdentity(cmd.Context(), sts.NewFromConfig(rt.cfg))
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Account: %s\nArn:     %s\nRegion:  %s\n",
			id.Account, id.Arn, rt.cfg.Region)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
