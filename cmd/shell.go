package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alexbacchin/awsconnect/internal/ssmclient"
)

var shellCmd = &cobra.Command{
	Use:   "shell [target]",
	Short: "Open an interactive shell on an EC2 instance via SSM",
	Long: `Open an interactive shell on an EC2 instance through an SSM session.
The target may be an instance id, a Name tag value, a tag:value spec or a
private IP address; with no target an instance picker is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var target string
		if len(args) > 0 {
			target = args[0]
		}
		return runShell(cmd.Context(), target)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(ctx context.Context, target string) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}

	id, err := rt.resolveTarget(ctx, target)
	if err != nil {
		return err
	}

	rt.log.Info("starting shell session", zap.String("target", id))
	return ssmclient.ShellSession(ctx, rt.cfg, id)
}
