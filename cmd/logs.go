package cmd

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexbacchin/awsconnect/internal/awsx"
)

var (
	logsFollow bool
	logsFilter string
	logsSince  time.Duration
	logsPrefix string
)

var logsCmd = &cobra.Command{
	Use:   "logs [group]",
	Short: "Tail or filter a CloudWatch Logs group",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var group string
		if len(args) > 0 {
			group = args[0]
		}
		return runLogs(cmd.Context(), group)
	},
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "keep polling for new events")
	logsCmd.Flags().StringVar(&logsFilter, "filter", "", "CloudWatch filter pattern")
	logsCmd.Flags().DurationVar(&logsSince, "since", 10*time.Minute, "how far back to start")
	logsCmd.Flags().StringVar(&logsPrefix, "prefix", "", "log group prefix for the picker")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(ctx context.Context, group string) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}

	if group == "" {
		groups, err := awsx.ListLogGroups(ctx, rt.logsClient(), logsPrefix)
		if err != nil {
			return err
		}
		if _, group, err = selectOne("Select log group", groups); err != nil {
			return err
		}
	}

	err = awsx.TailLogs(ctx, rt.logsClient(), awsx.TailOptions{
		Group:  group,
		Filter: logsFilter,
		Since:  logsSince,
		Follow: logsFollow,
	}, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil // ctrl-c ends a follow cleanly
	}
	return err
}
