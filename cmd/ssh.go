package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/alexbacchin/awsconnect/internal/ssmclient"
	"github.com/alexbacchin/awsconnect/internal/tunnel"
)

var sshRemotePort int

var sshCmd = &cobra.Command{
	Use:   "ssh [[user@]target]",
	Short: "SSH to an EC2 instance through an SSM tunnel",
	Long: `SSH to an EC2 instance without a reachable sshd: a local port is forwarded
to the instance's SSH port over SSM, an ephemeral key is pushed with EC2
Instance Connect, and the local ssh client is run against the tunnel.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user := viper.GetString("ssh-user")
		var target string
		if len(args) > 0 {
			target = args[0]
			if at := strings.Index(target, "@"); at >= 0 {
				user = target[:at]
				target = target[at+1:]
			}
		}
		return runSSH(cmd.Context(), user, target, sshRemotePort)
	},
}

func init() {
	sshCmd.Flags().IntVar(&sshRemotePort, "port", 22, "SSH port on the instance")
	rootCmd.AddCommand(sshCmd)
}

func runSSH(ctx context.Context, user, target string, remotePort int) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}

	id, err := rt.resolveTarget(ctx, target)
	if err != nil {
		return err
	}

	sess, err := rt.tunnelManager().Open(ctx, tunnel.Request{Target: id, RemotePort: remotePort})
	if err != nil {
		return err
	}
	// Run guarantees teardown from here on

	sshArgs := []string{"ssh",
		"-p", strconv.Itoa(sess.LocalPort),
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
	}

	keyPath, cleanup, err := ssmclient.PushEphemeralKey(ctx, rt.icClient(), id, user)
	if err != nil {
		// fall back to the operator's own keys/agent
		rt.log.Warn("instance connect key push failed", zap.Error(err))
	} else {
		defer cleanup()
		sshArgs = append(sshArgs, "-i", keyPath)
	}
	sshArgs = append(sshArgs, fmt.Sprintf("%s@localhost", user))

	return sess.Run(ctx, tunnel.Consumer{Command: sshArgs})
}
