package cmd

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alexbacchin/awsconnect/internal/tunnel"
)

var (
	forwardPort   int
	forwardRemote string
)

var forwardCmd = &cobra.Command{
	Use:   "forward [target]",
	Short: "Forward a local port to an instance or through it to another host",
	Long: `Forward a local port over SSM.  With --port the remote end is a port on
the instance itself; with --remote host:port the instance relays to a
separate endpoint reachable from it.  The tunnel stays open until enter is
pressed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if forwardPort == 0 && forwardRemote == "" {
			return fmt.Errorf("one of --port or --remote is required")
		}
		if forwardPort != 0 && forwardRemote != "" {
			return fmt.Errorf("--port and --remote are mutually exclusive")
		}

		var target string
		if len(args) > 0 {
			target = args[0]
		}
		return runForward(cmd.Context(), target, forwardPort, forwardRemote)
	},
}

func init() {
	forwardCmd.Flags().IntVar(&forwardPort, "port", 0, "remote port on the instance")
	forwardCmd.Flags().StringVar(&forwardRemote, "remote", "", "relay endpoint as host:port")
	rootCmd.AddCommand(forwardCmd)
}

func runForward(ctx context.Context, target string, port int, remote string) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}

	id, err := rt.resolveTarget(ctx, target)
	if err != nil {
		return err
	}

	req := tunnel.Request{Target: id, RemotePort: port}
	if remote != "" {
		if req.RemoteHost, req.RemotePort, err = splitHostPort(remote); err != nil {
			return err
		}
	}

	return holdTunnel(ctx, rt, req)
}

// holdTunnel opens the forwarding session and keeps it up until the operator
// acknowledges, the shared shape of the forward, alb and rds workflows.
func holdTunnel(ctx context.Context, rt *runtime, req tunnel.Request) error {
	sess, err := rt.tunnelManager().Open(ctx, req)
	if err != nil {
		return err
	}
	return sess.Run(ctx, tunnel.Consumer{})
}

func splitHostPort(spec string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(spec)
	if err != nil {
		return "", 0, fmt.Errorf("expected host:port, got %q", spec)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", spec)
	}
	return host, port, nil
}
