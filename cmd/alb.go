package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alexbacchin/awsconnect/internal/awsx"
	"github.com/alexbacchin/awsconnect/internal/tunnel"
)

var albCmd = &cobra.Command{
	Use:   "alb",
	Short: "Forward a local port to a load balancer through a bastion",
	Long: `Pick a load balancer and one of its listener ports, then relay a local
port to the load balancer's DNS name through a bastion instance over SSM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runALBForward(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(albCmd)
}

func runALBForward(ctx context.Context) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}

	lbs, err := awsx.ListLoadBalancers(ctx, rt.elbClient())
	if err != nil {
		return err
	}

	labels := make([]string, len(lbs))
	for i, lb := range lbs {
		labels[i] = lb.Label()
	}
	i, _, err := selectOne("Select load balancer", labels)
	if err != nil {
		return err
	}
	lb := lbs[i]

	ports, err := awsx.ListenerPorts(ctx, rt.elbClient(), lb.Arn)
	if err != nil {
		return err
	}
	portLabels := make([]string, len(ports))
	for i, p := range ports {
		portLabels[i] = strconv.Itoa(p)
	}
	j, _, err := selectOne("Select listener port", portLabels)
	if err != nil {
		return err
	}

	bastion, err := rt.pickInstance(ctx)
	if err != nil {
		return err
	}

	return holdTunnel(ctx, rt, tunnel.Request{
		Target:     bastion.ID,
		RemoteHost: lb.DNSName,
		RemotePort: ports[j],
	})
}
