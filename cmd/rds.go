package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/alexbacchin/awsconnect/internal/awsx"
	"github.com/alexbacchin/awsconnect/internal/tunnel"
)

var rdsCmd = &cobra.Command{
	Use:   "rds",
	Short: "Forward a local port to an RDS instance through a bastion",
	Long: `Pick a database instance and a bastion EC2 instance, then relay a local
port to the database endpoint through the bastion over SSM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRDSForward(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(rdsCmd)
}

func runRDSForward(ctx context.Context) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}

	dbs, err := awsx.ListDBEndpoints(ctx, rt.rdsClient())
	if err != nil {
		return err
	}

	labels := make([]string, len(dbs))
	for i, db := range dbs {
		labels[i] = db.Label()
	}
	i, _, err := selectOne("Select database", labels)
	if err != nil {
		return err
	}
	db := dbs[i]

	bastion, err := rt.pickInstance(ctx)
	if err != nil {
		return err
	}

	return holdTunnel(ctx, rt, tunnel.Request{
		Target:     bastion.ID,
		RemoteHost: db.Address,
		RemotePort: db.Port,
	})
}
