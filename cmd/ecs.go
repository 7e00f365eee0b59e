package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/alexbacchin/awsconnect/internal/awsx"
	"github.com/alexbacchin/awsconnect/internal/ssmclient"
)

var (
	ecsCluster     string
	ecsService     string
	ecsExecCommand string
	ecsWait        bool
	ecsWaitTimeout time.Duration
)

var ecsCmd = &cobra.Command{
	Use:   "ecs",
	Short: "Exec into or restart ECS services",
}

var ecsExecCmd = &cobra.Command{
	Use:   "exec",
	Short: "Run an interactive command in a running ECS container",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runECSExec(cmd.Context())
	},
}

var ecsRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Force a new deployment of an ECS service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runECSRestart(cmd.Context())
	},
}

func init() {
	ecsCmd.PersistentFlags().StringVar(&ecsCluster, "cluster", "", "ECS cluster name")
	ecsCmd.PersistentFlags().StringVar(&ecsService, "service", "", "ECS service name")
	ecsExecCmd.Flags().StringVar(&ecsExecCommand, "command", "", "command to run (default from config, /bin/sh)")
	ecsRestartCmd.Flags().BoolVar(&ecsWait, "wait", true, "wait for the service to stabilize")
	ecsRestartCmd.Flags().DurationVar(&ecsWaitTimeout, "wait-timeout", 10*time.Minute, "how long to wait for stabilization")
	ecsCmd.AddCommand(ecsExecCmd, ecsRestartCmd)
	rootCmd.AddCommand(ecsCmd)
}

// pickService resolves cluster and service, via flags or pickers.
func pickService(ctx context.Context, rt *runtime) (string, string, error) {
	cluster := ecsCluster
	if cluster == "" {
		clusters, err := awsx.ListClusters(ctx, rt.ecsClient())
		if err != nil {
			return "", "", err
		}
		if _, cluster, err = selectOne("Select cluster", clusters); err != nil {
			return "", "", err
		}
	}

	service := ecsService
	if service == "" {
		services, err := awsx.ListServices(ctx, rt.ecsClient(), cluster)
		if err != nil {
			return "", "", err
		}
		if _, service, err = selectOne("Select service", services); err != nil {
			return "", "", err
		}
	}

	return cluster, service, nil
}

func runECSExec(ctx context.Context) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}

	cluster, service, err := pickService(ctx, rt)
	if err != nil {
		return err
	}

	containers, err := awsx.ListContainers(ctx, rt.ecsClient(), cluster, service)
	if err != nil {
		return err
	}
	labels := make([]string, len(containers))
	for i, c := range containers {
		labels[i] = c.Label()
	}
	i, _, err := selectOne("Select container", labels)
	if err != nil {
		return err
	}
	container := containers[i]

	command := ecsExecCommand
	if command == "" {
		command = viper.GetString("exec-command")
	}

	sess, err := awsx.ExecCommand(ctx, rt.ecsClient(), container, command)
	if err != nil {
		return err
	}

	rt.log.Info("attaching to container",
		zap.String("cluster", cluster), zap.String("container", container.Name))
	return ssmclient.ExecCommandSession(rt.cfg, sess, cluster, container.TaskID, container.RuntimeID)
}

func runECSRestart(ctx context.Context) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}

	cluster, service, err := pickService(ctx, rt)
	if err != nil {
		return err
	}

	if err = awsx.RestartService(ctx, rt.ecsClient(), cluster, service); err != nil {
		return err
	}
	fmt.Printf("Forced new deployment of %s/%s\n", cluster, service)

	if !ecsWait {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, ecsWaitTimeout)
	defer cancel()
	if err = awsx.WaitServiceStable(waitCtx, rt.ecsClient(), cluster, service, 15*time.Second); err != nil {
		return fmt.Errorf("service did not stabilize: %w", err)
	}
	fmt.Println("Service is stable")
	return nil
}
