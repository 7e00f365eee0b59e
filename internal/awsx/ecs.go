package awsx

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// ECSAPI is the ECS surface behind the exec and restart workflows.
type ECSAPI interface {
	ListClusters(ctx context.Context, in *ecs.ListClustersInput, optFns ...func(*ecs.Options)) (*ecs.ListClustersOutput, error)
	ListServices(ctx context.Context, in *ecs.ListServicesInput, optFns ...func(*ecs.Options)) (*ecs.ListServicesOutput, error)
	ListTasks(ctx context.Context, in *ecs.ListTasksInput, optFns ...func(*ecs.Options)) (*ecs.ListTasksOutput, error)
	DescribeTasks(ctx context.Context, in *ecs.DescribeTasksInput, optFns ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error)
	DescribeServices(ctx context.Context, in *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
	ExecuteCommand(ctx context.Context, in *ecs.ExecuteCommandInput, optFns ...func(*ecs.Options)) (*ecs.ExecuteCommandOutput, error)
	UpdateService(ctx context.Context, in *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error)
}

// Container identifies one exec-able container in a running task.
type Container struct {
	Cluster   string
	TaskArn   string
	TaskID    string
	Name      string
	RuntimeID string
}

func (c Container) Label() string {
	return fmt.Sprintf("%s (task %s)", c.Name, c.TaskID)
}

func ListClusters(ctx context.Context, api ECSAPI) ([]string, error) {
	var arns []string
	var next *string
	for {
		out, err := api.ListClusters(ctx, &ecs.ListClustersInput{NextToken: next})
		if err != nil {
			return nil, fmt.Errorf("list clusters: %w", err)
		}
		arns = append(arns, out.ClusterArns...)
		if next = out.NextToken; next == nil {
			break
		}
	}

	names := make([]string, len(arns))
	for i, arn := range arns {
		names[i] = arnResource(arn)
	}
	sort.Strings(names)
	return names, nil
}

func ListServices(ctx context.Context, api ECSAPI, cluster string) ([]string, error) {
	var arns []string
	var next *string
	for {
		out, err := api.ListServices(ctx, &ecs.ListServicesInput{Cluster: aws.String(cluster), NextToken: next})
		if err != nil {
			return nil, fmt.Errorf("list services: %w", err)
		}
		arns = append(arns, out.ServiceArns...)
		if next = out.NextToken; next == nil {
			break
		}
	}

	names := make([]string, len(arns))
	for i, arn := range arns {
		names[i] = arnResource(arn)
	}
	sort.Strings(names)
	return names, nil
}

// ListContainers returns the running containers of a service, the units the
// exec picker offers.
func ListContainers(ctx context.Context, api ECSAPI, cluster, service string) ([]Container, error) {
	tasks, err := api.ListTasks(ctx, &ecs.ListTasksInput{
		Cluster:       aws.String(cluster),
		ServiceName:   aws.String(service),
		DesiredStatus: ecstypes.DesiredStatusRunning,
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks.TaskArns) == 0 {
		return nil, fmt.Errorf("no running tasks for service %s", service)
	}

	desc, err := api.DescribeTasks(ctx, &ecs.DescribeTasksInput{
		Cluster: aws.String(cluster),
		Tasks:   tasks.TaskArns,
	})
	if err != nil {
		return nil, fmt.Errorf("describe tasks: %w", err)
	}

	var containers []Container
	for _, task := range desc.Tasks {
		taskArn := aws.ToString(task.TaskArn)
		for _, c := range task.Containers {
			containers = append(containers, Container{
				Cluster:   cluster,
				TaskArn:   taskArn,
				TaskID:    arnResource(taskArn),
				Name:      aws.ToString(c.Name),
				RuntimeID: aws.ToString(c.RuntimeId),
			})
		}
	}
	return containers, nil
}

// ExecCommand starts an interactive command session in the container.  The
// returned session is handed to the session-manager-plugin for terminal
// attachment.
func ExecCommand(ctx context.Context, api ECSAPI, c Container, command string) (*ecstypes.Session, error) {
	out, err := api.ExecuteCommand(ctx, &ecs.ExecuteCommandInput{
		Cluster:     aws.String(c.Cluster),
		Task:        aws.String(c.TaskArn),
		Container:   aws.String(c.Name),
		Command:     aws.String(command),
		Interactive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("execute command: %w", err)
	}
	return out.Session, nil
}

// RestartService forces a new deployment of the service.
func RestartService(ctx context.Context, api ECSAPI, cluster, service string) error {
	_, err := api.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:            aws.String(cluster),
		Service:            aws.String(service),
		ForceNewDeployment: true,
	})
	if err != nil {
		return fmt.Errorf("force new deployment: %w", err)
	}
	return nil
}

// WaitServiceStable polls the service until the forced deployment is the only
// one left and its running count matches the desired count.
func WaitServiceStable(ctx context.Context, api ECSAPI, cluster, service string, pollInterval time.Duration) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		out, err := api.DescribeServices(ctx, &ecs.DescribeServicesInput{
			Cluster:  aws.String(cluster),
			Services: []string{service},
		})
		if err != nil {
			return fmt.Errorf("describe services: %w", err)
		}
		if len(out.Services) == 0 {
			return fmt.Errorf("service %s not found", service)
		}

		svc := out.Services[0]
		if len(svc.Deployments) == 1 && svc.RunningCount == svc.DesiredCount {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// arnResource extracts the resource name from an ARN, dropping any qualifier
// like the cluster name in task ARNs.
func arnResource(arn string) string {
	parts := strings.Split(arn, "/")
	return parts[len(parts)-1]
}
