package awsx

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeECS struct {
	clusters    []string
	services    []string
	taskArns    []string
	tasks       []ecstypes.Task
	serviceDesc []ecstypes.Service // one element returned per DescribeServices call
	describes   int

	updated *ecs.UpdateServiceInput
	execIn  *ecs.ExecuteCommandInput
}

func (f *fakeECS) ListClusters(_ context.Context, _ *ecs.ListClustersInput, _ ...func(*ecs.Options)) (*ecs.ListClustersOutput, error) {
	return &ecs.ListClustersOutput{ClusterArns: f.clusters}, nil
}

func (f *fakeECS) ListServices(_ context.Context, _ *ecs.ListServicesInput, _ ...func(*ecs.Options)) (*ecs.ListServicesOutput, error) {
	return &ecs.ListServicesOutput{ServiceArns: f.services}, nil
}

func (f *fakeECS) ListTasks(_ context.Context, _ *ecs.ListTasksInput, _ ...func(*ecs.Options)) (*ecs.ListTasksOutput, error) {
	return &ecs.ListTasksOutput{TaskArns: f.taskArns}, nil
}

func (f *fakeECS) DescribeTasks(_ context.Context, _ *ecs.DescribeTasksInput, _ ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error) {
	return &ecs.DescribeTasksOutput{Tasks: f.tasks}, nil
}

func (f *fakeECS) DescribeServices(_ context.Context, _ *ecs.DescribeServicesInput, _ ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	i := f.describes
	if i >= len(f.serviceDesc) {
		i = len(f.serviceDesc) - 1
	}
	f.describes++
	return &ecs.DescribeServicesOutput{Services: []ecstypes.Service{f.serviceDesc[i]}}, nil
}

func (f *fakeECS) ExecuteCommand(_ context.Context, in *ecs.ExecuteCommandInput, _ ...func(*ecs.Options)) (*ecs.ExecuteCommandOutput, error) {
	f.execIn = in
	sid := "ecs-session-1"
	url := "wss://example.com"
	tok := "token"
	return &ecs.ExecuteCommandOutput{
		Session: &ecstypes.Session{SessionId: &sid, StreamUrl: &url, TokenValue: &tok},
	}, nil
}

func (f *fakeECS) UpdateService(_ context.Context, in *ecs.UpdateServiceInput, _ ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error) {
	f.updated = in
	return &ecs.UpdateServiceOutput{}, nil
}

func TestListClustersStripsArns(t *testing.T) {
	api := &fakeECS{clusters: []string{
		"arn:aws:ecs:us-east-1:123456789012:cluster/prod",
		"arn:aws:ecs:us-east-1:123456789012:cluster/dev",
	}}

	names, err := ListClusters(context.Background(), api)
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "prod"}, names)
}

func TestListContainers(t *testing.T) {
	taskArn := "arn:aws:ecs:us-east-1:123456789012:task/prod/2f0a9e8c"
	api := &fakeECS{
		taskArns: []string{taskArn},
		tasks: []ecstypes.Task{{
			TaskArn: aws.String(taskArn),
			Containers: []ecstypes.Container{
				{Name: aws.String("app"), RuntimeId: aws.String("runtime-1")},
				{Name: aws.String("sidecar"), RuntimeId: aws.String("runtime-2")},
			},
		}},
	}

	containers, err := ListContainers(context.Background(), api, "prod", "web")
	require.NoError(t, err)
	require.Len(t, containers, 2)
	assert.Equal(t, "app", containers[0].Name)
	assert.Equal(t, "2f0a9e8c", containers[0].TaskID)
	assert.Equal(t, "runtime-1", containers[0].RuntimeID)
}

func TestListContainersNoTasks(t *testing.T) {
	_, err := ListContainers(context.Background(), &fakeECS{}, "prod", "web")
	assert.ErrorContains(t, err, "no running tasks")
}

func TestExecCommand(t *testing.T) {
	api := &fakeECS{}
	c := Container{Cluster: "prod", TaskArn: "arn:task", Name: "app"}

	sess, err := ExecCommand(context.Background(), api, c, "/bin/sh")
	require.NoError(t, err)
	assert.Equal(t, "ecs-session-1", *sess.SessionId)
	assert.True(t, api.execIn.Interactive)
	assert.Equal(t, "/bin/sh", aws.ToString(api.execIn.Command))
}

func TestRestartServiceForcesDeployment(t *testing.T) {
	api := &fakeECS{}

	require.NoError(t, RestartService(context.Background(), api, "prod", "web"))
	require.NotNil(t, api.updated)
	assert.True(t, api.updated.ForceNewDeployment)
	assert.Equal(t, "web", aws.ToString(api.updated.Service))
}

func TestWaitServiceStable(t *testing.T) {
	rolling := ecstypes.Service{
		Deployments:  []ecstypes.Deployment{{}, {}},
		RunningCount: 1,
		DesiredCount: 2,
	}
	stable := ecstypes.Service{
		Deployments:  []ecstypes.Deployment{{}},
		RunningCount: 2,
		DesiredCount: 2,
	}
	api := &fakeECS{serviceDesc: []ecstypes.Service{rolling, rolling, stable}}

	err := WaitServiceStable(context.Background(), api, "prod", "web", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, api.describes)
}

func TestWaitServiceStableCancelled(t *testing.T) {
	rolling := ecstypes.Service{Deployments: []ecstypes.Deployment{{}, {}}}
	api := &fakeECS{serviceDesc: []ecstypes.Service{rolling}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := WaitServiceStable(ctx, api, "prod", "web", 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
