package awsx

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegions struct {
	regions []string
	err     error
}

func (f *fakeRegions) DescribeRegions(_ context.Context, _ *ec2.DescribeRegionsInput, _ ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &ec2.DescribeRegionsOutput{}
	for _, r := range f.regions {
		out.Regions = append(out.Regions, ec2types.Region{RegionName: aws.String(r)})
	}
	return out, nil
}

func TestListRegions(t *testing.T) {
	api := &fakeRegions{regions: []string{"us-west-2", "eu-west-1"}}
	assert.Equal(t, []string{"eu-west-1", "us-west-2"}, ListRegions(context.Background(), api))
}

func TestListRegionsFallback(t *testing.T) {
	api := &fakeRegions{err: errors.New("UnauthorizedOperation")}
	regions := ListRegions(context.Background(), api)
	assert.Contains(t, regions, "us-east-1")
	assert.Contains(t, regions, "eu-central-1")
}

type fakeELB struct {
	lbs       []elbv2types.LoadBalancer
	listeners []elbv2types.Listener
}

func (f *fakeELB) DescribeLoadBalancers(_ context.Context, _ *elbv2.DescribeLoadBalancersInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error) {
	return &elbv2.DescribeLoadBalancersOutput{LoadBalancers: f.lbs}, nil
}

func (f *fakeELB) DescribeListeners(_ context.Context, _ *elbv2.DescribeListenersInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeListenersOutput, error) {
	return &elbv2.DescribeListenersOutput{Listeners: f.listeners}, nil
}

func TestListLoadBalancers(t *testing.T) {
	api := &fakeELB{lbs: []elbv2types.LoadBalancer{
		{LoadBalancerName: aws.String("web"), LoadBalancerArn: aws.String("arn:web"), DNSName: aws.String("web.elb.amazonaws.com")},
		{LoadBalancerName: aws.String("api"), LoadBalancerArn: aws.String("arn:api"), DNSName: aws.String("api.elb.amazonaws.com")},
	}}

	lbs, err := ListLoadBalancers(context.Background(), api)
	require.NoError(t, err)
	require.Len(t, lbs, 2)
	assert.Equal(t, "api", lbs[0].Name)
	assert.Contains(t, lbs[0].Label(), "api.elb.amazonaws.com")
}

func TestListenerPorts(t *testing.T) {
	api := &fakeELB{listeners: []elbv2types.Listener{
		{Port: aws.Int32(443)},
		{Port: aws.Int32(80)},
	}}

	ports, err := ListenerPorts(context.Background(), api, "arn:web")
	require.NoError(t, err)
	assert.Equal(t, []int{80, 443}, ports)
}

func TestListenerPortsEmpty(t *testing.T) {
	_, err := ListenerPorts(context.Background(), &fakeELB{}, "arn:web")
	assert.ErrorContains(t, err, "no listeners")
}

type fakeRDS struct {
	instances []rdstypes.DBInstance
}

func (f *fakeRDS) DescribeDBInstances(_ context.Context, _ *rds.DescribeDBInstancesInput, _ ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
	return &rds.DescribeDBInstancesOutput{DBInstances: f.instances}, nil
}

func TestListDBEndpoints(t *testing.T) {
	api := &fakeRDS{instances: []rdstypes.DBInstance{
		{
			DBInstanceIdentifier: aws.String("orders"),
			Engine:               aws.String("postgres"),
			Endpoint:             &rdstypes.Endpoint{Address: aws.String("orders.rds.amazonaws.com"), Port: aws.Int32(5432)},
		},
		{
			// still creating, no endpoint yet
			DBInstanceIdentifier: aws.String("new-db"),
			Engine:               aws.String("mysql"),
		},
	}}

	dbs, err := ListDBEndpoints(context.Background(), api)
	require.NoError(t, err)
	require.Len(t, dbs, 1)
	assert.Equal(t, "orders", dbs[0].Identifier)
	assert.Equal(t, 5432, dbs[0].Port)
}
