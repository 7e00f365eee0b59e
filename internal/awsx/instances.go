package awsx

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Instance is one row in the instance picker.
type Instance struct {
	ID        string
	Name      string
	PrivateIP string
}

func (i Instance) Label() string {
	if i.Name == "" {
		return fmt.Sprintf("%s (%s)", i.ID, i.PrivateIP)
	}
	return fmt.Sprintf("%s  %s (%s)", i.Name, i.ID, i.PrivateIP)
}

// InstancesAPI is the EC2 surface used to list candidate instances; the SSM
// side of the picker is ManagedInstancesAPI.
type InstancesAPI interface {
	DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// ManagedInstancesAPI reports which instances have a connected SSM agent.
type ManagedInstancesAPI interface {
	DescribeInstanceInformation(ctx context.Context, in *ssm.DescribeInstanceInformationInput, optFns ...func(*ssm.Options)) (*ssm.DescribeInstanceInformationOutput, error)
}

// ListInstances returns all running instances, sorted by name.  When ssmAPI
// is non-nil the result is narrowed to instances with a connected SSM agent,
// since those are the only ones a session can reach.
func ListInstances(ctx context.Context, api InstancesAPI, ssmAPI ManagedInstancesAPI) ([]Instance, error) {
	managed, err := managedInstanceIDs(ctx, ssmAPI)
	if err != nil {
		return nil, err
	}

	in := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("instance-state-name"), Values: []string{"running"}},
		},
	}

	var instances []Instance
	p := ec2.NewDescribeInstancesPaginator(api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}

		for _, res := range page.Reservations {
			for _, inst := range res.Instances {
				id := aws.ToString(inst.InstanceId)
				if managed != nil {
					if _, ok := managed[id]; !ok {
						continue
					}
				}
				instances = append(instances, Instance{
					ID:        id,
					Name:      nameTag(inst.Tags),
					PrivateIP: aws.ToString(inst.PrivateIpAddress),
				})
			}
		}
	}

	sort.Slice(instances, func(i, j int) bool {
		if instances[i].Name == instances[j].Name {
			return instances[i].ID < instances[j].ID
		}
		return instances[i].Name < instances[j].Name
	})
	return instances, nil
}

func managedInstanceIDs(ctx context.Context, api ManagedInstancesAPI) (map[string]struct{}, error) {
	if api == nil {
		return nil, nil
	}

	ids := make(map[string]struct{})
	p := ssm.NewDescribeInstanceInformationPaginator(api, &ssm.DescribeInstanceInformationInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe managed instances: %w", err)
		}
		for _, info := range page.InstanceInformationList {
			ids[aws.ToString(info.InstanceId)] = struct{}{}
		}
	}
	return ids, nil
}

func nameTag(tags []ec2types.Tag) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}
