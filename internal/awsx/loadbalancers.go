package awsx

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
)

// ELBAPI is the ELBv2 surface behind the alb forwarding workflow.
type ELBAPI interface {
	DescribeLoadBalancers(ctx context.Context, in *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error)
	DescribeListeners(ctx context.Context, in *elbv2.DescribeListenersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeListenersOutput, error)
}

// LoadBalancer is one row in the load balancer picker.
type LoadBalancer struct {
	Name    string
	Arn     string
	DNSName string
}

func (lb LoadBalancer) Label() string {
	return fmt.Sprintf("%s (%s)", lb.Name, lb.DNSName)
}

func ListLoadBalancers(ctx context.Context, api ELBAPI) ([]LoadBalancer, error) {
	var lbs []LoadBalancer
	var marker *string
	for {
		out, err := api.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("describe load balancers: %w", err)
		}
		for _, lb := range out.LoadBalancers {
			lbs = append(lbs, LoadBalancer{
				Name:    aws.ToString(lb.LoadBalancerName),
				Arn:     aws.ToString(lb.LoadBalancerArn),
				DNSName: aws.ToString(lb.DNSName),
			})
		}
		if marker = out.NextMarker; marker == nil {
			break
		}
	}

	sort.Slice(lbs, func(i, j int) bool { return lbs[i].Name < lbs[j].Name })
	return lbs, nil
}

// ListenerPorts returns the listener ports of a load balancer, sorted.
func ListenerPorts(ctx context.Context, api ELBAPI, lbArn string) ([]int, error) {
	out, err := api.DescribeListeners(ctx, &elbv2.DescribeListenersInput{LoadBalancerArn: aws.String(lbArn)})
	if err != nil {
		return nil, fmt.Errorf("describe listeners: %w", err)
	}

	ports := make([]int, 0, len(out.Listeners))
	for _, l := range out.Listeners {
		if l.Port != nil {
			ports = append(ports, int(*l.Port))
		}
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("load balancer has no listeners")
	}
	sort.Ints(ports)
	return ports, nil
}
