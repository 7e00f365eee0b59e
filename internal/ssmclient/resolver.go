// Package ssmclient starts interactive SSM sessions and resolves operator
// supplied target names to EC2 instance IDs.
package ssmclient

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

var (
	// ErrInvalidTargetFormat is the error returned if the target format doesn't match the
	// format expected by the resolver
	ErrInvalidTargetFormat = errors.New("invalid target format")
	// ErrNoInstanceFound is the error returned if a resolver was unable to find an instance
	ErrNoInstanceFound = errors.New("no instances returned from lookup")

	instanceIDRegexp = regexp.MustCompile(`^i-[[:xdigit:]]{8,}$`)
)

// TargetResolver is the interface specification for something which knows how to resolve
// an EC2 instance identifier
type TargetResolver interface {
	Resolve(context.Context, string) (string, error)
}

// DescribeInstancesAPI is the part of the EC2 API the resolvers rely on.
type DescribeInstancesAPI interface {
	DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// ResolveTarget attempts to find the instance ID of the target using a pre-defined
// resolution order: an explicit EC2 instance ID, an EC2 Name tag (or tag:value spec),
// a private IPv4 address, and finally a DNS TXT record holding the instance ID.
func ResolveTarget(ctx context.Context, target string, client DescribeInstancesAPI) (string, error) {
	return ResolveTargetChain(ctx, target, NewTagResolver(client), NewIPResolver(client), NewDNSResolver())
}

// ResolveTargetChain attempts to find the instance ID of the target using the provided
// list of TargetResolvers.  The first check is always whether the target is already in
// the format of an EC2 instance ID.  If a resolver returns an error, the next resolver
// in the chain is consulted.  If all resolvers fail, ErrNoInstanceFound is returned.
func ResolveTargetChain(ctx context.Context, target string, resolvers ...TargetResolver) (string, error) {
	if instanceIDRegexp.MatchString(target) {
		return target, nil
	}

	for _, res := range resolvers {
		id, err := res.Resolve(ctx, target)
		if err != nil {
			continue
		}
		return id, nil
	}
	return "", ErrNoInstanceFound
}

// NewTagResolver is a TargetResolver which knows how to find an EC2 instance using tags.
// The target spec is either tag_name:tag_value, or a bare value which is matched against
// the Name tag.
func NewTagResolver(client DescribeInstancesAPI) *tagResolver {
	return &tagResolver{client: client}
}

// NewIPResolver is a TargetResolver which knows how to find an EC2 instance using the
// private IPv4 address.
func NewIPResolver(client DescribeInstancesAPI) *ipResolver {
	return &ipResolver{client: client}
}

// NewDNSResolver is a TargetResolver which knows how to find an EC2 instance using DNS
// TXT record lookups.  The record data is expected to contain the instance ID.
func NewDNSResolver() *dnsResolver {
	return new(dnsResolver)
}

type tagResolver struct {
	client DescribeInstancesAPI
}

func (r *tagResolver) Resolve(ctx context.Context, target string) (string, error) {
	tag := "Name"
	value := target
	if parts := strings.SplitN(target, ":", 2); len(parts) == 2 {
		tag = parts[0]
		value = parts[1]
	}

	return describeOneInstance(ctx, r.client, ec2types.Filter{
		Name:   aws.String("tag:" + tag),
		Values: []string{value},
	})
}

type ipResolver struct {
	client DescribeInstancesAPI
}

func (r *ipResolver) Resolve(ctx context.Context, target string) (string, error) {
	ip := net.ParseIP(strings.TrimSpace(target))
	if ip == nil {
		return "", ErrInvalidTargetFormat
	}

	return describeOneInstance(ctx, r.client, ec2types.Filter{
		Name:   aws.String("private-ip-address"),
		Values: []string{ip.String()},
	})
}

type dnsResolver bool

func (r *dnsResolver) Resolve(_ context.Context, target string) (string, error) {
	rr, err := net.LookupTXT(strings.TrimSpace(target))
	if err != nil {
		return "", err
	}

	for _, rec := range rr {
		if instanceIDRegexp.MatchString(rec) {
			return rec, nil
		}
	}
	return "", ErrNoInstanceFound
}

func describeOneInstance(ctx context.Context, client DescribeInstancesAPI, filters ...ec2types.Filter) (string, error) {
	filters = append(filters, ec2types.Filter{
		Name:   aws.String("instance-state-name"),
		Values: []string{"running"},
	})

	out, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{Filters: filters})
	if err != nil {
		return "", err
	}

	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			return *inst.InstanceId, nil
		}
	}
	return "", ErrNoInstanceFound
}
