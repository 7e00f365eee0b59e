package awsx

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// RDSAPI is the RDS surface behind the rds forwarding workflow.
type RDSAPI interface {
	DescribeDBInstances(ctx context.Context, in *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// DBEndpoint is one row in the database picker.
type DBEndpoint struct {
	Identifier string
	Engine     string
	Address    string
	Port       int
}

func (db DBEndpoint) Label() string {
	return fmt.Sprintf("%s [%s] %s:%d", db.Identifier, db.Engine, db.Address, db.Port)
}

// ListDBEndpoints returns the endpoints of all available database instances.
// Instances without an endpoint (still creating, for example) are skipped.
func ListDBEndpoints(ctx context.Context, api RDSAPI) ([]DBEndpoint, error) {
	var dbs []DBEndpoint
	var marker *string
	for {
		out, err := api.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("describe db instances: %w", err)
		}
		for _, inst := range out.DBInstances {
			if inst.Endpoint == nil || inst.Endpoint.Address == nil {
				continue
			}
			dbs = append(dbs, DBEndpoint{
				Identifier: aws.ToString(inst.DBInstanceIdentifier),
				Engine:     aws.ToString(inst.Engine),
				Address:    aws.ToString(inst.Endpoint.Address),
				Port:       int(aws.ToInt32(inst.Endpoint.Port)),
			})
		}
		if marker = out.Marker; marker == nil {
			break
		}
	}

	sort.Slice(dbs, func(i, j int) bool { return dbs[i].Identifier < dbs[j].Identifier })
	return dbs, nil
}
