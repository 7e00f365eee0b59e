// Package awsx loads AWS client configuration and discovers the resources
// the selection menus are built from.  Every AWS call goes through a narrow
// API interface so the workflows can be exercised against fakes.
package awsx

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ClientConfig selects the credentials and region used for a run.  Static
// keys take precedence over the shared-config profile when set.
type ClientConfig struct {
	Profile   string
	Region    string
	AccessKey string
	SecretKey string
}

// LoadConfig builds the SDK configuration from the shared AWS config files,
// honoring profile and region overrides.
func LoadConfig(ctx context.Context, cc ClientConfig) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{}
	if cc.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cc.Profile))
	}
	if cc.Region != "" {
		opts = append(opts, config.WithRegion(cc.Region))
	}
	if cc.AccessKey != "" && cc.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cc.AccessKey, cc.SecretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Region == "" {
		return aws.Config{}, fmt.Errorf("no region configured, set --region or a profile default")
	}
	return cfg, nil
}

// CallerIdentityAPI is the STS surface used for the identity banner.
type CallerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Identity is who the loaded credentials authenticate as.
type Identity struct {
	Account string
	Arn     string
}

func CallerIdentity(ctx context.Context, client CallerIdentityAPI) (Identity, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, err
	}
	return Identity{Account: aws.ToString(out.Account), Arn: aws.ToString(out.Arn)}, nil
}
