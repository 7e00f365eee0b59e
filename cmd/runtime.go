package cmd

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2instanceconnect"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/alexbacchin/awsconnect/internal/awsx"
	"github.com/alexbacchin/awsconnect/internal/ssmclient"
	"github.com/alexbacchin/awsconnect/internal/tunnel"
)

// runtime bundles the loaded AWS configuration with the clients a workflow
// needs.  It is rebuilt when the operator switches profile or region from the
// menu.
type runtime struct {
	cfg     aws.Config
	profile string
	log     *zap.Logger
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cc := awsx.ClientConfig{
		Profile:   viper.GetString("profile"),
		Region:    viper.GetString("region"),
		AccessKey: viper.GetString("access-key"),
		SecretKey: viper.GetString("secret-key"),
	}

	cfg, err := awsx.LoadConfig(ctx, cc)
	if err != nil {
		return nil, err
	}

	logger.Debug("aws config loaded",
		zap.String("profile", cc.Profile), zap.String("region", cfg.Region))
	return &runtime{cfg: cfg, profile: cc.Profile, log: logger}, nil
}

func (rt *runtime) tunnelManager() *tunnel.Manager {
	var launcher tunnel.Launcher
	if viper.GetBool("native-forwarding") {
		launcher = tunnel.NewNativeLauncher(ssm.NewFromConfig(rt.cfg), rt.cfg.Region, rt.log)
	} else {
		pl := tunnel.NewPluginLauncher(ssm.NewFromConfig(rt.cfg), rt.cfg.Region, rt.profile, rt.log)
		pl.PluginPath = viper.GetString("plugin-path")
		launcher = pl
	}
	return tunnel.NewManager(launcher, rt.log)
}

// resolveTarget turns whatever the operator typed (instance id, Name tag,
// tag:value, private IP, DNS name) into an instance id, or runs the instance
// picker when nothing was supplied.
func (rt *runtime) resolveTarget(ctx context.Context, target string) (string, error) {
	if target != "" {
		id, err := ssmclient.ResolveTarget(ctx, target, ec2.NewFromConfig(rt.cfg))
		if err != nil {
			return "", fmt.Errorf("resolve target %q: %w", target, err)
		}
		return id, nil
	}

	inst, err := rt.pickInstance(ctx)
	if err != nil {
		return "", err
	}
	return inst.ID, nil
}

func (rt *runtime) pickInstance(ctx context.Context) (awsx.Instance, error) {
	instances, err := awsx.ListInstances(ctx, ec2.NewFromConfig(rt.cfg), ssm.NewFromConfig(rt.cfg))
	if err != nil {
		return awsx.Instance{}, err
	}
	if len(instances) == 0 {
		return awsx.Instance{}, fmt.Errorf("no running SSM-managed instances found")
	}

	labels := make([]string, len(instances))
	for i, inst := range instances {
		labels[i] = inst.Label()
	}

	i, _, err := selectOne("Select instance", labels)
	if err != nil {
		return awsx.Instance{}, err
	}
	return instances[i], nil
}

func (rt *runtime) ec2Client() *ec2.Client { return ec2.NewFromConfig(rt.cfg) }

func (rt *runtime) ecsClient() *ecs.Client { return ecs.NewFromConfig(rt.cfg) }

func (rt *runtime) elbClient() *elbv2.Client { return elbv2.NewFromConfig(rt.cfg) }

func (rt *runtime) rdsClient() *rds.Client { return rds.NewFromConfig(rt.cfg) }

func (rt *runtime) logsClient() *cloudwatchlogs.Client { return cloudwatchlogs.NewFromConfig(rt.cfg) }

func (rt *runtime) icClient() *ec2instanceconnect.Client {
	return ec2instanceconnect.NewFromConfig(rt.cfg)
}
