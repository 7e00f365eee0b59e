package ssmclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/session-manager-plugin/src/datachannel"
	pluginlog "github.com/aws/session-manager-plugin/src/log"
	"github.com/aws/session-manager-plugin/src/sessionmanagerplugin/session"
	_ "github.com/aws/session-manager-plugin/src/sessionmanagerplugin/session/portsession"
	_ "github.com/aws/session-manager-plugin/src/sessionmanagerplugin/session/shellsession"
	"github.com/google/uuid"
)

// PluginSession delegates execution of an SSM session to the AWS-managed
// session manager plugin code, which owns the websocket data channel, the
// terminal handling and the session protocol.
func PluginSession(ctx context.Context, cfg aws.Config, in *ssm.StartSessionInput) error {
	out, err := ssm.NewFromConfig(cfg).StartSession(ctx, in)
	if err != nil {
		return err
	}

	ssmSession := new(session.Session)
	ssmSession.SessionId = *out.SessionId
	ssmSession.StreamUrl = *out.StreamUrl
	ssmSession.TokenValue = *out.TokenValue
	ssmSession.Endpoint = fmt.Sprintf("https://ssm.%s.amazonaws.com", cfg.Region)
	ssmSession.ClientId = uuid.NewString()
	ssmSession.TargetId = *in.Target
	ssmSession.DataChannel = &datachannel.DataChannel{}

	return ssmSession.Execute(pluginlog.Logger(false, ssmSession.ClientId))
}

// ShellSession starts an interactive shell session with the target instance.
func ShellSession(ctx context.Context, cfg aws.Config, target string) error {
	return PluginSession(ctx, cfg, &ssm.StartSessionInput{Target: aws.String(target)})
}

// ExecCommandSession attaches the terminal to a session already started by
// the ECS ExecuteCommand API.  The container runtime id identifies the
// session target the same way the ECS CLI tooling does.
func ExecCommandSession(cfg aws.Config, sess *ecstypes.Session, cluster, taskID, runtimeID string) error {
	if sess == nil || sess.SessionId == nil {
		return fmt.Errorf("no session returned by ExecuteCommand")
	}

	ssmSession := new(session.Session)
	ssmSession.SessionId = *sess.SessionId
	ssmSession.StreamUrl = *sess.StreamUrl
	ssmSession.TokenValue = *sess.TokenValue
	ssmSession.Endpoint = fmt.Sprintf("https://ssm.%s.amazonaws.com", cfg.Region)
	ssmSession.ClientId = uuid.NewString()
	ssmSession.TargetId = fmt.Sprintf("ecs:%s_%s_%s", cluster, taskID, runtimeID)
	ssmSession.DataChannel = &datachannel.DataChannel{}

	return ssmSession.Execute(pluginlog.Logger(false, ssmSession.ClientId))
}
