package tunnel

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"
)

const (
	docPortForwarding       = "AWS-StartPortForwardingSession"
	docPortForwardingRemote = "AWS-StartPortForwardingSessionToRemoteHost"

	// how long to wait after SIGTERM before escalating to SIGKILL
	termGracePeriod = 3 * time.Second
)

// SessionAPI is the subset of the SSM API the launchers need.
type SessionAPI interface {
	StartSession(ctx context.Context, in *ssm.StartSessionInput, optFns ...func(*ssm.Options)) (*ssm.StartSessionOutput, error)
	TerminateSession(ctx context.Context, in *ssm.TerminateSessionInput, optFns ...func(*ssm.Options)) (*ssm.TerminateSessionOutput, error)
}

func startSessionInput(req Request, localPort int) *ssm.StartSessionInput {
	params := map[string][]string{
		"portNumber":      {strconv.Itoa(req.RemotePort)},
		"localPortNumber": {strconv.Itoa(localPort)},
	}
	doc := docPortForwarding
	if req.Relay() {
		doc = docPortForwardingRemote
		params["host"] = []string{req.RemoteHost}
	}

	return &ssm.StartSessionInput{
		DocumentName: aws.String(doc),
		Target:       aws.String(req.Target),
		Parameters:   params,
	}
}

// sessionEndpoint resolves the regional SSM endpoint handed to the plugin,
// through the SDK's endpoint rules so non-default partitions (cn-*, us-gov-*)
// get their own DNS suffix.
func sessionEndpoint(ctx context.Context, region string) (string, error) {
	params := ssm.EndpointParameters{Region: aws.String(region)}.WithDefaults()
	ep, err := ssm.NewDefaultEndpointResolverV2().ResolveEndpoint(ctx, params)
	if err != nil {
		return "", fmt.Errorf("resolve ssm endpoint: %w", err)
	}
	return ep.URI.String(), nil
}

// PluginLauncher runs the forwarding channel through the session-manager-plugin
// binary, the same way the AWS CLI does: StartSession via the API (so a
// rejected request fails fast, before any process is spawned), then hand the
// session details to the plugin as a detached subprocess.  The plugin spawns
// a helper child of its own, so the subprocess gets its own process group and
// termination signals the whole group.
type PluginLauncher struct {
	Client     SessionAPI
	Region     string
	Profile    string
	PluginPath string

	log *zap.Logger
}

func NewPluginLauncher(client SessionAPI, region, profile string, logger *zap.Logger) *PluginLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PluginLauncher{
		Client:     client,
		Region:     region,
		Profile:    profile,
		PluginPath: "session-manager-plugin",
		log:        logger,
	}
}

func (l *PluginLauncher) Launch(ctx context.Context, req Request, localPort int) (Handle, error) {
	in := startSessionInput(req, localPort)

	out, err := l.Client.StartSession(ctx, in)
	if err != nil {
		return nil, &LaunchError{Target: req.Target, Err: err}
	}

	sessJSON, err := json.Marshal(map[string]*string{
		"SessionId":  out.SessionId,
		"StreamUrl":  out.StreamUrl,
		"TokenValue": out.TokenValue,
	})
	if err != nil {
		return nil, &LaunchError{Target: req.Target, Err: err}
	}
	paramsJSON, err := json.Marshal(in)
	if err != nil {
		return nil, &LaunchError{Target: req.Target, Err: err}
	}
	endpoint, err := sessionEndpoint(ctx, l.Region)
	if err != nil {
		return nil, &LaunchError{Target: req.Target, Err: err}
	}

	// argv order is the contract the AWS CLI uses to invoke the plugin
	cmd := exec.Command(l.PluginPath,
		string(sessJSON), l.Region, "StartSession", l.Profile, string(paramsJSON), endpoint)

	buf := new(outputBuffer)
	cmd.Stdout = buf
	cmd.Stderr = buf
	detachProcess(cmd)

	if err = cmd.Start(); err != nil {
		return nil, &LaunchError{Target: req.Target, Err: err, Output: buf.String()}
	}
	l.log.Debug("forwarding process started",
		zap.Int("pid", cmd.Process.Pid), zap.String("target", req.Target), zap.Int("localPort", localPort))

	h := &processHandle{cmd: cmd, out: buf, done: make(chan struct{})}
	go h.reap()
	return h, nil
}

type processHandle struct {
	cmd  *exec.Cmd
	out  *outputBuffer
	done chan struct{}
	once sync.Once
	err  error
}

func (h *processHandle) reap() {
	h.err = h.cmd.Wait()
	close(h.done)
}

func (h *processHandle) Output() string {
	return h.out.String()
}

// Terminate signals the forwarding process group and waits for the process to
// be reaped, escalating to SIGKILL if it lingers.  A process that already
// exited is not an error.
func (h *processHandle) Terminate() error {
	var err error
	h.once.Do(func() {
		select {
		case <-h.done:
			return
		default:
		}

		if err = terminateProcess(h.cmd); err != nil {
			return
		}

		select {
		case <-h.done:
		case <-time.After(termGracePeriod):
			_ = killProcess(h.cmd)
			select {
			case <-h.done:
			case <-time.After(time.Second):
				err = fmt.Errorf("forwarding process %d did not exit", h.cmd.Process.Pid)
			}
		}
	})
	return err
}

// outputBuffer collects process output for later diagnosis.  Writes arrive
// from the process pipes concurrently with Output reads on timeout paths.
type outputBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
