package tunnel

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/session-manager-plugin/src/datachannel"
	pluginlog "github.com/aws/session-manager-plugin/src/log"
	"github.com/aws/session-manager-plugin/src/sessionmanagerplugin/session"
	_ "github.com/aws/session-manager-plugin/src/sessionmanagerplugin/session/portsession"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NativeLauncher runs the forwarding channel in-process through the
// session-manager-plugin library instead of spawning the plugin binary.
// Useful where the plugin is not installed; the trade-off is that the
// session's diagnostics go to the plugin's own log, not our handle.
type NativeLauncher struct {
	Client SessionAPI
	Region string

	log *zap.Logger
}

func NewNativeLauncher(client SessionAPI, region string, logger *zap.Logger) *NativeLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NativeLauncher{Client: client, Region: region, log: logger}
}

func (l *NativeLauncher) Launch(ctx context.Context, req Request, localPort int) (Handle, error) {
	in := startSessionInput(req, localPort)

	out, err := l.Client.StartSession(ctx, in)
	if err != nil {
		return nil, &LaunchError{Target: req.Target, Err: err}
	}

	endpoint, err := sessionEndpoint(ctx, l.Region)
	if err != nil {
		return nil, &LaunchError{Target: req.Target, Err: err}
	}

	ssmSession := new(session.Session)
	ssmSession.SessionId = *out.SessionId
	ssmSession.StreamUrl = *out.StreamUrl
	ssmSession.TokenValue = *out.TokenValue
	ssmSession.Endpoint = endpoint
	ssmSession.ClientId = uuid.NewString()
	ssmSession.TargetId = req.Target
	ssmSession.DataChannel = &datachannel.DataChannel{}

	h := &nativeHandle{
		client:    l.Client,
		sessionID: ssmSession.SessionId,
		done:      make(chan struct{}),
		log:       l.log,
	}

	go func() {
		h.err = ssmSession.Execute(pluginlog.Logger(false, ssmSession.ClientId))
		close(h.done)
	}()

	return h, nil
}

type nativeHandle struct {
	client    SessionAPI
	sessionID string
	done      chan struct{}
	once      sync.Once
	err       error
	log       *zap.Logger
}

func (h *nativeHandle) Output() string {
	return ""
}

// Terminate ends the session server-side, which unblocks the in-process
// Execute loop.  Terminating a session that already ended is tolerated.
func (h *nativeHandle) Terminate() error {
	h.once.Do(func() {
		select {
		case <-h.done:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := h.client.TerminateSession(ctx, &ssm.TerminateSessionInput{SessionId: &h.sessionID}); err != nil {
			h.log.Debug("terminate session", zap.String("sessionId", h.sessionID), zap.Error(err))
		}

		select {
		case <-h.done:
		case <-time.After(termGracePeriod):
		}
	})
	return nil
}
