package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/viper"

	"github.com/alexbacchin/awsconnect/internal/awsx"
)

const (
	menuShell      = "Shell into instance (SSM)"
	menuSSH        = "SSH into instance (SSM tunnel)"
	menuForward    = "Port forward to instance"
	menuALB        = "Port forward to load balancer"
	menuRDS        = "Port forward to RDS"
	menuECSExec    = "ECS container exec"
	menuECSRestart = "ECS service restart"
	menuLogs       = "Tail CloudWatch logs"
	menuProfile    = "Switch profile"
	menuRegion     = "Switch region"
	menuQuit       = "Quit"
)

var menuItems = []string{
	menuShell, menuSSH, menuForward, menuALB, menuRDS,
	menuECSExec, menuECSRestart, menuLogs,
	menuProfile, menuRegion, menuQuit,
}

// runMenu is the interactive loop: one operation per pass, backing out of any
// picker returns here rather than proceeding with a partial selection.
func runMenu() error {
	for {
		label := fmt.Sprintf("awsconnect [profile=%s region=%s]",
			orDefault(viper.GetString("profile"), "default"),
			orDefault(viper.GetString("region"), "from profile"))

		_, choice, err := selectOne(label, menuItems)
		if err != nil {
			return nil // interrupt at the top level just exits
		}

		if choice == menuQuit {
			return nil
		}

		ctx, stop := operationContext()
		err = dispatchMenu(ctx, choice)
		stop()
		if err != nil {
			if returnToMenuSilently(err) {
				continue
			}
			// report and return to the menu, the operator re-invokes the flow
			fmt.Println("Error:", describeError(err))
		}
	}
}

// returnToMenuSilently holds for the two non-failures: the operator backed
// out of a picker, or ended the operation with Ctrl-C.
func returnToMenuSilently(err error) bool {
	return errors.Is(err, ErrNoSelection) || errors.Is(err, context.Canceled)
}

// operationContext arms a fresh interrupt context for one menu operation.
// The context from Execute is single-shot: the first Ctrl-C cancels it for
// good, so handing it to every pass would leave the menu unable to run
// anything after the operator closes one tunnel.  With a context per pass,
// Ctrl-C ends the operation and lands back at the menu.
func operationContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func dispatchMenu(ctx context.Context, choice string) error {
	switch choice {
	case menuShell:
		return runShell(ctx, "")
	case menuSSH:
		return runSSH(ctx, viper.GetString("ssh-user"), "", 22)
	case menuForward:
		return menuPortForward(ctx)
	case menuALB:
		return runALBForward(ctx)
	case menuRDS:
		return runRDSForward(ctx)
	case menuECSExec:
		return runECSExec(ctx)
	case menuECSRestart:
		return runECSRestart(ctx)
	case menuLogs:
		return runLogs(ctx, "")
	case menuProfile:
		return switchProfile()
	case menuRegion:
		return switchRegion(ctx)
	}
	return nil
}

func menuPortForward(ctx context.Context) error {
	port, err := promptString("Remote port on the instance", "")
	if err != nil {
		return err
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return runForward(ctx, "", p, "")
}

func switchProfile() error {
	profiles, err := awsx.ListProfiles()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		return fmt.Errorf("no profiles found in the shared AWS config")
	}

	_, profile, err := selectOne("Select profile", profiles)
	if err != nil {
		return err
	}
	viper.Set("profile", profile)
	return nil
}

func switchRegion(ctx context.Context) error {
	var api awsx.DescribeRegionsAPI
	if rt, err := newRuntime(ctx); err == nil {
		api = rt.ec2Client()
	}

	_, region, err := selectOne("Select region", awsx.ListRegions(ctx, api))
	if err != nil {
		return err
	}
	viper.Set("region", region)
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
