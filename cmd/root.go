package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "awsconnect",
	Short: "Interactive remote access to AWS workloads over SSM",
	Long: `awsconnect wraps the day-to-day remote access chores of an AWS operator:
shell and SSH into EC2 instances through SSM, port forwarding to instances,
load balancers and databases, ECS container exec and restarts, and CloudWatch
log tailing.  Run without a subcommand on a terminal for the interactive menu.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initRuntimeConfig()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return runMenu()
		}
		return cmd.Help()
	},
}

// Execute runs the command tree under a signal-aware context, so an interrupt
// during a readiness wait or a held-open tunnel still reaches the deferred
// teardown paths.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("profile", "p", "", "AWS shared config profile")
	pf.StringP("region", "r", "", "AWS region")
	pf.Bool("verbose", false, "debug logging")
	pf.String("log-file", "", "also write logs to this file (rotated)")

	_ = viper.BindPFlag("profile", pf.Lookup("profile"))
	_ = viper.BindPFlag("region", pf.Lookup("region"))
	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("log-file", pf.Lookup("log-file"))
}

func initRuntimeConfig() error {
	viper.SetDefault("ssh-user", "ec2-user")
	viper.SetDefault("plugin-path", "session-manager-plugin")
	viper.SetDefault("exec-command", "/bin/sh")

	viper.SetEnvPrefix("AWSCONNECT")
	viper.AutomaticEnv()

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "awsconnect"))
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	logger = buildLogger()
	return nil
}

func buildLogger() *zap.Logger {
	level := zapcore.InfoLevel
	if viper.GetBool("verbose") {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level)

	if file := viper.GetString("log-file"); file != "" {
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // MB
			MaxBackups: 3,
		})
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, level)
		core = zapcore.NewTee(core, fileCore)
	}

	return zap.New(core)
}
