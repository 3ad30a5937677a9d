package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"
)

// version is overridden via -ldflags at build time.
var version = "(local)"

// CLI is the root command for eltctl.
var CLI struct {
	Project     string `short:"p" default:"." help:"Project directory." placeholder:"DIR"`
	LogLevel    string `default:"info" help:"Log level (debug, info, warn, error)."`
	LogFormat   string `default:"text" help:"Log format (text, json)."`
	DatabaseDSN string `help:"Override the job database DSN." placeholder:"DSN"`

	Init     InitCmd     `cmd:"" help:"Scaffold a new project."`
	Add      AddCmd      `cmd:"" help:"Add a plugin to the project and install it."`
	Install  InstallCmd  `cmd:"" help:"Install the project's plugins."`
	Elt      EltCmd      `cmd:"" help:"Run an extract/load/transform pipeline."`
	Jobs     JobsCmd     `cmd:"" help:"List recent pipeline runs."`
	Schedule ScheduleCmd `cmd:"" help:"Declare a recurring pipeline."`
	Config   ConfigCmd   `cmd:"" help:"Manage plugin configuration."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&CLI,
		kong.Name("eltctl"),
		kong.Description("Manages ELT pipeline projects: plugins, runs, schedules, and configuration."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	app := &appContext{}
	defer app.close()

	if err := kongCtx.Run(app); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func configureLogger() {
	level, err := log.ParseLevel(CLI.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if CLI.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
