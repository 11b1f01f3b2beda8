// Package main is the terminal client of the job tracker: it registers and
// logs in, renders the board and moves cards between columns.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:    "jobtracker",
		Usage:   "track job applications from the terminal",
		Version: fmt.Sprintf("%s (built %s)", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A")),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "API base URL",
				Sources: cli.EnvVars("JOBTRACKER_SERVER"),
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "session file path",
			},
			&cli.StringFlag{
				Name:  "ca",
				Usage: "PEM file with an extra CA to trust",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "client log level",
				Value: "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "register",
				Usage:     "create an account",
				ArgsUsage: "<username> <email> <password>",
				Action:    registerAction,
			},
			{
				Name:      "login",
				Usage:     "log in and remember the session",
				ArgsUsage: "<email> <password>",
				Action:    loginAction,
			},
			{
				Name:   "logout",
				Usage:  "forget the stored session",
				Action: logoutAction,
			},
			{
				Name:   "board",
				Usage:  "show applications grouped by status",
				Action: boardAction,
			},
			{
				Name:      "move",
				Usage:     "move an application to another column",
				ArgsUsage: "<id> <status> [index]",
				Action:    moveAction,
			},
			{
				Name:   "add",
				Usage:  "create an application interactively",
				Action: addAction,
			},
			{
				Name:      "delete",
				Usage:     "delete an application",
				ArgsUsage: "<id>",
				Action:    deleteAction,
			},
			{
				Name:   "stats",
				Usage:  "show counts per status",
				Action: statsAction,
			},
			{
				Name:      "letter",
				Usage:     "draft a cover letter for an application",
				ArgsUsage: "<id>",
				Action:    letterAction,
			},
			{
				Name:  "shell",
				Usage: "interactive board with periodic refresh",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "refresh",
						Usage: "board refresh interval, 0 disables it",
						Value: 30 * time.Second,
					},
				},
				Action: shellAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
