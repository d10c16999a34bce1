// slackdisk keeps a small hidden filesystem in the slack space of host files.
//
// Every invocation loads the tree from the root chain, applies one command
// and, for mutating commands, saves it back. Slack is accessed through the
// bmap tool, which normally needs root privileges.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/absfs/absfs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/absfs/slackfs"
)

func main() {
	a := &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
		host:   slackfs.NewOSFileSystem("/"),
	}
	if err := a.run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries everything a command touches so tests can swap the host
// filesystem and slot accessor.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	host        absfs.FileSystem
	newAccessor func(cfg *slackfs.Config, log logrus.FieldLogger) slackfs.SlotAccessor

	config      *slackfs.Config
	emulate     bool
	password    string
	newPassword string
	log         *logrus.Logger
	store       *slackfs.Store
}

func (a *app) run(args []string) error {
	var (
		configPath  string
		verbose     bool
		emulate     bool
		password    string
		newPassword string
	)

	flagSet := pflag.NewFlagSet("slackdisk", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	flagSet.StringVarP(&configPath, "config", "c", "", "YAML config file (default: legacy settings)")
	flagSet.StringVarP(&password, "password", "p", "", "store password (default: $SLACKDISK_PASSWORD)")
	flagSet.StringVar(&newPassword, "new-password", "", "new password for rekey (default: $SLACKDISK_NEW_PASSWORD)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	flagSet.BoolVar(&emulate, "emulate", false, "emulate slack with block_size from the config instead of running bmap (nothing persists)")
	flagSet.Usage = func() { a.printHelp(flagSet) }
	flagSet.SetInterspersed(false)

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		a.printHelp(flagSet)
		return fmt.Errorf("no command given")
	}

	a.log = logrus.New()
	a.log.SetOutput(a.stderr)
	a.log.SetLevel(logrus.WarnLevel)
	if verbose || a.getenv("SLACKDISK_DEBUG") != "" {
		a.log.SetLevel(logrus.DebugLevel)
	}

	if password == "" {
		password = a.getenv("SLACKDISK_PASSWORD")
	}
	if newPassword == "" {
		newPassword = a.getenv("SLACKDISK_NEW_PASSWORD")
	}
	a.password = password
	a.newPassword = newPassword
	a.emulate = emulate

	name, cmdArgs := rest[0], rest[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (see --help)", name)
	}
	if len(cmdArgs) < cmd.minArgs || (cmd.maxArgs >= 0 && len(cmdArgs) > cmd.maxArgs) {
		return fmt.Errorf("usage: slackdisk %s %s", name, cmd.usage)
	}

	if name != "genconfig" {
		cfg, err := slackfs.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg.Logger = a.log
		a.config = cfg
	}
	return cmd.run(a, cmdArgs)
}

func (a *app) printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(a.stderr, "Usage: slackdisk [flags] <command> [args]\n\nCommands:\n")
	for _, name := range commandOrder {
		cmd := commands[name]
		fmt.Fprintf(a.stderr, "  %-12s %-22s %s\n", name, cmd.usage, cmd.help)
	}
	fmt.Fprintf(a.stderr, "\nFlags:\n%s", flagSet.FlagUsages())
}
