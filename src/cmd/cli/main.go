// Command assistant-cli delegates highlight, guidance, and reply commands to
// the resident screen-assistant process over its loopback port.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screen-assistant/src/config"
	"screen-assistant/src/singleinstance"
)

type cliOptions struct {
	verbose bool
	timeout time.Duration
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(os.Args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "assistant-cli",
		Short:         "Control the resident screen assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !opts.verbose {
				log.SetOutput(io.Discard)
			} else {
				log.SetOutput(os.Stderr)
			}
			// Load .env so SCREEN_ASSISTANT_PORT_* are applied before
			// the delegation scan.
			_, _ = config.Load()
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "Delegation timeout")

	root.AddCommand(
		newDelegateCmd(opts, "highlight <target phrase>", "Highlight a UI element on screen", singleinstance.CmdHighlight, true),
		newDelegateCmd(opts, "guide <goal>", "Start guided navigation toward a goal", singleinstance.CmdGuide, true),
		newDelegateCmd(opts, "reply <text>", "Pick a listed candidate by id, advance with \"next\", or cancel", singleinstance.CmdReply, true),
		newDelegateCmd(opts, "stop", "Stop guidance and clear the overlay", singleinstance.CmdStop, false),
	)
	return root
}

func newDelegateCmd(opts *cliOptions, use, short, command string, needsArg bool) *cobra.Command {
	argCheck := cobra.NoArgs
	if needsArg {
		argCheck = cobra.MinimumNArgs(1)
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  argCheck,
		RunE: func(cmd *cobra.Command, args []string) error {
			return delegate(opts, command, strings.Join(args, " "))
		},
	}
}

func delegate(opts *cliOptions, command, argument string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	client := singleinstance.NewClient()
	delegated, text, err := client.Delegate(ctx, command, argument)
	if err != nil {
		return err
	}
	if !delegated {
		return fmt.Errorf("no resident assistant found; start screen-assistant first")
	}
	if text != "" {
		fmt.Println(text)
	}
	return nil
}
