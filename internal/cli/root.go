// Package cli implements the ourledger command line: the server and a
// client command per record type.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/S0me0neR0man/ourledger/internal/config"
	"github.com/S0me0neR0man/ourledger/internal/objects"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Addr    string
	Token   string

	dialOptions []grpc.DialOption
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ourledger",
		Short: "ourledger - a persistent record store for expenses and votes",
		Long: `ourledger stores expenses and votes durably and serves them over gRPC.

Run "ourledger serve" to start the server, then use the expense and vote
commands to create, read, update, delete and query records.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", config.DefaultListen, "server address")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "bearer token sent to the server")

	cmd.AddCommand(NewServeCommand(opts))
	for _, d := range objects.Descriptors() {
		cmd.AddCommand(NewRecordsCommand(opts, d))
	}

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
