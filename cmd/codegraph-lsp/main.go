// Command codegraph-lsp drives the facade's synchronous adapter from the
// shell, the way the teacher's main.go drives its MCP server from a config
// file — but exercising the hard-core operation surface directly instead
// of wrapping it in the MCP tool protocol, which is out of scope here.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/isaacphi/codegraph-lsp/internal/config"
	"github.com/isaacphi/codegraph-lsp/internal/facade"
	"github.com/isaacphi/codegraph-lsp/internal/logging"
)

var (
	configPath string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:   "codegraph-lsp",
		Short: "Language-agnostic code-intelligence client over LSP",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "codegraph-lsp.toml", "path to the TOML configuration file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "log at DEBUG level, including raw LSP traffic")

	root.AddCommand(
		newDocumentSymbolsCmd(),
		newDefinitionCmd(),
		newReferencesCmd(),
		newReferencingSymbolsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadSync(ctx context.Context) (*facade.Sync, logging.Sink, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	level := logging.Info
	if debug {
		level = logging.Debug
		cfg.TraceLspCommunication = true
	}
	logger := logging.New(os.Stderr, level)

	sf, err := facade.NewSync(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := sf.Start(ctx); err != nil {
		return nil, nil, err
	}
	return sf, logger, nil
}

func withCancelOnSignal(ctx context.Context) (context.Context, context.CancelFunc) {
	cctx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-cctx.Done():
		}
	}()
	return cctx, cancel
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newDocumentSymbolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "document-symbols <path>",
		Short: "Print the normalized document symbols of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withCancelOnSignal(cmd.Context())
			defer cancel()
			sf, _, err := loadSync(ctx)
			if err != nil {
				return err
			}
			defer sf.Stop(context.Background())

			symbols, _, err := sf.DocumentSymbols(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(symbols)
		},
	}
}

func newDefinitionCmd() *cobra.Command {
	var line, col int
	cmd := &cobra.Command{
		Use:   "definition <path>",
		Short: "Print the definition location(s) at a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withCancelOnSignal(cmd.Context())
			defer cancel()
			sf, _, err := loadSync(ctx)
			if err != nil {
				return err
			}
			defer sf.Stop(context.Background())

			locs, err := sf.Definition(ctx, args[0], line, col)
			if err != nil {
				return err
			}
			return printJSON(locs)
		},
	}
	cmd.Flags().IntVar(&line, "line", 0, "0-indexed line")
	cmd.Flags().IntVar(&col, "col", 0, "0-indexed column (UTF-16 code units)")
	return cmd
}

func newReferencesCmd() *cobra.Command {
	var line, col int
	cmd := &cobra.Command{
		Use:   "references <path>",
		Short: "Print the reference locations at a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withCancelOnSignal(cmd.Context())
			defer cancel()
			sf, _, err := loadSync(ctx)
			if err != nil {
				return err
			}
			defer sf.Stop(context.Background())

			locs, err := sf.References(ctx, args[0], line, col)
			if err != nil {
				return err
			}
			return printJSON(locs)
		},
	}
	cmd.Flags().IntVar(&line, "line", 0, "0-indexed line")
	cmd.Flags().IntVar(&col, "col", 0, "0-indexed column (UTF-16 code units)")
	return cmd
}

func newReferencingSymbolsCmd() *cobra.Command {
	var line, col int
	var includeImports, includeSelf bool
	cmd := &cobra.Command{
		Use:   "referencing-symbols <path>",
		Short: "Print the symbols that reference the symbol at a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withCancelOnSignal(cmd.Context())
			defer cancel()
			sf, _, err := loadSync(ctx)
			if err != nil {
				return err
			}
			defer sf.Stop(context.Background())

			syms, err := sf.ReferencingSymbols(ctx, args[0], line, col, includeImports, includeSelf)
			if err != nil {
				return err
			}
			return printJSON(syms)
		},
	}
	cmd.Flags().IntVar(&line, "line", 0, "0-indexed line")
	cmd.Flags().IntVar(&col, "col", 0, "0-indexed column (UTF-16 code units)")
	cmd.Flags().BoolVar(&includeImports, "include-imports", false, "include import sites as references")
	cmd.Flags().BoolVar(&includeSelf, "include-self", false, "include the query symbol itself if referenced at its own definition")
	return cmd
}
