package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-importer/internal/buildinfo"
	"github.com/FACorreiaa/statement-importer/pkg/pdftext"
)

// env holds the collaborators shared by subcommands.
type env struct {
	source pdftext.Source
	logger *slog.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return newRootCommand(env{source: pdftext.NewExtractor(), logger: logger})
}

func newRootCommand(e env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "statement",
		Short:   "Inspect and preview PDF bank statements offline",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newDetectCommand(e))
	rootCmd.AddCommand(newPreviewCommand(e))

	return rootCmd
}
