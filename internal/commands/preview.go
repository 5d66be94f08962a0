package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-importer/internal/domain/import/fingerprint"
	"github.com/FACorreiaa/statement-importer/internal/domain/import/handler"
	"github.com/FACorreiaa/statement-importer/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/statement-importer/internal/domain/import/service"
	"github.com/FACorreiaa/statement-importer/internal/domain/import/sniffer"
	"github.com/FACorreiaa/statement-importer/pkg/pdftext"
)

func newDetectCommand(e env) *cobra.Command {
	var asText bool

	cmd := &cobra.Command{
		Use:   "detect <statement.pdf>",
		Short: "Print the bank profile detected for a statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readStatementText(cmd.Context(), e.source, args[0], asText)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sniffer.Detect(text))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asText, "text", false, "treat the input as already extracted plain text")

	return cmd
}

func newPreviewCommand(e env) *cobra.Command {
	var (
		year   int
		asJSON bool
		asText bool
	)

	cmd := &cobra.Command{
		Use:   "preview <statement.pdf>",
		Short: "Parse a statement and print the transactions it contains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if year != 0 && (year < 1900 || year > 9999) {
				return fmt.Errorf("--year must be a four-digit year, got %d", year)
			}
			return runPreview(cmd.Context(), cmd.OutOrStdout(), e, args[0], year, asJSON, asText)
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year for dates printed without one (default: current year)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the preview as JSON")
	cmd.Flags().BoolVar(&asText, "text", false, "treat the input as already extracted plain text")

	return cmd
}

func runPreview(ctx context.Context, out io.Writer, e env, path string, year int, asJSON, asText bool) error {
	config := parser.DefaultConfig()
	config.Logger = e.logger
	if year != 0 {
		config.Now = func() time.Time { return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC) }
	}
	svc := importservice.NewImportService(nil, e.source, e.logger).WithParser(parser.NewParser(config))

	var (
		preview *importservice.ImportPreview
		err     error
	)
	if asText {
		text, rerr := readStatementText(ctx, e.source, path, true)
		if rerr != nil {
			return rerr
		}
		preview, err = svc.PreviewText(ctx, uuid.Nil, text)
	} else {
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return fmt.Errorf("reading %s: %w", path, rerr)
		}
		preview, err = svc.Preview(ctx, uuid.Nil, bytes.NewReader(data), int64(len(data)))
	}
	if err != nil && !errors.Is(err, importservice.ErrNoTransactionsFound) {
		return err
	}

	if asJSON {
		resp := handler.NewPreviewResponse(preview)
		if err != nil {
			resp.Error = err.Error()
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(resp); encErr != nil {
			return encErr
		}
		return err
	}

	printPreview(out, preview)
	return err
}

func printPreview(out io.Writer, p *importservice.ImportPreview) {
	fmt.Fprintf(out, "Bank detected: %s\n", p.BankDetected)
	fmt.Fprintf(out, "Transactions: %d (duplicates: %d, malformed lines skipped: %d)\n",
		p.TotalTransactions, p.DuplicatesDetected, p.MalformedSkipped)
	if len(p.Transactions) == 0 {
		return
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tDESCRIPTION")
	for _, item := range p.Transactions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			item.Date.Format(fingerprint.DateLayout), item.Type, item.Amount.StringFixed(2), item.Description)
	}
	tw.Flush()
}

// readStatementText returns the statement text, extracting it from the PDF
// unless asText is set.
func readStatementText(ctx context.Context, source pdftext.Source, path string, asText bool) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if asText {
		return string(data), nil
	}

	pages, err := source.Extract(ctx, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return pdftext.JoinPages(pages), nil
}
