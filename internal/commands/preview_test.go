package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-importer/internal/domain/import/handler"
	"github.com/FACorreiaa/statement-importer/pkg/pdftext"
)

type stubSource struct {
	pages []string
	err   error
}

func (s stubSource) Extract(context.Context, io.ReaderAt, int64) ([]string, error) {
	return s.pages, s.err
}

const statementText = "CIBC Chequing\nJAN 05  COFFEE  -4.50\nJAN 02 2024  PAYROLL  +1,500.00\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, source pdftext.Source, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(env{source: source, logger: slog.New(slog.DiscardHandler)})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDetect(t *testing.T) {
	pdf := writeFile(t, "s.pdf", "%PDF-1.4 stub")

	out, err := run(t, stubSource{pages: []string{"Welcome to TD Canada Trust"}}, "detect", pdf)
	require.NoError(t, err)
	assert.Equal(t, "TD\n", out)

	txt := writeFile(t, "s.txt", "Royal Bank RBC statement")
	out, err = run(t, stubSource{}, "detect", "--text", txt)
	require.NoError(t, err)
	assert.Equal(t, "RBC\n", out)
}

func TestDetect_Errors(t *testing.T) {
	_, err := run(t, stubSource{}, "detect")
	assert.Error(t, err, "file argument is required")

	_, err = run(t, stubSource{}, "detect", filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	pdf := writeFile(t, "locked.pdf", "%PDF-1.4 stub")
	_, err = run(t, stubSource{err: pdftext.ErrEncrypted}, "detect", pdf)
	assert.ErrorIs(t, err, pdftext.ErrEncrypted)
}

func TestPreview_Table(t *testing.T) {
	pdf := writeFile(t, "s.pdf", "%PDF-1.4 stub")

	out, err := run(t, stubSource{pages: []string{statementText}}, "preview", "--year", "2024", pdf)
	require.NoError(t, err)

	assert.Contains(t, out, "Bank detected: CIBC")
	assert.Contains(t, out, "Transactions: 2 (duplicates: 0, malformed lines skipped: 0)")
	assert.Regexp(t, `2024-01-02\s+Income\s+1500.00\s+PAYROLL`, out)
	assert.Regexp(t, `2024-01-05\s+Expense\s+4.50\s+COFFEE`, out)
	assert.Less(t, bytes.Index([]byte(out), []byte("PAYROLL")), bytes.Index([]byte(out), []byte("COFFEE")))
}

func TestPreview_JSON(t *testing.T) {
	txt := writeFile(t, "s.txt", statementText)

	out, err := run(t, stubSource{}, "preview", "--text", "--json", "--year", "2023", txt)
	require.NoError(t, err)

	var resp handler.PreviewResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "CIBC", resp.BankDetected)
	require.Len(t, resp.Transactions, 2)
	assert.Equal(t, "2023-01-05", resp.Transactions[0].Date, "yearless date takes --year")
	assert.Equal(t, "COFFEE", resp.Transactions[0].Description)
	assert.Equal(t, "2024-01-02", resp.Transactions[1].Date)
}

func TestPreview_NoTransactions(t *testing.T) {
	txt := writeFile(t, "s.txt", "Scotiabank\nno activity")

	out, err := run(t, stubSource{}, "preview", "--text", "--json", txt)
	require.Error(t, err)

	var resp handler.PreviewResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "Scotiabank", resp.BankDetected)
	assert.Contains(t, resp.Error, "Scotiabank")
}

func TestPreview_InvalidYear(t *testing.T) {
	txt := writeFile(t, "s.txt", statementText)
	_, err := run(t, stubSource{}, "preview", "--text", "--year", "25", txt)
	assert.ErrorContains(t, err, "four-digit year")
}
