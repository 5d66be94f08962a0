package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-importer/internal/domain/import/fingerprint"
	"github.com/FACorreiaa/statement-importer/internal/domain/import/normalizer"
	importservice "github.com/FACorreiaa/statement-importer/internal/domain/import/service"
	"github.com/FACorreiaa/statement-importer/pkg/pdftext"
)

// DefaultMaxUploadBytes caps statement uploads when no limit is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

// ImportService is the part of the import service used by the handler
type ImportService interface {
	Preview(ctx context.Context, budgetSpaceID uuid.UUID, r io.ReaderAt, size int64) (*importservice.ImportPreview, error)
	Confirm(ctx context.Context, req importservice.ConfirmRequest) (*importservice.ImportOutcome, error)
}

var _ ImportService = (*importservice.ImportService)(nil)

// ImportHandler serves the PDF statement preview and confirm endpoints
type ImportHandler struct {
	importSvc      ImportService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importSvc ImportService, maxUploadBytes int64, logger *slog.Logger) *ImportHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &ImportHandler{
		importSvc:      importSvc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Routes mounts the import endpoints
func (h *ImportHandler) Routes(r chi.Router) {
	r.Route("/budget-spaces/{budgetSpaceID}/imports/pdf", func(r chi.Router) {
		r.Post("/preview", h.Preview)
		r.Post("/confirm", h.Confirm)
	})
}

// TransactionDTO is a preview row on the wire. Amount is the unsigned
// magnitude with two decimals.
type TransactionDTO struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Type        string      `json:"type"`
	IsDuplicate bool        `json:"isDuplicate"`
	Fingerprint string      `json:"fingerprint"`
}

// PreviewResponse is returned by the preview endpoint
type PreviewResponse struct {
	BankDetected       string           `json:"bankDetected"`
	TotalTransactions  int              `json:"totalTransactions"`
	DuplicatesDetected int              `json:"duplicatesDetected"`
	MalformedSkipped   int              `json:"malformedSkipped"`
	Transactions       []TransactionDTO `json:"transactions"`
	Error              string           `json:"error,omitempty"`
}

// ConfirmRequest is the body of the confirm endpoint
type ConfirmRequest struct {
	CategoryID       *uuid.UUID       `json:"categoryId,omitempty"`
	ImportDuplicates bool             `json:"importDuplicates"`
	Transactions     []TransactionDTO `json:"transactions"`
}

// ConfirmResponse is returned by the confirm endpoint
type ConfirmResponse struct {
	ImportedCount  int         `json:"importedCount"`
	SkippedCount   int         `json:"skippedCount"`
	TransactionIDs []uuid.UUID `json:"transactionIds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// confirmErrorResponse is returned when a confirm fails after some
// transactions were already saved.
type confirmErrorResponse struct {
	Error string `json:"error"`
	ConfirmResponse
}

// Preview accepts a multipart upload in the "file" field and returns the
// parsed transactions with duplicate flags.
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	budgetSpaceID, ok := h.budgetSpaceID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	file, _, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusBadRequest, "File is too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Could not read the uploaded file")
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("File is too large (limit %d bytes)", h.maxUploadBytes))
		return
	}
	if len(data) == 0 {
		h.writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	if !pdftext.IsPDF(data) {
		h.writeError(w, http.StatusBadRequest, "Only PDF files are supported")
		return
	}

	preview, err := h.importSvc.Preview(r.Context(), budgetSpaceID, bytes.NewReader(data), int64(len(data)))
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, NewPreviewResponse(preview))
	case errors.Is(err, importservice.ErrNoTransactionsFound):
		resp := NewPreviewResponse(preview)
		resp.Error = fmt.Sprintf("No transactions found in the PDF. Bank detected: %s. This format may not be supported yet.", resp.BankDetected)
		h.writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, importservice.ErrUnreadableInput):
		h.logger.Warn("unreadable statement upload",
			slog.String("budget_space_id", budgetSpaceID.String()),
			slog.Any("error", err),
		)
		h.writeError(w, http.StatusBadRequest, unreadableMessage(err))
	default:
		h.logger.Error("failed to preview statement",
			slog.String("budget_space_id", budgetSpaceID.String()),
			slog.Any("error", err),
		)
		h.writeError(w, http.StatusInternalServerError, "Failed to process the statement")
	}
}

// Confirm imports the submitted preview rows.
func (h *ImportHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	budgetSpaceID, ok := h.budgetSpaceID(w, r)
	if !ok {
		return
	}

	var body ConfirmRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	if err := dec.Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	items := make([]importservice.ImportPreviewItem, 0, len(body.Transactions))
	for i, dto := range body.Transactions {
		item, err := fromDTO(dto)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("transactions[%d]: %v", i, err))
			return
		}
		items = append(items, item)
	}

	outcome, err := h.importSvc.Confirm(r.Context(), importservice.ConfirmRequest{
		BudgetSpaceID:    budgetSpaceID,
		CategoryID:       body.CategoryID,
		ImportDuplicates: body.ImportDuplicates,
		Transactions:     items,
	})
	if err != nil {
		if errors.Is(err, importservice.ErrInvalidItem) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to confirm import",
			slog.String("budget_space_id", budgetSpaceID.String()),
			slog.Any("error", err),
		)
		if outcome == nil || outcome.ImportedCount == 0 {
			h.writeError(w, http.StatusInternalServerError, "Failed to import transactions")
			return
		}
		// Rows before the failure stay committed.
		h.writeJSON(w, http.StatusInternalServerError, confirmErrorResponse{
			Error:           fmt.Sprintf("Failed to import transactions after %d were saved", outcome.ImportedCount),
			ConfirmResponse: newConfirmResponse(outcome),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, newConfirmResponse(outcome))
}

func newConfirmResponse(o *importservice.ImportOutcome) ConfirmResponse {
	return ConfirmResponse{
		ImportedCount:  o.ImportedCount,
		SkippedCount:   o.SkippedCount,
		TransactionIDs: o.TransactionIDs,
	}
}

func (h *ImportHandler) budgetSpaceID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "budgetSpaceID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid budget space id")
		return uuid.Nil, false
	}
	return id, true
}

func unreadableMessage(err error) string {
	switch {
	case errors.Is(err, pdftext.ErrEncrypted):
		return "PDF is password-protected. Please remove the password and try again."
	case errors.Is(err, pdftext.ErrNotPDF):
		return "Only PDF files are supported"
	case errors.Is(err, pdftext.ErrEmpty):
		return "No file uploaded"
	default:
		return "Could not read the PDF file"
	}
}

// NewPreviewResponse converts a service preview to its wire form.
func NewPreviewResponse(p *importservice.ImportPreview) PreviewResponse {
	resp := PreviewResponse{Transactions: []TransactionDTO{}}
	if p == nil {
		return resp
	}
	resp.BankDetected = string(p.BankDetected)
	resp.TotalTransactions = p.TotalTransactions
	resp.DuplicatesDetected = p.DuplicatesDetected
	resp.MalformedSkipped = p.MalformedSkipped
	for _, item := range p.Transactions {
		resp.Transactions = append(resp.Transactions, TransactionDTO{
			Date:        item.Date.Format(fingerprint.DateLayout),
			Description: item.Description,
			Amount:      json.Number(item.Amount.StringFixed(2)),
			Type:        string(item.Type),
			IsDuplicate: item.IsDuplicate,
			Fingerprint: item.Fingerprint,
		})
	}
	return resp
}

func fromDTO(dto TransactionDTO) (importservice.ImportPreviewItem, error) {
	date, err := time.Parse(fingerprint.DateLayout, dto.Date)
	if err != nil {
		return importservice.ImportPreviewItem{}, fmt.Errorf("invalid date %q", dto.Date)
	}
	amount, err := decimal.NewFromString(dto.Amount.String())
	if err != nil {
		return importservice.ImportPreviewItem{}, fmt.Errorf("invalid amount %q", dto.Amount)
	}
	return importservice.ImportPreviewItem{
		Date:        date,
		Description: dto.Description,
		Amount:      amount,
		Type:        normalizer.TransactionType(dto.Type),
		IsDuplicate: dto.IsDuplicate,
		Fingerprint: dto.Fingerprint,
	}, nil
}

func (h *ImportHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (h *ImportHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}
