package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/supstonad/be-utbetaling/internal/domain"
	"github.com/supstonad/be-utbetaling/internal/repository"
	"github.com/supstonad/be-utbetaling/internal/service"
)

// HTTPHandler exposes the thin operations surface: the case-management
// application and the scheduler call these endpoints, all decisions live in
// the services.
type HTTPHandler struct {
	disbursements  *service.DisbursementService
	reconciliation *service.ReconciliationService
	validate       *validator.Validate
	log            zerolog.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(disbursements *service.DisbursementService, reconciliation *service.ReconciliationService, log zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		disbursements:  disbursements,
		reconciliation: reconciliation,
		validate:       validator.New(),
		log:            log,
	}
}

// CreateBatchRequest carries a case id and the benefit calculator's dense
// monthly amounts.
type CreateBatchRequest struct {
	CaseID  string                 `json:"case_id" validate:"required"`
	Monthly []MonthlyAmountRequest `json:"monthly" validate:"required,min=1,dive"`
}

type MonthlyAmountRequest struct {
	Month  string `json:"month" validate:"required"`
	Amount int64  `json:"amount" validate:"gte=0"`
}

// CreateBatch derives and persists the next batch for a case.
func (h *HTTPHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	monthly := make([]domain.MonthlyAmount, 0, len(req.Monthly))
	for _, m := range req.Monthly {
		month, err := time.Parse("2006-01", m.Month)
		if err != nil {
			http.Error(w, "invalid month, expected YYYY-MM", http.StatusBadRequest)
			return
		}
		monthly = append(monthly, domain.MonthlyAmount{Month: month, Amount: m.Amount})
	}

	batch, err := h.disbursements.CreateBatch(r.Context(), req.CaseID, monthly)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, batch)
}

// SimulateBatch previews a created batch against the ledger.
func (h *HTTPHandler) SimulateBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	batch, err := h.disbursements.Simulate(r.Context(), req.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, batch)
}

// SendBatch hands a simulated batch to the ledger.
func (h *HTTPHandler) SendBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID        string `json:"id" validate:"required"`
		PayeeID   string `json:"payee_id" validate:"required"`
		HandlerID string `json:"handler_id" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	batch, err := h.disbursements.Send(r.Context(), req.ID, req.PayeeID, req.HandlerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, batch)
}

// RecordKvittering records an acknowledgement delivered out of band.
func (h *HTTPHandler) RecordKvittering(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID      string `json:"id" validate:"required"`
		Outcome string `json:"outcome" validate:"required"`
		Payload string `json:"payload"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	ack := domain.Acknowledgement{
		Outcome:    domain.AckOutcome(req.Outcome),
		RawPayload: req.Payload,
		ReceivedAt: time.Now().UTC(),
	}
	batch, err := h.disbursements.RecordAcknowledgement(r.Context(), req.ID, ack)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, batch)
}

// GetTimeline returns the effective payment schedule for a case.
func (h *HTTPHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	caseID := r.URL.Query().Get("case_id")
	if caseID == "" {
		http.Error(w, "case_id is required", http.StatusBadRequest)
		return
	}

	timeline, err := h.disbursements.Timeline(r.Context(), caseID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	type entry struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount int64  `json:"amount"`
		LineID string `json:"line_id"`
	}
	entries := make([]entry, 0)
	for _, e := range timeline.Entries() {
		entries = append(entries, entry{
			From:   e.Period.From.Format(time.DateOnly),
			To:     e.Period.To.Format(time.DateOnly),
			Amount: e.Amount,
			LineID: e.LineID,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"case_id": caseID, "entries": entries})
}

// RunReconciliation executes one settlement run for a window.
func (h *HTTPHandler) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From string `json:"from" validate:"required"`
		To   string `json:"to" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	from, err := time.Parse(domain.WindowStampLayout, req.From)
	if err != nil {
		http.Error(w, "invalid from, expected yyyyMMddHH", http.StatusBadRequest)
		return
	}
	to, err := time.Parse(domain.WindowStampLayout, req.To)
	if err != nil {
		http.Error(w, "invalid to, expected yyyyMMddHH", http.StatusBadRequest)
		return
	}

	run, err := h.reconciliation.Run(r.Context(), from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

// ListReconciliationRuns returns stored settlement runs, newest window last.
// The since parameter uses the same fixed-width stamp as the run windows.
func (h *HTTPHandler) ListReconciliationRuns(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("since")
	if since == "" {
		http.Error(w, "since is required", http.StatusBadRequest)
		return
	}
	cutoff, err := time.Parse(domain.WindowStampLayout, since)
	if err != nil {
		http.Error(w, "invalid since, expected yyyyMMddHH", http.StatusBadRequest)
		return
	}

	runs, err := h.reconciliation.RunsSince(r.Context(), cutoff)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*repository.ReconciliationRun{}
	}
	h.writeJSON(w, http.StatusOK, runs)
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error().Err(err).Msg("failed to write response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var inconsistency *domain.InconsistencyError
	switch {
	case errors.As(err, &validation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrBatchNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, repository.ErrBatchPending),
		errors.Is(err, domain.ErrIllegalTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &inconsistency):
		h.log.Error().Err(err).Msg("payment history inconsistency")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
