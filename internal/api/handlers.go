package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"loadboard/internal/database"
	"loadboard/internal/models"
	"loadboard/internal/policy"
	"loadboard/internal/service"
)

const (
	headerUserID   = "X-User-Id"
	headerUserRole = "X-User-Role"
)

// actorFromRequest reads the acting user from identity headers. The upstream
// client is trusted to set them; key auth has already happened.
func actorFromRequest(r *http.Request) (models.Actor, error) {
	rawID := strings.TrimSpace(r.Header.Get(headerUserID))
	role := strings.TrimSpace(r.Header.Get(headerUserRole))
	if rawID == "" || role == "" {
		return models.Actor{}, fmt.Errorf("missing identity headers")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return models.Actor{}, fmt.Errorf("invalid user id")
	}
	if !models.IsValidRole(role) {
		return models.Actor{}, fmt.Errorf("unknown role: %s", role)
	}
	return models.Actor{UserID: id, Role: role}, nil
}

// writeServiceError maps domain errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, database.ErrLoadNotFound),
		errors.Is(err, database.ErrQuoteNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrConcurrentModification),
		errors.Is(err, database.ErrDuplicateQuote),
		errors.Is(err, database.ErrQuoteNotPending),
		errors.Is(err, database.ErrLoadNotQuotable),
		errors.Is(err, database.ErrLoadNotQuoted),
		errors.Is(err, database.ErrPhaseAlreadySettled):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrPaymentVerificationFailed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

type postLoadRequest struct {
	SourceCity      string  `json:"source_city"`
	DestinationCity string  `json:"destination_city"`
	Material        string  `json:"material"`
	WeightMT        float64 `json:"weight_mt"`
	TruckType       string  `json:"truck_type"`
	LoadType        string  `json:"load_type"`
	ScheduledDate   string  `json:"scheduled_date"`
	TrucksRequired  int     `json:"trucks_required"`
	ContactName     string  `json:"contact_name"`
	ContactPhone    string  `json:"contact_phone"`
}

func (s *HTTPServer) handlePostLoad(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var body postLoadRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	scheduled, err := time.Parse("2006-01-02", strings.TrimSpace(body.ScheduledDate))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scheduled_date; expected YYYY-MM-DD")
		return
	}

	draft := models.LoadDraft{
		SourceCity:      strings.TrimSpace(body.SourceCity),
		DestinationCity: strings.TrimSpace(body.DestinationCity),
		Material:        strings.TrimSpace(body.Material),
		WeightMT:        body.WeightMT,
		TruckType:       strings.TrimSpace(body.TruckType),
		LoadType:        strings.TrimSpace(body.LoadType),
		ScheduledDate:   scheduled,
		TrucksRequired:  body.TrucksRequired,
		ContactName:     strings.TrimSpace(body.ContactName),
		ContactPhone:    strings.TrimSpace(body.ContactPhone),
		PostedBy:        actor.UserID,
	}

	result, err := s.loads.PostLoad(r.Context(), actor, draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *HTTPServer) handleListLoads(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	q := r.URL.Query()
	filter := database.LoadFilter{
		Status: strings.TrimSpace(q.Get("status")),
	}
	if v := strings.TrimSpace(q.Get("posted_by")); v != "" {
		filter.PostedBy, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := strings.TrimSpace(q.Get("assigned_to")); v != "" {
		filter.AssignedTo, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	loads, err := s.loads.ListLoads(r.Context(), actor, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loads": loads})
}

func (s *HTTPServer) handleGetLoad(w http.ResponseWriter, r *http.Request, id int64) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	load, err := s.loads.GetLoad(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, load)
}

func (s *HTTPServer) handleLoadHistory(w http.ResponseWriter, r *http.Request, id int64) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	history, err := s.loads.GetStatusHistory(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (s *HTTPServer) handleLoadStatus(w http.ResponseWriter, r *http.Request, id int64) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var body statusRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	load, err := s.loads.TransitionStatus(r.Context(), actor, id, strings.TrimSpace(body.Status), strings.TrimSpace(body.Note))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, load)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (s *HTTPServer) handleLoadCancel(w http.ResponseWriter, r *http.Request, id int64) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var body cancelRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	load, err := s.loads.Cancel(r.Context(), actor, id, strings.TrimSpace(body.Reason))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, load)
}

type submitQuoteRequest struct {
	Amount        int64  `json:"amount"`
	Message       string `json:"message"`
	EstimatedDays int    `json:"estimated_days"`
}

func (s *HTTPServer) handleSubmitQuote(w http.ResponseWriter, r *http.Request, loadID int64) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var body submitQuoteRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	quote := &models.Quote{
		LoadID:        loadID,
		Amount:        body.Amount,
		Message:       strings.TrimSpace(body.Message),
		EstimatedDays: body.EstimatedDays,
	}
	if err := s.quotes.Submit(r.Context(), actor, quote); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quote)
}

func (s *HTTPServer) handleListQuotes(w http.ResponseWriter, r *http.Request, loadID int64) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	quotes, err := s.quotes.ListByLoad(r.Context(), actor, loadID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

func (s *HTTPServer) handleGetQuote(w http.ResponseWriter, r *http.Request, id int64) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	quote, err := s.quotes.GetQuote(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *HTTPServer) handleQuoteDecision(w http.ResponseWriter, r *http.Request, id int64, action string) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	switch action {
	case "accept":
		quote, load, err := s.quotes.Accept(r.Context(), actor, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"quote": quote, "load": load})
	case "reject":
		if err := s.quotes.Reject(r.Context(), actor, id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": models.QuoteStatusRejected})
	case "withdraw":
		if err := s.quotes.Withdraw(r.Context(), actor, id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": models.QuoteStatusWithdrawn})
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleFinalPayment(w http.ResponseWriter, r *http.Request, loadID int64) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	intent, err := s.settlement.InitiateFinalPayment(r.Context(), actor, loadID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

type confirmPaymentRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

func (r confirmPaymentRequest) validate() error {
	if strings.TrimSpace(r.OrderID) == "" || strings.TrimSpace(r.PaymentID) == "" || strings.TrimSpace(r.Signature) == "" {
		return fmt.Errorf("order_id, payment_id and signature are required")
	}
	return nil
}

func (s *HTTPServer) handleBookingConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body confirmPaymentRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := body.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	load, err := s.settlement.ConfirmBookingPayment(r.Context(), body.OrderID, body.PaymentID, body.Signature)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, load)
}

func (s *HTTPServer) handleFinalConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body confirmPaymentRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := body.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	load, err := s.settlement.ConfirmFinalPayment(r.Context(), body.OrderID, body.PaymentID, body.Signature)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, load)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if !policy.Allow(policy.OpExportLoads, actor, policy.RelAny) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "exports are not configured")
		return
	}

	filter := database.LoadFilter{Status: strings.TrimSpace(r.URL.Query().Get("status"))}
	loads, err := s.loads.ListLoads(r.Context(), actor, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	path, err := s.exporter.WriteLoadsWorkbook(loads)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	defer os.Remove(path)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}
