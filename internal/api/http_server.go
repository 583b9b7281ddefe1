package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"loadboard/internal/config"
	"loadboard/internal/export"
	"loadboard/internal/metrics"
	"loadboard/internal/service"
)

// HTTPServer exposes the load board over HTTP. Client apps authenticate with
// an API key; the acting user arrives in identity headers set by the caller.
type HTTPServer struct {
	cfg        config.APIConfig
	loads      *service.LoadService
	quotes     *service.QuoteService
	settlement *service.SettlementService
	exporter   *export.Exporter
	server     *http.Server
	auth       *HTTPAuth
}

func NewHTTPServer(
	cfg config.APIConfig,
	loads *service.LoadService,
	quotes *service.QuoteService,
	settlement *service.SettlementService,
	exporter *export.Exporter,
) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:        cfg,
		loads:      loads,
		quotes:     quotes,
		settlement: settlement,
		exporter:   exporter,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/loads/export", srv.handleExportRoute)
	mux.HandleFunc("/api/v1/loads/", srv.handleLoadSubtree)
	mux.HandleFunc("/api/v1/loads", srv.handleLoadsCollection)
	mux.HandleFunc("/api/v1/quotes/", srv.handleQuoteSubtree)
	mux.HandleFunc("/api/v1/payments/booking/confirm", srv.handleBookingConfirm)
	mux.HandleFunc("/api/v1/payments/final/confirm", srv.handleFinalConfirm)

	handler := loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the full middleware chain, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	log.Printf("HTTP API listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleExportRoute serves /api/v1/loads/export.
func (s *HTTPServer) handleExportRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("export_loads")
	s.handleExport(w, r)
}

// handleLoadsCollection serves /api/v1/loads.
func (s *HTTPServer) handleLoadsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		metrics.IncHTTP("post_load")
		s.handlePostLoad(w, r)
	case http.MethodGet:
		metrics.IncHTTP("list_loads")
		s.handleListLoads(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleLoadSubtree serves /api/v1/loads/{id} and its subresources.
func (s *HTTPServer) handleLoadSubtree(w http.ResponseWriter, r *http.Request) {
	id, rest, err := splitResourcePath(r.URL.Path, "/api/v1/loads/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid load id")
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		metrics.IncHTTP("get_load")
		s.handleGetLoad(w, r, id)
	case rest == "history" && r.Method == http.MethodGet:
		metrics.IncHTTP("load_history")
		s.handleLoadHistory(w, r, id)
	case rest == "status" && r.Method == http.MethodPost:
		metrics.IncHTTP("load_status")
		s.handleLoadStatus(w, r, id)
	case rest == "cancel" && r.Method == http.MethodPost:
		metrics.IncHTTP("load_cancel")
		s.handleLoadCancel(w, r, id)
	case rest == "quotes" && r.Method == http.MethodGet:
		metrics.IncHTTP("list_quotes")
		s.handleListQuotes(w, r, id)
	case rest == "quotes" && r.Method == http.MethodPost:
		metrics.IncHTTP("submit_quote")
		s.handleSubmitQuote(w, r, id)
	case rest == "final-payment" && r.Method == http.MethodPost:
		metrics.IncHTTP("final_payment")
		s.handleFinalPayment(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleQuoteSubtree serves /api/v1/quotes/{id} and its actions.
func (s *HTTPServer) handleQuoteSubtree(w http.ResponseWriter, r *http.Request) {
	id, rest, err := splitResourcePath(r.URL.Path, "/api/v1/quotes/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quote id")
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		metrics.IncHTTP("get_quote")
		s.handleGetQuote(w, r, id)
	case rest == "accept" && r.Method == http.MethodPost:
		metrics.IncHTTP("accept_quote")
		s.handleQuoteDecision(w, r, id, "accept")
	case rest == "reject" && r.Method == http.MethodPost:
		metrics.IncHTTP("reject_quote")
		s.handleQuoteDecision(w, r, id, "reject")
	case rest == "withdraw" && r.Method == http.MethodPost:
		metrics.IncHTTP("withdraw_quote")
		s.handleQuoteDecision(w, r, id, "withdraw")
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// splitResourcePath extracts the numeric id and trailing subresource from a
// path like /api/v1/loads/42/status.
func splitResourcePath(path, prefix string) (int64, string, error) {
	trimmed := strings.TrimPrefix(path, prefix)
	idPart := trimmed
	rest := ""
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		idPart = trimmed[:idx]
		rest = strings.Trim(trimmed[idx+1:], "/")
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("invalid id: %q", idPart)
	}
	return id, rest, nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)
		log.Printf("http method=%s path=%s status=%d dur=%s", r.Method, r.URL.Path, recorder.status, dur)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
