package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/dmauro/triago/internal/config"
	"github.com/dmauro/triago/internal/export"
	"github.com/dmauro/triago/internal/middleware"
	"github.com/dmauro/triago/internal/observability"
	"github.com/dmauro/triago/internal/pipeline"
	"github.com/dmauro/triago/internal/protocol"
	"github.com/dmauro/triago/internal/session"
	"github.com/dmauro/triago/internal/store"
)

// TriageService is the engine surface the HTTP layer depends on.
type TriageService interface {
	StartSession(ctx context.Context, req session.CreateRequest) (session.CreateResponse, error)
	ProcessMessage(ctx context.Context, sessionID string, req pipeline.MessageRequest) (pipeline.MessageResponse, error)
	EndSession(ctx context.Context, sessionID string) (session.Summary, error)
	Session(sessionID string) (*session.Session, error)
	History(ctx context.Context, sessionID string) (store.SessionRecord, []store.TurnRecord, error)
}

type Server struct {
	cfg      config.Config
	engine   TriageService
	limiter  *middleware.RateLimiter
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, engine TriageService, limiter *middleware.RateLimiter, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		engine:  engine,
		limiter: limiter,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections unless explicitly
				// opened up. Non-browser clients omit Origin and pass.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Handler)
		}
		r.Post("/v1/triage/start", s.handleStartSession)
		r.Post("/v1/triage/message", s.handleMessage)
		r.Post("/v1/triage/session/{id}/end", s.handleEndSession)
		r.Get("/v1/triage/session/{id}", s.handleGetSession)
		r.Get("/v1/history/{id}", s.handleHistory)
		r.Get("/v1/history/{id}/export", s.handleExport)
	})

	r.Get("/v1/triage/ws", s.handleTriageWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ready",
		"llm_provider": s.cfg.LLMProvider,
		"persistence":  storeMode(s.cfg.DatabaseURL),
	})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Age != nil && (*req.Age < 0 || *req.Age > 130) {
		respondError(w, http.StatusBadRequest, "invalid_request", "age out of range")
		return
	}

	resp, err := s.engine.StartSession(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

type messageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Duration  string `json:"duration,omitempty"`
	Severity  *int   `json:"severity,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "session_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}
	if req.Severity != nil && (*req.Severity < 1 || *req.Severity > 10) {
		respondError(w, http.StatusBadRequest, "invalid_request", "severity must be between 1 and 10")
		return
	}

	resp, err := s.engine.ProcessMessage(r.Context(), req.SessionID, pipeline.MessageRequest{
		Message:  req.Message,
		Duration: req.Duration,
		Severity: req.Severity,
	})
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	summary, err := s.engine.EndSession(r.Context(), id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.engine.Session(id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, turns, err := s.engine.History(r.Context(), id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, export.Transcript{Session: rec, Turns: turns})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_format", err.Error())
		return
	}

	rec, turns, err := s.engine.History(r.Context(), id)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	data, err := export.Render(format, export.Transcript{Session: rec, Turns: turns})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "export_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="triage_`+id+`.`+string(format)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleTriageWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	if _, err := s.engine.Session(sessionID); err != nil {
		respondSessionError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	send := func(msg any) bool {
		select {
		case <-ctx.Done():
			return false
		case outbound <- msg:
			return true
		}
	}

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			send(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}

		switch msg := parsed.(type) {
		case protocol.UserMessage:
			if msg.SessionID != sessionID {
				send(protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					SessionID: sessionID,
					Code:      "session_mismatch",
					Detail:    "message session_id does not match connection",
				})
				continue
			}
			resp, err := s.engine.ProcessMessage(ctx, sessionID, pipeline.MessageRequest{
				Message:  msg.Message,
				Duration: msg.Duration,
				Severity: msg.Severity,
			})
			if err != nil {
				send(protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					SessionID: sessionID,
					Code:      wsErrorCode(err),
					Retryable: false,
					Detail:    err.Error(),
				})
				if errors.Is(err, session.ErrCompleted) {
					break readLoop
				}
				continue
			}
			send(protocol.AssessmentEvent{
				Type:         protocol.TypeAssessment,
				SessionID:    sessionID,
				TurnNumber:   resp.TurnNumber,
				Assessment:   resp.Assessment,
				Confidence:   resp.Confidence,
				SessionEnded: resp.SessionEnded,
			})
			if resp.SessionEnded {
				summary, endErr := s.engine.EndSession(ctx, sessionID)
				if endErr == nil {
					send(protocol.SessionEvent{
						Type:      protocol.TypeSessionEvent,
						SessionID: sessionID,
						Code:      "session_ended",
						Summary:   &summary,
					})
				}
				break readLoop
			}
		case protocol.ClientControl:
			if msg.Action != "end_session" {
				send(protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					SessionID: sessionID,
					Code:      "unsupported_action",
					Detail:    "unknown control action " + msg.Action,
				})
				continue
			}
			summary, err := s.engine.EndSession(ctx, sessionID)
			if err != nil {
				send(protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					SessionID: sessionID,
					Code:      wsErrorCode(err),
					Detail:    err.Error(),
				})
				continue
			}
			send(protocol.SessionEvent{
				Type:      protocol.TypeSessionEvent,
				SessionID: sessionID,
				Code:      "session_ended",
				Summary:   &summary,
			})
			break readLoop
		}
	}

	cancel()
	close(outbound)
	<-writerDone
	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondSessionError maps session and store sentinels onto HTTP statuses.
func respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, store.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, session.ErrCompleted):
		respondError(w, http.StatusConflict, "session_completed", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusRequestTimeout, "request_cancelled", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func wsErrorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return "session_not_found"
	case errors.Is(err, session.ErrCompleted):
		return "session_completed"
	default:
		return "internal_error"
	}
}

func storeMode(databaseURL string) string {
	if strings.TrimSpace(databaseURL) == "" {
		return "in-memory"
	}
	return "postgres"
}
