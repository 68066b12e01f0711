package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmauro/triago/internal/config"
	"github.com/dmauro/triago/internal/pipeline"
	"github.com/dmauro/triago/internal/protocol"
	"github.com/dmauro/triago/internal/session"
	"github.com/dmauro/triago/internal/store"
	"github.com/dmauro/triago/internal/triage"
)

type fakeService struct {
	sessions map[string]*session.Session
	ended    []string
	messages int
	endAfter int
}

func newFakeService() *fakeService {
	return &fakeService{sessions: make(map[string]*session.Session)}
}

func (f *fakeService) StartSession(_ context.Context, req session.CreateRequest) (session.CreateResponse, error) {
	s := &session.Session{
		ID:        "sess-1",
		Status:    session.StatusActive,
		CreatedAt: time.Now().UTC(),
		Patient:   session.PatientContext{Age: req.Age, Sex: req.Sex},
	}
	f.sessions[s.ID] = s
	return session.CreateResponse{
		SessionID: s.ID,
		Status:    s.Status,
		Message:   "Session started. Please describe your symptoms.",
		MaxTurns:  20,
		CreatedAt: s.CreatedAt,
	}, nil
}

func (f *fakeService) ProcessMessage(_ context.Context, sessionID string, req pipeline.MessageRequest) (pipeline.MessageResponse, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return pipeline.MessageResponse{}, session.ErrNotFound
	}
	if s.Status == session.StatusCompleted {
		return pipeline.MessageResponse{}, session.ErrCompleted
	}
	f.messages++
	urgency := triage.Low
	if strings.Contains(req.Message, "chest pain") {
		urgency = triage.Emergency
	}
	return pipeline.MessageResponse{
		SessionID:    sessionID,
		TurnNumber:   f.messages,
		Assessment:   triage.Assessment{Urgency: urgency, Disclaimer: triage.DefaultDisclaimer},
		Confidence:   0.6,
		SessionEnded: f.endAfter > 0 && f.messages >= f.endAfter,
	}, nil
}

func (f *fakeService) EndSession(_ context.Context, sessionID string) (session.Summary, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return session.Summary{}, session.ErrNotFound
	}
	s.Status = session.StatusCompleted
	f.ended = append(f.ended, sessionID)
	return session.Summary{
		SessionID:  sessionID,
		TotalTurns: f.messages,
		Status:     session.StatusCompleted,
	}, nil
}

func (f *fakeService) Session(sessionID string) (*session.Session, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s, nil
}

func (f *fakeService) History(_ context.Context, sessionID string) (store.SessionRecord, []store.TurnRecord, error) {
	if _, ok := f.sessions[sessionID]; !ok {
		return store.SessionRecord{}, nil, store.ErrSessionNotFound
	}
	return store.SessionRecord{ID: sessionID, Status: "active"}, []store.TurnRecord{
		{SessionID: sessionID, TurnNumber: 1, UserMessage: "headache", Urgency: "low"},
	}, nil
}

func newTestServer(svc TriageService) *Server {
	cfg := config.Config{AllowAnyOrigin: true, LLMProvider: "mock"}
	return New(cfg, svc, nil, nil)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(newFakeService())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, resp.StatusCode)
		}
	}
}

func TestStartSessionEndpoint(t *testing.T) {
	srv := newTestServer(newFakeService())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := bytes.NewBufferString(`{"age":42,"sex":"male"}`)
	resp, err := http.Post(ts.URL+"/v1/triage/start", "application/json", body)
	if err != nil {
		t.Fatalf("POST /v1/triage/start error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var created session.CreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.SessionID == "" || created.Status != session.StatusActive {
		t.Fatalf("response = %+v", created)
	}
}

func TestStartSessionRejectsBadAge(t *testing.T) {
	srv := newTestServer(newFakeService())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/triage/start", "application/json", bytes.NewBufferString(`{"age":200}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMessageEndpoint(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(svc)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	if _, err := svc.StartSession(context.Background(), session.CreateRequest{}); err != nil {
		t.Fatal(err)
	}

	body := bytes.NewBufferString(`{"session_id":"sess-1","message":"crushing chest pain","severity":9}`)
	resp, err := http.Post(ts.URL+"/v1/triage/message", "application/json", body)
	if err != nil {
		t.Fatalf("POST /v1/triage/message error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var mr pipeline.MessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if mr.Assessment.Urgency != triage.Emergency {
		t.Fatalf("urgency = %q, want emergency", mr.Assessment.Urgency)
	}
}

func TestMessageEndpointValidation(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(svc)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing session", `{"message":"hi"}`, http.StatusBadRequest},
		{"missing message", `{"session_id":"sess-1"}`, http.StatusBadRequest},
		{"severity out of range", `{"session_id":"sess-1","message":"hi","severity":12}`, http.StatusBadRequest},
		{"unknown session", `{"session_id":"nope","message":"hi"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/v1/triage/message", "application/json", bytes.NewBufferString(tt.body))
			if err != nil {
				t.Fatalf("POST error = %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestEndSessionEndpointAndConflict(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(svc)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	if _, err := svc.StartSession(context.Background(), session.CreateRequest{}); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(ts.URL+"/v1/triage/session/sess-1/end", "application/json", nil)
	if err != nil {
		t.Fatalf("POST end error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d, want 200", resp.StatusCode)
	}

	// Messaging a completed session conflicts.
	resp, err = http.Post(ts.URL+"/v1/triage/message", "application/json",
		bytes.NewBufferString(`{"session_id":"sess-1","message":"still here"}`))
	if err != nil {
		t.Fatalf("POST message error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("message-after-end status = %d, want 409", resp.StatusCode)
	}
}

func TestHistoryAndExportEndpoints(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(svc)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	if _, err := svc.StartSession(context.Background(), session.CreateRequest{}); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/v1/history/sess-1")
	if err != nil {
		t.Fatalf("GET history error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d", resp.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/v1/history/sess-1/export?format=text")
	if err != nil {
		t.Fatalf("GET export error = %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp2.StatusCode)
	}
	if ct := resp2.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("export content type = %q", ct)
	}

	resp3, err := http.Get(ts.URL + "/v1/history/sess-1/export?format=xml")
	if err != nil {
		t.Fatalf("GET export error = %v", err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad format status = %d, want 400", resp3.StatusCode)
	}

	resp4, err := http.Get(ts.URL + "/v1/history/missing")
	if err != nil {
		t.Fatalf("GET history error = %v", err)
	}
	resp4.Body.Close()
	if resp4.StatusCode != http.StatusNotFound {
		t.Fatalf("missing history status = %d, want 404", resp4.StatusCode)
	}
}

func TestTriageWebsocketFlow(t *testing.T) {
	svc := newFakeService()
	svc.endAfter = 2
	srv := newTestServer(svc)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	if _, err := svc.StartSession(context.Background(), session.CreateRequest{}); err != nil {
		t.Fatal(err)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/triage/ws?session_id=sess-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(protocol.UserMessage{
		Type:      protocol.TypeUserMessage,
		SessionID: "sess-1",
		Message:   "sore throat since yesterday",
	}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var assessment protocol.AssessmentEvent
	if err := conn.ReadJSON(&assessment); err != nil {
		t.Fatalf("read assessment: %v", err)
	}
	if assessment.Type != protocol.TypeAssessment || assessment.TurnNumber != 1 {
		t.Fatalf("assessment = %+v", assessment)
	}
	if assessment.SessionEnded {
		t.Fatalf("session ended after first turn")
	}

	// Second message hits the configured limit; expect assessment then
	// session_ended event.
	if err := conn.WriteJSON(protocol.UserMessage{
		Type:      protocol.TypeUserMessage,
		SessionID: "sess-1",
		Message:   "it is getting slightly worse",
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&assessment); err != nil {
		t.Fatalf("read assessment: %v", err)
	}
	if !assessment.SessionEnded {
		t.Fatalf("second assessment should mark session ended")
	}

	var ended protocol.SessionEvent
	if err := conn.ReadJSON(&ended); err != nil {
		t.Fatalf("read session event: %v", err)
	}
	if ended.Code != "session_ended" || ended.Summary == nil {
		t.Fatalf("session event = %+v", ended)
	}
}

func TestTriageWebsocketRejectsUnknownSession(t *testing.T) {
	srv := newTestServer(newFakeService())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/triage/ws?session_id=nope"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("dial succeeded for unknown session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("handshake response = %+v, want 404", resp)
	}
}

func TestTriageWebsocketInvalidFrame(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(svc)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	if _, err := svc.StartSession(context.Background(), session.CreateRequest{}); err != nil {
		t.Fatal(err)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/triage/ws?session_id=sess-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"wat"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var errEvent protocol.ErrorEvent
	if err := conn.ReadJSON(&errEvent); err != nil {
		t.Fatalf("read error event: %v", err)
	}
	if errEvent.Code != "invalid_client_message" {
		t.Fatalf("error code = %q", errEvent.Code)
	}
}
