package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/dmauro/triago/internal/observability"
	"github.com/dmauro/triago/internal/reasoning"
	"github.com/dmauro/triago/internal/retrieval"
	"github.com/dmauro/triago/internal/session"
	"github.com/dmauro/triago/internal/store"
	"github.com/dmauro/triago/internal/triage"
)

// Analyzer is the reasoning step as the engine sees it.
type Analyzer interface {
	Analyze(ctx context.Context, req reasoning.Request) (reasoning.Result, error)
}

// MessageRequest is one user message within a session.
type MessageRequest struct {
	Message  string `json:"message"`
	Duration string `json:"duration,omitempty"`
	Severity *int   `json:"severity,omitempty"`
}

// MessageResponse is the outcome of one triage cycle.
type MessageResponse struct {
	SessionID    string            `json:"session_id"`
	TurnNumber   int               `json:"turn_number"`
	Assessment   triage.Assessment `json:"assessment"`
	Confidence   float64           `json:"confidence"`
	SessionEnded bool              `json:"session_ended"`
}

// Config carries the engine's tunable policy knobs.
type Config struct {
	EmergencyConfidenceThreshold float64
	RetrievalTopK                int
}

// Engine runs the triage decision pipeline: keyword classification, knowledge
// retrieval, model reasoning, combination, and the session commit. All
// fallible collaborators degrade rather than fail the cycle; only session
// state errors and cancellation surface to the caller.
type Engine struct {
	sessions  *session.Manager
	retriever retrieval.Retriever
	analyzer  Analyzer
	db        store.Store
	metrics   *observability.Metrics
	cfg       Config
}

func NewEngine(sessions *session.Manager, retriever retrieval.Retriever, analyzer Analyzer, db store.Store, metrics *observability.Metrics, cfg Config) *Engine {
	if cfg.EmergencyConfidenceThreshold <= 0 || cfg.EmergencyConfidenceThreshold > 1 {
		cfg.EmergencyConfidenceThreshold = triage.DefaultEmergencyConfidenceThreshold
	}
	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = 5
	}
	onDrop := func(err error) {
		log.Printf("pipeline: retrieval failed, continuing without context: %v", err)
		if metrics != nil {
			metrics.RetrievalFallbacks.Inc()
		}
	}
	e := &Engine{
		sessions:  sessions,
		retriever: retrieval.Safe{Inner: retriever, OnDrop: onDrop},
		analyzer:  analyzer,
		db:        db,
		metrics:   metrics,
		cfg:       cfg,
	}
	sessions.SetExpireHook(e.onSessionExpired)
	return e
}

// StartSession creates a new triage conversation.
func (e *Engine) StartSession(ctx context.Context, req session.CreateRequest) (session.CreateResponse, error) {
	s := e.sessions.Create(session.PatientContext{
		Age:            req.Age,
		Sex:            req.Sex,
		MedicalHistory: req.MedicalHistory,
		Medications:    req.Medications,
		Allergies:      req.Allergies,
	})

	e.persistSession(ctx, s)
	e.audit(ctx, store.AuditRecord{
		SessionID: s.ID,
		EventType: "session_started",
	})
	if e.metrics != nil {
		e.metrics.SessionEvents.WithLabelValues("started").Inc()
		e.metrics.ActiveSessions.Set(float64(e.sessions.ActiveCount()))
	}

	return session.CreateResponse{
		SessionID: s.ID,
		Status:    s.Status,
		Message:   "Session started. Please describe your symptoms.",
		MaxTurns:  e.sessions.MaxTurns(),
		CreatedAt: s.CreatedAt,
	}, nil
}

// ProcessMessage runs one full triage cycle for a session message. The
// expensive work happens outside the session lock; the turn append inside
// AddTurn is the single commit point, so a session that hits its limit or
// is ended concurrently rejects the turn even after analysis completed.
func (e *Engine) ProcessMessage(ctx context.Context, sessionID string, req MessageRequest) (MessageResponse, error) {
	s, err := e.sessions.Get(sessionID)
	if err != nil {
		return MessageResponse{}, err
	}
	if s.Status == session.StatusCompleted {
		return MessageResponse{}, session.ErrCompleted
	}

	signal := triage.Classify(req.Message, req.Severity)

	var (
		assessment triage.Assessment
		confidence float64
	)
	if signal.Urgency == triage.Emergency {
		// Keyword emergencies short-circuit: no retrieval, no model call,
		// nothing between detection and the warning.
		assessment = triage.EmergencyAssessment(req.Message, signal.Evidence)
		confidence = 1.0
		e.audit(ctx, store.AuditRecord{
			SessionID:        sessionID,
			EventType:        "emergency_detected",
			Urgency:          string(triage.Emergency),
			DetectedKeywords: signal.Evidence,
		})
		if e.metrics != nil {
			e.metrics.EmergencyDetected.WithLabelValues("keyword").Inc()
		}
	} else {
		assessment, confidence, err = e.analyze(ctx, s, signal, req)
		if err != nil {
			return MessageResponse{}, err
		}
	}

	// Cancellation check before the commit point: a turn is never recorded
	// for a caller that already gave up.
	if err := ctx.Err(); err != nil {
		return MessageResponse{}, err
	}

	turn := session.Turn{
		UserMessage: req.Message,
		Assessment:  assessment,
		Severity:    req.Severity,
		Timestamp:   time.Now().UTC(),
	}
	turnNumber, err := e.sessions.AddTurn(sessionID, turn)
	if err != nil {
		return MessageResponse{}, err
	}

	e.persistTurn(ctx, store.TurnRecord{
		SessionID:   sessionID,
		TurnNumber:  turnNumber,
		UserMessage: req.Message,
		Assessment:  assessment,
		Severity:    req.Severity,
		Urgency:     string(assessment.Urgency),
	})
	e.audit(ctx, store.AuditRecord{
		SessionID:        sessionID,
		EventType:        "triage_completed",
		Urgency:          string(assessment.Urgency),
		DetectedKeywords: signal.Evidence,
		ConfidenceScores: map[string]float64{"overall": confidence},
		Metadata:         map[string]any{"turn_number": turnNumber},
	})
	if e.metrics != nil {
		e.metrics.TriageDecisions.WithLabelValues(string(assessment.Urgency)).Inc()
	}

	ended, err := e.sessions.ShouldEnd(sessionID)
	if err != nil {
		ended = false
	}
	return MessageResponse{
		SessionID:    sessionID,
		TurnNumber:   turnNumber,
		Assessment:   assessment,
		Confidence:   confidence,
		SessionEnded: ended,
	}, nil
}

// analyze runs the retrieval and reasoning path for non-emergency signals.
func (e *Engine) analyze(ctx context.Context, s *session.Session, signal triage.Signal, req MessageRequest) (triage.Assessment, float64, error) {
	snippets, _ := e.retriever.Retrieve(ctx, req.Message, e.cfg.RetrievalTopK)

	conversation, err := e.sessions.BuildContext(s.ID)
	if err != nil {
		return triage.Assessment{}, 0, err
	}

	started := time.Now()
	result, analysisErr := e.analyzer.Analyze(ctx, reasoning.Request{
		Symptoms:            req.Message,
		Duration:            req.Duration,
		Severity:            req.Severity,
		MedicalHistory:      s.Patient.MedicalHistory,
		Context:             snippets,
		ConversationContext: conversation,
	})
	if e.metrics != nil {
		e.metrics.ObserveAnalysisLatency(time.Since(started))
	}
	if analysisErr != nil {
		// The analyzer already substituted the safe default; record the
		// failure and keep going.
		log.Printf("pipeline: reasoning degraded to safe default for session %s: %v", s.ID, analysisErr)
		if e.metrics != nil {
			e.metrics.ProviderErrors.WithLabelValues("analyzer", "degraded").Inc()
		}
		e.audit(ctx, store.AuditRecord{
			SessionID: s.ID,
			EventType: "reasoning_degraded",
			Metadata:  map[string]any{"error": analysisErr.Error()},
		})
	}

	confidence := result.OverallConfidence()
	if confidence == 0 {
		confidence = triage.AssessConfidence(req.Message, result.ProbableConditions)
	}

	final := triage.Combine(signal.Urgency, result.Urgency, confidence, e.cfg.EmergencyConfidenceThreshold)

	assessment := triage.Assessment{
		Urgency:             final,
		ProbableConditions:  result.ProbableConditions,
		ClarifyingQuestions: result.ClarifyingQuestions,
		Reasoning:           result.Reasoning,
		Recommendations:     result.Recommendations,
		BodySystems:         result.BodySystems,
		Disclaimer:          result.Disclaimer,
	}
	if assessment.Disclaimer == "" {
		assessment.Disclaimer = triage.DefaultDisclaimer
	}
	if len(assessment.BodySystems) == 0 {
		assessment.BodySystems = triage.CategorizeBodySystems(req.Message)
	}

	switch final {
	case triage.Emergency:
		assessment.EmergencyWarning = triage.EmergencyWarning(signal.Evidence)
		if assessment.EmergencyWarning == "" {
			assessment.EmergencyWarning = result.EmergencyWarning
		}
		assessment.Recommendations = append(append([]string(nil), triage.EmergencyRecommendations...), assessment.Recommendations...)
		if e.metrics != nil {
			e.metrics.EmergencyDetected.WithLabelValues("model").Inc()
		}
		e.audit(ctx, store.AuditRecord{
			SessionID:        s.ID,
			EventType:        "emergency_detected",
			Urgency:          string(triage.Emergency),
			ConfidenceScores: map[string]float64{"overall": confidence},
		})
	case triage.Urgent:
		assessment.EmergencyWarning = triage.UrgentWarning(signal.Evidence)
	}

	return assessment, confidence, nil
}

// EndSession completes a session and returns its summary. Ending an already
// completed session returns the summary again.
func (e *Engine) EndSession(ctx context.Context, sessionID string) (session.Summary, error) {
	s, err := e.sessions.End(sessionID)
	if err != nil {
		return session.Summary{}, err
	}
	summary, err := e.sessions.Summarize(sessionID)
	if err != nil {
		return session.Summary{}, err
	}

	if dbErr := e.db.UpdateSessionStatus(ctx, sessionID, string(session.StatusCompleted), s.TurnCount); dbErr != nil {
		log.Printf("pipeline: update session status failed for %s: %v", sessionID, dbErr)
		if e.metrics != nil {
			e.metrics.PersistenceErrors.WithLabelValues("session").Inc()
		}
	}
	e.audit(ctx, store.AuditRecord{
		SessionID: sessionID,
		EventType: "session_ended",
		Urgency:   string(summary.FinalUrgency),
		Metadata:  map[string]any{"total_turns": summary.TotalTurns},
	})
	if e.metrics != nil {
		e.metrics.SessionEvents.WithLabelValues("ended").Inc()
		e.metrics.ActiveSessions.Set(float64(e.sessions.ActiveCount()))
	}
	return summary, nil
}

// Session returns the live session state.
func (e *Engine) Session(sessionID string) (*session.Session, error) {
	return e.sessions.Get(sessionID)
}

// History reads the durable record of a session.
func (e *Engine) History(ctx context.Context, sessionID string) (store.SessionRecord, []store.TurnRecord, error) {
	return e.db.History(ctx, sessionID)
}

// onSessionExpired runs on the janitor goroutine when an idle session is
// evicted. Best effort only.
func (e *Engine) onSessionExpired(s *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.db.UpdateSessionStatus(ctx, s.ID, string(session.StatusCompleted), s.TurnCount); err != nil {
		log.Printf("pipeline: expire status update failed for %s: %v", s.ID, err)
		if e.metrics != nil {
			e.metrics.PersistenceErrors.WithLabelValues("session").Inc()
		}
	}
	e.audit(ctx, store.AuditRecord{
		SessionID: s.ID,
		EventType: "session_expired",
	})
	if e.metrics != nil {
		e.metrics.SessionEvents.WithLabelValues("expired").Inc()
		e.metrics.ActiveSessions.Set(float64(e.sessions.ActiveCount()))
	}
}

func (e *Engine) persistSession(ctx context.Context, s *session.Session) {
	rec := store.SessionRecord{
		ID:             s.ID,
		Age:            s.Patient.Age,
		Sex:            s.Patient.Sex,
		MedicalHistory: s.Patient.MedicalHistory,
		Medications:    s.Patient.Medications,
		Allergies:      s.Patient.Allergies,
		Status:         string(s.Status),
		TurnCount:      s.TurnCount,
		CreatedAt:      s.CreatedAt,
	}
	if err := e.db.SaveSession(ctx, rec); err != nil {
		log.Printf("pipeline: save session %s failed: %v", s.ID, err)
		if e.metrics != nil {
			e.metrics.PersistenceErrors.WithLabelValues("session").Inc()
		}
	}
}

func (e *Engine) persistTurn(ctx context.Context, rec store.TurnRecord) {
	if err := e.db.SaveTurn(ctx, rec); err != nil {
		log.Printf("pipeline: save turn %d for session %s failed: %v", rec.TurnNumber, rec.SessionID, err)
		if e.metrics != nil {
			e.metrics.PersistenceErrors.WithLabelValues("turn").Inc()
		}
	}
	if err := e.db.UpdateSessionStatus(ctx, rec.SessionID, string(session.StatusActive), rec.TurnNumber); err != nil {
		log.Printf("pipeline: update turn count for session %s failed: %v", rec.SessionID, err)
	}
}

func (e *Engine) audit(ctx context.Context, rec store.AuditRecord) {
	if err := e.db.AppendAudit(ctx, rec); err != nil {
		log.Printf("pipeline: audit append failed for session %s: %v", rec.SessionID, err)
		if e.metrics != nil {
			e.metrics.PersistenceErrors.WithLabelValues("audit").Inc()
		}
	}
}
