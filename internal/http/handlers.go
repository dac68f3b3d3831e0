package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"agenticmd/internal/core"
	"agenticmd/internal/db"
	"agenticmd/internal/render"
	"agenticmd/pkg"

	"github.com/google/uuid"
)

// Server bundles the dependencies required by the HTTP handlers. It
// implements http.Handler so it can be passed to http.ListenAndServe.
// The handlers only translate between HTTP and the orchestrator: all
// workflow decisions live in internal/core.
type Server struct {
	Store    db.SessionStore
	Registry []core.Stage
	Exec     *core.Executor
	Renderer render.Renderer
	// Notifier is optional; when present, workflow completion is published
	// for dashboard listeners.
	Notifier *db.Notifier

	mu   sync.Mutex
	live map[string]*core.Session
}

// NewServer constructs a Server over a validated registry.
func NewServer(store db.SessionStore, registry []core.Stage, exec *core.Executor, renderer render.Renderer, notifier *db.Notifier) (*Server, error) {
	if err := core.ValidateRegistry(registry); err != nil {
		return nil, err
	}
	return &Server{
		Store:    store,
		Registry: registry,
		Exec:     exec,
		Renderer: renderer,
		Notifier: notifier,
		live:     map[string]*core.Session{},
	}, nil
}

// ServeHTTP dispatches incoming requests based on the URL path. Minimal
// routing logic is implemented here to keep dependencies light.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/consultations" && r.Method == http.MethodPost:
		s.handleStart(w, r)
	case path == "/api/consultations" && r.Method == http.MethodGet:
		s.handleList(w, r)
	case strings.HasPrefix(path, "/api/consultations/"):
		rest := strings.TrimPrefix(path, "/api/consultations/")
		parts := strings.Split(rest, "/")
		switch {
		case len(parts) == 1 && r.Method == http.MethodGet:
			s.handleState(w, r, parts[0])
		case len(parts) == 2 && parts[1] == "answers" && r.Method == http.MethodPost:
			s.handleAnswer(w, r, parts[0])
		case len(parts) == 2 && parts[1] == "result" && r.Method == http.MethodGet:
			s.handleResult(w, r, parts[0])
		case len(parts) == 2 && parts[1] == "document" && r.Method == http.MethodGet:
			s.handleDocument(w, r, parts[0])
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

// handleStart creates a session from the patient's initial text and drives
// it to its first suspension point (or completion, if no follow-ups are
// needed).
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req pkg.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.PatientText) == "" {
		http.Error(w, "patient_text is required", http.StatusBadRequest)
		return
	}
	session := core.NewSession(uuid.NewString(), s.Registry, s.Exec, req.PatientText)
	s.mu.Lock()
	s.live[session.ID()] = session
	s.mu.Unlock()

	runErr := session.Run(r.Context())
	s.persist(r.Context(), session)
	if runErr != nil {
		writeJSON(w, http.StatusBadGateway, session.View())
		return
	}
	writeJSON(w, http.StatusCreated, session.View())
}

// handleAnswer resolves the pending follow-up question and resumes the
// pipeline.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request, id string) {
	var req pkg.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		http.Error(w, "answer is required", http.StatusBadRequest)
		return
	}
	session, err := s.getSession(r.Context(), id)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	submitErr := session.SubmitAnswer(r.Context(), req.Answer)
	if errors.Is(submitErr, core.ErrNoPendingQuestion) {
		http.Error(w, submitErr.Error(), http.StatusConflict)
		return
	}
	s.persist(r.Context(), session)
	if submitErr != nil {
		var gen *core.GenerationFailure
		if errors.As(submitErr, &gen) {
			writeJSON(w, http.StatusBadGateway, session.View())
			return
		}
		http.Error(w, submitErr.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

// handleState reports the current state and pending question, if any.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.getSession(r.Context(), id)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

// handleResult returns the finalized WorkflowResult. Incomplete sessions
// get 409, failed ones 502: no partial result is ever served.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.getSession(r.Context(), id)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	result, err := session.Result()
	if err != nil {
		status := http.StatusConflict
		if session.View().State == pkg.StateFailed {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDocument renders the assembled prescription as a downloadable
// document.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.getSession(r.Context(), id)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	result, err := session.Result()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	doc, err := s.Renderer.Render(result.Entries)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="prescription.txt"`)
	w.Write(doc)
}

// handleList returns recent consultations for clinician dashboards.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.Store.List(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]pkg.SessionView, 0, len(records))
	for _, rec := range records {
		views = append(views, pkg.SessionView{
			SessionID: rec.ID,
			State:     rec.State,
			Stage:     rec.Stage,
			Question:  rec.Question,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// getSession returns the live session for id, restoring it from the store
// when the process no longer holds it in memory.
func (s *Server) getSession(ctx context.Context, id string) (*core.Session, error) {
	s.mu.Lock()
	session, ok := s.live[id]
	s.mu.Unlock()
	if ok {
		return session, nil
	}
	rec, err := s.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	var snap core.Snapshot
	if err := json.Unmarshal(rec.Snapshot, &snap); err != nil {
		return nil, err
	}
	session, err = core.Restore(snap, s.Registry, s.Exec)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	// Another request may have restored it concurrently; keep the first.
	if existing, ok := s.live[id]; ok {
		session = existing
	} else {
		s.live[id] = session
	}
	s.mu.Unlock()
	return session, nil
}

// persist saves the session snapshot and publishes completion events.
// Persistence failures are logged, not surfaced: the in-memory session
// remains authoritative for this process.
func (s *Server) persist(ctx context.Context, session *core.Session) {
	snap := session.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		log.Println("failed to marshal session snapshot:", err)
		return
	}
	rec := &db.ConsultationRecord{
		ID:       snap.ID,
		State:    snap.State,
		Question: snap.PendingQuestion,
		Snapshot: data,
	}
	if snap.StageIndex >= 0 && snap.StageIndex < len(s.Registry) {
		rec.Stage = s.Registry[snap.StageIndex].ID
	}
	if snap.Result != nil {
		if result, err := json.Marshal(snap.Result); err == nil {
			rec.Result = result
		}
	}
	if err := s.Store.Save(ctx, rec); err != nil {
		log.Println("failed to save consultation:", err)
		return
	}
	if snap.State == pkg.StateWorkflowComplete && s.Notifier != nil {
		// Fire and forget; dashboards poll as a fallback.
		go func(id string) {
			if err := s.Notifier.Notify(context.Background(), id); err != nil {
				log.Println("failed to notify completion:", err)
			}
		}(snap.ID)
	}
}

func (s *Server) sessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "consultation not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("failed to encode response:", err)
	}
}
