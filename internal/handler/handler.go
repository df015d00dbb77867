// Package handler exposes sessions over HTTP using fasthttp.
package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"proposal-engine/internal/engine"
	"proposal-engine/internal/logging"
	"proposal-engine/internal/model"
	"proposal-engine/internal/plancatalog"
	"proposal-engine/internal/store"
	"proposal-engine/internal/validation"
	"proposal-engine/internal/views"
)

// storeTimeout bounds the store work done for one request.
const storeTimeout = 5 * time.Second

// Server routes requests to sessions keyed by ID. Each session serialises its own
// commands; the registry lock only guards the map.
type Server struct {
	opts engine.Options

	mu       sync.RWMutex
	sessions map[string]*engine.Session

	metrics fasthttp.RequestHandler
}

// New returns a server whose sessions share opts. Key is replaced per session.
func New(opts engine.Options) *Server {
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Get()
	}
	if opts.Catalog == nil {
		opts.Catalog = plancatalog.Default()
	}
	s := &Server{opts: opts, sessions: make(map[string]*engine.Session)}
	if opts.Metrics != nil {
		s.metrics = fasthttpadaptor.NewFastHTTPHandler(opts.Metrics.Handler())
	}
	return s
}

// Handle is the fasthttp entry point.
func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	path := strings.Trim(string(ctx.Path()), "/")
	parts := strings.Split(path, "/")
	method := string(ctx.Method())

	switch {
	case path == "healthz":
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	case path == "metrics" && s.metrics != nil:
		s.metrics(ctx)
	case path == "plans" && method == fasthttp.MethodGet:
		s.plans(ctx)
	case path == "sessions" && method == fasthttp.MethodPost:
		s.createSession(ctx)
	case len(parts) >= 2 && parts[0] == "sessions":
		s.sessionRoute(ctx, method, parts[1], parts[2:])
	default:
		writeError(ctx, fasthttp.StatusNotFound, "Not found")
	}
}

func (s *Server) sessionRoute(ctx *fasthttp.RequestCtx, method, id string, rest []string) {
	if method == fasthttp.MethodDelete && len(rest) == 0 {
		s.deleteSession(ctx, id)
		return
	}

	sess, err := s.session(id)
	if err != nil {
		writeError(ctx, fasthttp.StatusNotFound, "Unknown session: "+id)
		return
	}

	switch {
	case len(rest) == 0 && method == fasthttp.MethodGet:
		writeJSON(ctx, fasthttp.StatusOK, sess.State())
	case len(rest) == 1 && rest[0] == "commands" && method == fasthttp.MethodPost:
		s.commands(ctx, sess)
	case len(rest) == 1 && rest[0] == "issues" && method == fasthttp.MethodGet:
		issues := sess.Evaluate()
		writeJSON(ctx, fasthttp.StatusOK, issuesResponse{
			Issues:     issues,
			Quality:    views.QualityBreakdown(issues),
			SyncStatus: sess.SyncStatus(),
			NeedsHuman: validation.NeedsHumanReview(issues),
			Hint:       sess.VehicleValueHint(),
		})
	case len(rest) == 2 && rest[0] == "views" && method == fasthttp.MethodGet:
		name := model.ViewName(rest[1])
		if name != model.ViewPortal && name != model.ViewAgent && name != model.ViewPDF {
			writeError(ctx, fasthttp.StatusNotFound, "Unknown view: "+rest[1])
			return
		}
		writeText(ctx, sess.View(name))
	case len(rest) == 1 && rest[0] == "draft" && method == fasthttp.MethodGet:
		writeText(ctx, sess.AgentDraft())
	default:
		writeError(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed")
	}
}

type issuesResponse struct {
	Issues     []model.Issue        `json:"issues"`
	Quality    []views.QualityCount `json:"quality"`
	SyncStatus model.SyncStatus     `json:"sync_status"`
	NeedsHuman bool                 `json:"needs_human"`
	Hint       string               `json:"vehicle_value_hint,omitempty"`
}

type sessionCreated struct {
	SessionID string              `json:"session_id"`
	State     model.StateSnapshot `json:"state"`
}

func (s *Server) sessionOptions(id string) engine.Options {
	opts := s.opts
	opts.Key = id
	return opts
}

func (s *Server) createSession(ctx *fasthttp.RequestCtx) {
	id := uuid.New().String()
	sess, err := engine.NewSession(s.sessionOptions(id))
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	s.mu.Lock()
	s.sessions[id] = sess
	s.updateGauge()
	s.mu.Unlock()

	logging.With(s.opts.Logger.Info(), logging.SessionID(id)).Msg("session created")
	writeJSON(ctx, fasthttp.StatusCreated, sessionCreated{SessionID: id, State: sess.State()})
}

// session returns a live session or resumes one from the store.
func (s *Server) session(id string) (*engine.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}

	ctx, cancel := storeContext()
	defer cancel()
	if _, err := s.opts.Store.Load(ctx, id); err != nil {
		return nil, err
	}
	sess, err := engine.LoadLast(ctx, s.sessionOptions(id))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		return existing, nil
	}
	s.sessions[id] = sess
	s.updateGauge()
	return sess, nil
}

func (s *Server) deleteSession(ctx *fasthttp.RequestCtx, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.updateGauge()
	s.mu.Unlock()

	sctx, cancel := storeContext()
	defer cancel()
	if err := s.opts.Store.Delete(sctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// storeContext is detached from the fasthttp request, whose Done channel belongs
// to the serving fasthttp.Server.
func storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

// updateGauge must be called with mu held.
func (s *Server) updateGauge() {
	if s.opts.Metrics != nil {
		s.opts.Metrics.ActiveSessions.Set(float64(len(s.sessions)))
	}
}

func (s *Server) commands(ctx *fasthttp.RequestCtx, sess *engine.Session) {
	var req model.CommandRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Commands) == 0 {
		writeError(ctx, fasthttp.StatusBadRequest, "At least one command is required")
		return
	}
	for i, c := range req.Commands {
		if strings.TrimSpace(c.Name) == "" {
			writeError(ctx, fasthttp.StatusBadRequest, "Command "+strconv.Itoa(i)+" has no name")
			return
		}
	}
	req.SessionID = sess.Key()

	sctx, cancel := storeContext()
	defer cancel()
	resp := sess.Process(sctx, &req)
	status := fasthttp.StatusOK
	if len(resp.Result.Messages) > 0 && resp.Result.Messages[0].Code == "VERSION_CONFLICT" {
		status = fasthttp.StatusConflict
	}
	writeJSON(ctx, status, resp)
}

func (s *Server) plans(ctx *fasthttp.RequestCtx) {
	cat := s.opts.Catalog
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{
		"vehicle_value_threshold": cat.VehicleValueThreshold(),
		"plans":                   cat.Plans(),
	})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

func writeText(ctx *fasthttp.RequestCtx, text string) {
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString(text)
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	body, _ := json.Marshal(model.ErrorResponse{
		Status:  status,
		Message: message,
	})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
