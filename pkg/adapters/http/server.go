package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/paneltree"
	"github.com/aretw0/paneltree/internal/logging"
	"github.com/aretw0/paneltree/pkg/document"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
	"github.com/aretw0/paneltree/pkg/registry"
	"github.com/aretw0/paneltree/pkg/types"
)

// Server exposes the engine and a document manager as a JSON API.
type Server struct {
	Engine  *paneltree.Engine
	Docs    *document.Manager
	Streams *StreamManager

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics mounts h under GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine *paneltree.Engine, docs *document.Manager, opts ...Option) http.Handler {
	s := &Server{
		Engine: engine,
		Docs:   docs,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/handlers", s.ListHandlers)
	r.Post("/stack", s.ResolveStack)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.ListDocuments)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetDocument)
			r.Put("/", s.PutDocument)
			r.Delete("/", s.DeleteDocument)
			r.Get("/events", s.SubscribeEvents)
			r.Post("/input", s.UpdateInput)
			r.Post("/handler", s.SwitchHandler)
			r.Post("/config", s.MergeConfig)
			r.Post("/undo", s.Undo)
			r.Post("/vars", s.AddVariable)
			r.Put("/vars/{name}", s.AssignVariable)
			r.Post("/vars/{name}/rename", s.RenameVariable)
			r.Delete("/vars/{name}", s.RemoveVariable)
			r.Post("/children/configure", s.ConfigureChild)
			r.Delete("/children", s.RemoveChild)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandlerInfo describes a registered handler.
type HandlerInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Specificity int    `json:"specificity"`
	Absorbing   bool   `json:"absorbing,omitempty"`
}

// StackRequest asks for the stack of a type, or of the type of an input expression.
type StackRequest struct {
	Type      string   `json:"type,omitempty"`
	Input     string   `json:"input,omitempty"`
	Requested string   `json:"requested,omitempty"`
	Allow     []string `json:"allow,omitempty"`
	SubStack  bool     `json:"sub_stack,omitempty"`
}

// StackResponse is the resolved stack.
type StackResponse struct {
	Type     string                  `json:"type"`
	ChosenID string                  `json:"chosen_id"`
	Options  []paneltree.StackOption `json:"options"`
}

// InputRequest carries a new input expression.
type InputRequest struct {
	Input string `json:"input"`
}

// HandlerRequest carries a handler switch.
type HandlerRequest struct {
	Handler string `json:"handler"`
}

// ConfigRequest carries a partial config for the handler being displayed.
type ConfigRequest struct {
	Handler string         `json:"handler"`
	Config  map[string]any `json:"config"`
}

// VarRequest carries a variable value expression.
type VarRequest struct {
	Value string `json:"value"`
}

// RenameRequest carries the new name of a variable.
type RenameRequest struct {
	Name string `json:"name"`
}

// NodeResponse is returned by every node transition.
type NodeResponse struct {
	Document map[string]any `json:"document"`
	Rule     string         `json:"rule,omitempty"`
	Name     string         `json:"name,omitempty"`
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":      "paneltree-http",
		"version":  strings.TrimSpace(paneltree.Version),
		"handlers": s.Engine.Registry().Len(),
	})
}

// ListHandlers handles the GET /handlers request.
func (s *Server) ListHandlers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DescribeHandlers(s.Engine.Registry()))
}

// DescribeHandlers lists the handlers of a registry in registration order.
func DescribeHandlers(reg *registry.Registry) []HandlerInfo {
	all := reg.All()
	out := make([]HandlerInfo, len(all))
	for i, d := range all {
		out[i] = HandlerInfo{
			ID:          d.ID(),
			DisplayName: registry.DisplayName(d),
			Specificity: d.Specificity(),
			Absorbing:   registry.IsAbsorbing(d),
		}
	}
	return out
}

// ResolveStack handles the POST /stack request.
func (s *Server) ResolveStack(w http.ResponseWriter, r *http.Request) {
	var body StackRequest
	if !s.decode(w, r, &body) {
		return
	}

	var t domain.Type
	switch {
	case body.Type != "":
		parsed, err := types.ParseType(body.Type)
		if err != nil {
			s.writeError(w, badRequest(err))
			return
		}
		t = parsed
	case body.Input != "":
		e, err := s.Engine.Parse(r.Context(), body.Input, domain.Frame{})
		if err != nil {
			s.writeError(w, badRequest(err))
			return
		}
		t = e.Type()
	default:
		s.writeError(w, badRequest(errors.New("type or input is required")))
		return
	}

	var filters []registry.Filter
	if len(body.Allow) > 0 {
		filters = append(filters, registry.AllowIDs(body.Allow...))
	}
	if body.SubStack {
		filters = append(filters, registry.SubStackFilter())
	}

	res := s.Engine.ResolveStack(r.Context(), t, body.Requested, registry.And(filters...))
	writeJSON(w, http.StatusOK, StackResponse{Type: t.String(), ChosenID: res.ChosenID, Options: res.Options()})
}

// ListDocuments handles the GET /documents request.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Docs.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// GetDocument handles the GET /documents/{id} request.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Docs.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeDocument(w, http.StatusOK, doc, "", "")
}

// PutDocument handles the PUT /documents/{id} request.
// The body is a plain document; only its root is used.
func (s *Server) PutDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body map[string]any
	if !s.decode(w, r, &body) {
		return
	}
	in, err := domain.DocumentFromPlain(body, s.Engine.Codec())
	if err != nil {
		s.writeError(w, badRequest(err))
		return
	}
	in.ID = id

	doc, err := s.Docs.Save(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeDocument(w, http.StatusOK, doc, "", "")
}

// DeleteDocument handles the DELETE /documents/{id} request.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.Docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Undo handles the POST /documents/{id}/undo request.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Docs.Undo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeDocument(w, http.StatusOK, doc, "", "")
}

// UpdateInput handles the POST /documents/{id}/input request.
func (s *Server) UpdateInput(w http.ResponseWriter, r *http.Request) {
	var body InputRequest
	if !s.decode(w, r, &body) {
		return
	}
	input, err := expr.Parse(body.Input)
	if err != nil {
		s.writeError(w, badRequest(err))
		return
	}

	var rule domain.Rule
	s.mutate(w, r, func(ctx context.Context, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
		next, applied, err := s.Engine.UpdateInput(ctx, node, input, frame)
		rule = applied
		return next, err
	}, func() (string, string) { return string(rule), "" })
}

// SwitchHandler handles the POST /documents/{id}/handler request.
func (s *Server) SwitchHandler(w http.ResponseWriter, r *http.Request) {
	var body HandlerRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.mutate(w, r, func(ctx context.Context, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
		return s.Engine.SwitchHandler(ctx, node, body.Handler, frame)
	}, nil)
}

// MergeConfig handles the POST /documents/{id}/config request.
func (s *Server) MergeConfig(w http.ResponseWriter, r *http.Request) {
	var body ConfigRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.mutate(w, r, func(ctx context.Context, node domain.ConfigNode, _ domain.Frame) (domain.ConfigNode, error) {
		handlerID := body.Handler
		if handlerID == "" {
			handlerID = node.HandlerID
		}
		return s.Engine.MergeConfig(ctx, node, handlerID, func(map[string]any) map[string]any {
			return body.Config
		}), nil
	}, nil)
}

// AddVariable handles the POST /documents/{id}/vars request.
func (s *Server) AddVariable(w http.ResponseWriter, r *http.Request) {
	var body VarRequest
	if !s.decode(w, r, &body) {
		return
	}
	var name string
	s.mutate(w, r, func(ctx context.Context, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
		value, err := s.varValue(ctx, body.Value, frame, node)
		if err != nil {
			return node, err
		}
		next, added := s.Engine.AddVariable(ctx, node, value, frame)
		name = added
		return next, nil
	}, func() (string, string) { return "", name })
}

// AssignVariable handles the PUT /documents/{id}/vars/{name} request.
func (s *Server) AssignVariable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var body VarRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.mutate(w, r, func(ctx context.Context, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
		value, err := s.varValue(ctx, body.Value, frame, node)
		if err != nil {
			return node, err
		}
		return s.Engine.AssignVariable(ctx, node, name, value)
	}, nil)
}

// RenameVariable handles the POST /documents/{id}/vars/{name}/rename request.
func (s *Server) RenameVariable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var body RenameRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.mutate(w, r, func(ctx context.Context, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
		return s.Engine.RenameVariable(ctx, node, name, body.Name, frame)
	}, func() (string, string) { return "", body.Name })
}

// RemoveVariable handles the DELETE /documents/{id}/vars/{name} request.
func (s *Server) RemoveVariable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mutate(w, r, func(ctx context.Context, node domain.ConfigNode, _ domain.Frame) (domain.ConfigNode, error) {
		return s.Engine.RemoveVariable(ctx, node, name)
	}, nil)
}

// ConfigureChild handles the POST /documents/{id}/children/configure request.
// path addresses the child; the change is applied to its parent.
func (s *Server) ConfigureChild(w http.ResponseWriter, r *http.Request) {
	s.mutateChild(w, r, func(ctx context.Context, parent domain.ConfigNode, key string, frame domain.Frame) (domain.ConfigNode, error) {
		return s.Engine.ConfigureChild(ctx, parent, key, frame)
	})
}

// RemoveChild handles the DELETE /documents/{id}/children request.
func (s *Server) RemoveChild(w http.ResponseWriter, r *http.Request) {
	s.mutateChild(w, r, func(ctx context.Context, parent domain.ConfigNode, key string, _ domain.Frame) (domain.ConfigNode, error) {
		return s.Engine.RemoveChild(ctx, parent, key)
	})
}

func (s *Server) mutateChild(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, parent domain.ConfigNode, key string, frame domain.Frame) (domain.ConfigNode, error)) {
	path := domain.ParsePath(r.URL.Query().Get("path"))
	if len(path) == 0 {
		s.writeError(w, badRequest(errors.New("path must address a child node")))
		return
	}
	key := path[len(path)-1]
	s.mutateAt(w, r, path[:len(path)-1], func(ctx context.Context, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
		return fn(ctx, node, key, frame)
	}, nil)
}

// varValue parses a variable value and refines it against the frame the
// node's own bindings see.
func (s *Server) varValue(ctx context.Context, src string, frame domain.Frame, node domain.ConfigNode) (domain.Expression, error) {
	value, err := s.Engine.Parse(ctx, src, frame.Extend(node.Vars))
	if err != nil {
		return nil, badRequest(err)
	}
	return value, nil
}

// mutate runs fn on the node addressed by the "path" query parameter,
// broadcasts the node diff and writes the new document.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn document.NodeFunc, extra func() (rule, name string)) {
	s.mutateAt(w, r, domain.ParsePath(r.URL.Query().Get("path")), fn, extra)
}

func (s *Server) mutateAt(w http.ResponseWriter, r *http.Request, path domain.Path, fn document.NodeFunc, extra func() (rule, name string)) {
	id := chi.URLParam(r, "id")

	var before, after domain.ConfigNode
	doc, err := s.Docs.Update(r.Context(), id, path, func(ctx context.Context, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
		next, err := fn(ctx, node, frame)
		before, after = node, next
		return next, err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	if diff := domain.Diff(before, after); diff != nil {
		if b, err := json.Marshal(map[string]any{"path": path.String(), "version": doc.Version, "diff": diff}); err == nil {
			s.Streams.Broadcast(id, string(b))
		}
	}

	var rule, name string
	if extra != nil {
		rule, name = extra()
	}
	s.writeDocument(w, http.StatusOK, doc, rule, name)
}

// SubscribeEvents handles the GET /documents/{id}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	s.logger.Info("SSE: Subscribing to document updates", "document_id", id)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "document_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return &requestError{err: err} }

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		s.writeError(w, badRequest(fmt.Errorf("invalid request body: %w", err)))
		return false
	}
	return true
}

func (s *Server) writeDocument(w http.ResponseWriter, status int, doc *domain.Document, rule, name string) {
	plain, err := doc.ToPlain(s.Engine.Codec())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, status, NodeResponse{Document: plain, Rule: rule, Name: name})
}

// StatusFor maps an error to an HTTP status code.
func StatusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, domain.ErrInvalidVarName),
		errors.Is(err, domain.ErrVarNameTaken),
		errors.Is(err, domain.ErrUnboundVariable):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrPathNotFound),
		errors.Is(err, domain.ErrUnknownVariable):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStaleResult):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownHandler),
		errors.Is(err, document.ErrNothingToUndo):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
