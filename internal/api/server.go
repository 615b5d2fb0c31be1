// Package api exposes the HTTP surface: routing, token resolution, and
// request parsing. All file-tree decisions happen in the files service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fileden/fileden/internal/auth"
	"github.com/fileden/fileden/internal/files"
	"github.com/fileden/fileden/internal/model"
	"github.com/fileden/fileden/internal/store"
)

// Deps bundles everything the server needs. Ping funcs may be nil, in which
// case the corresponding backend reports alive.
type Deps struct {
	Files     *files.Service
	FileStore store.FileStore
	Users     store.UserStore
	Sessions  auth.SessionStore
	DBPing    func(ctx context.Context) error
	RedisPing func(ctx context.Context) error
}

// Server hosts the HTTP handlers.
type Server struct {
	addr   string
	log    *zap.Logger
	deps   Deps
	server *http.Server
	once   sync.Once
}

// New constructs a Server.
func New(addr string, log *zap.Logger, deps Deps) *Server {
	return &Server{addr: addr, log: log, deps: deps}
}

// Handler builds the chi router. Exposed separately so tests can drive it
// through httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(s.log))
	r.Use(metricsMiddleware)

	r.Get("/status", s.handleStatus)
	r.Get("/stats", s.handleStats)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/users", s.handleCreateUser)
	r.Get("/users/me", s.handleMe)
	r.Get("/connect", s.handleConnect)
	r.Get("/disconnect", s.handleDisconnect)

	r.Route("/files", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleShow)
		r.Put("/{id}/publish", s.handlePublish(true))
		r.Put("/{id}/unpublish", s.handlePublish(false))
		r.Get("/{id}/data", s.handleData)
	})
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{Addr: s.addr, Handler: s.Handler()}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.Info("api listening", zap.String("addr", s.addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// caller resolves the X-Token header to a user id.
func (s *Server) caller(r *http.Request) (int64, error) {
	token := r.Header.Get("X-Token")
	if token == "" {
		return 0, files.ErrUnauthorized
	}
	userID, err := s.deps.Sessions.Resolve(r.Context(), token)
	if err != nil {
		return 0, files.ErrUnauthorized
	}
	return userID, nil
}

type uploadBody struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID *int64 `json:"parentId"`
	IsPublic *bool  `json:"isPublic"`
	Data     string `json:"data"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	callerID, err := s.caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body uploadBody
	// A non-boolean isPublic or otherwise malformed JSON is rejected here;
	// absent optional fields get their defaults below.
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing content"})
		return
	}
	req := files.UploadRequest{
		Name: body.Name,
		Kind: model.Kind(body.Type),
		Data: body.Data,
	}
	if body.ParentID != nil {
		req.ParentID = *body.ParentID
	}
	if body.IsPublic != nil {
		req.IsPublic = *body.IsPublic
	}
	view, err := s.deps.Files.Create(r.Context(), callerID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	callerID, err := s.caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, files.ErrNotFound)
		return
	}
	view, err := s.deps.Files.Get(r.Context(), id, callerID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	callerID, err := s.caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	page := store.NormalizePage(r.URL.Query().Get("page"))
	var parentID *int64
	if raw := r.URL.Query().Get("parentId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			// An unparseable parent matches nothing.
			s.writeJSON(w, http.StatusOK, []struct{}{})
			return
		}
		parentID = &id
	}
	views, err := s.deps.Files.List(r.Context(), callerID, parentID, page)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handlePublish(value bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, err := s.caller(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		id, err := pathID(r)
		if err != nil {
			s.writeError(w, files.ErrNotFound)
			return
		}
		view, err := s.deps.Files.SetPublish(r.Context(), id, callerID, value)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	// Byte reads allow anonymous callers: public records are readable
	// without a token, so a failed resolution degrades to caller id 0.
	callerID, _ := s.caller(r)
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, files.ErrNotFound)
		return
	}
	width := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		width, err = strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, files.ErrInvalidSize)
			return
		}
	}
	content, err := s.deps.Files.ReadBytes(r.Context(), id, callerID, width)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", content.MimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content.Data)
}

type userBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body userBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing content"})
		return
	}
	if body.Email == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing email"})
		return
	}
	if body.Password == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing password"})
		return
	}
	user, err := s.deps.Users.CreateUser(r.Context(), body.Email, auth.HashPassword(body.Password))
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Already exist"})
			return
		}
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"id": user.ID, "email": user.Email})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	callerID, err := s.caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, err := s.deps.Users.GetUserByID(r.Context(), callerID)
	if err != nil {
		s.writeError(w, files.ErrUnauthorized)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"id": user.ID, "email": user.Email})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok || email == "" || password == "" {
		s.writeError(w, files.ErrUnauthorized)
		return
	}
	user, err := s.deps.Users.GetUserByEmail(r.Context(), email)
	if err != nil {
		s.writeError(w, files.ErrUnauthorized)
		return
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		s.writeError(w, files.ErrUnauthorized)
		return
	}
	token, err := s.deps.Sessions.Create(r.Context(), user.ID)
	if err != nil {
		s.log.Error("create session failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if _, err := s.caller(r); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.deps.Sessions.Destroy(r.Context(), r.Header.Get("X-Token")); err != nil {
		s.log.Error("destroy session failed", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	dbAlive := s.ping(r.Context(), s.deps.DBPing)
	redisAlive := s.ping(r.Context(), s.deps.RedisPing)
	status := http.StatusOK
	if !dbAlive && !redisAlive {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, map[string]bool{"redis": redisAlive, "db": dbAlive})
}

func (s *Server) ping(ctx context.Context, fn func(context.Context) error) bool {
	if fn == nil {
		return true
	}
	return fn(ctx) == nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Users.CountUsers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	fileCount, err := s.deps.FileStore.CountFiles(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"users": users, "files": fileCount})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var fe *files.Error
	if errors.As(err, &fe) {
		if fe.Status >= http.StatusInternalServerError {
			s.log.Error("internal error", zap.Error(fe))
		}
		s.writeJSON(w, fe.Status, map[string]string{"error": fe.Message})
		return
	}
	s.log.Error("unhandled error", zap.Error(err))
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encode response failed", zap.Error(err))
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
