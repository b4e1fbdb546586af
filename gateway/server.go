// Package gateway exposes the realtime websocket endpoint and the REST
// directory surface (register, login, peers, history) over a single HTTP
// listener.
package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"texttalk/auth"
	"texttalk/domain"
	apperrors "texttalk/errors"
	"texttalk/observability"
	"texttalk/services"
)

type Server struct {
	log                  *slog.Logger
	authService          services.IAuthService
	chatService          services.IChatService
	tokens               *auth.TokenManager
	monitoring           *observability.MonitoringManager
	upgrader             websocket.Upgrader
	connectionBufferSize int
	maxContentLength     int
}

func NewServer(
	log *slog.Logger,
	authService services.IAuthService,
	chatService services.IChatService,
	tokens *auth.TokenManager,
	monitoring *observability.MonitoringManager,
	connectionBufferSize int,
	maxContentLength int,
) *Server {
	return &Server{
		log:         log,
		authService: authService,
		chatService: chatService,
		tokens:      tokens,
		monitoring:  monitoring,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The REST surface is already open to any origin, the
			// websocket follows the same policy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		connectionBufferSize: connectionBufferSize,
		maxContentLength:     maxContentLength,
	}
}

// Handler builds the full routing table. Everything except register and
// login sits behind the JWT middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	mux.Handle("GET /api/users", s.tokens.Middleware(http.HandlerFunc(s.handleUsers)))
	mux.Handle("GET /api/messages/{peer}", s.tokens.Middleware(http.HandlerFunc(s.handleMessages)))
	mux.Handle("GET /ws", s.tokens.Middleware(http.HandlerFunc(s.handleWebsocket)))

	mux.HandleFunc("GET /debug/stats", s.handleStats)

	return chainMiddlewares(mux, s.withLogging, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
}

type userResponse struct {
	Username string `json:"username"`
}

type usersResponse struct {
	Success bool           `json:"success"`
	Users   []userResponse `json:"users"`
}

type messageResponse struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type messagesResponse struct {
	Success  bool              `json:"success"`
	Messages []messageResponse `json:"messages"`
	Cursor   *string           `json:"cursor,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{Success: false, Message: "invalid request body"})
		return
	}

	token, err := s.authService.Register(req.Username, req.Password)
	if err != nil {
		writeJSON(w, apperrors.MapToHTTPStatus(err), authResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, Message: "User registered successfully", Token: string(token)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{Success: false, Message: "invalid request body"})
		return
	}

	token, err := s.authService.Login(req.Username, req.Password)
	if err != nil {
		writeJSON(w, apperrors.MapToHTTPStatus(err), authResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, Message: "Login successful", Token: string(token)})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	peers, err := s.chatService.ListPeers(caller)
	if err != nil {
		writeJSON(w, apperrors.MapToHTTPStatus(err), authResponse{Success: false, Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, usersResponse{
		Success: true,
		Users: lo.Map(peers, func(name string, _ int) userResponse {
			return userResponse{Username: name}
		}),
	})
}

// handleMessages serves the conversation between the caller and {peer}.
// The caller side of the pair always comes from the token, so a session can
// only read its own conversations.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	peer := r.PathValue("peer")

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, nextCursor, err := s.chatService.History(caller, peer, cursor)
	if err != nil {
		writeJSON(w, apperrors.MapToHTTPStatus(err), authResponse{Success: false, Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, messagesResponse{
		Success: true,
		Messages: lo.Map(messages, func(m domain.Message, _ int) messageResponse {
			return messageResponse{
				Sender:    m.Sender,
				Content:   m.Content,
				Timestamp: formatTimestamp(m.CreatedAt),
			}
		}),
		Cursor: nextCursor,
	})
}

// handleWebsocket upgrades an authenticated request and runs the connection
// until it dies. The connection counter pairs open/close exactly.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	s.monitoring.ConnectionOpened()
	defer s.monitoring.ConnectionClosed()

	connID := uuid.NewString()
	sink := NewSink(s.connectionBufferSize)
	sess := newSession(connID, username, conn, sink, s.chatService, s.log, readLimitFor(s.maxContentLength))

	s.log.Info("Connection established", "conn_id", connID, "username", username)
	sess.run(r.Context())
	s.log.Info("Connection closed", "conn_id", connID, "username", username)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.monitoring.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// withLogging wraps a handler and logs every request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// withCORS adds basic CORS headers to allow calls from a web front-end.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// chainMiddlewares applies multiple middlewares in order.
func chainMiddlewares(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}
