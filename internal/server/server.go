// Package server exposes the chat service over HTTP: blocking and streamed
// chat, conversation listing and management, and a health probe.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roeiex74/agno-ollama-chatbot/internal/agent"
	"github.com/roeiex74/agno-ollama-chatbot/internal/config"
	"github.com/roeiex74/agno-ollama-chatbot/internal/history"
	"github.com/roeiex74/agno-ollama-chatbot/internal/logger"
)

// Server holds the handler dependencies. A nil bot means the service is not
// initialized yet; chat endpoints answer 503 until it is set.
type Server struct {
	cfg   *config.Config
	bot   *agent.Chatbot
	store history.Store
}

func New(cfg *config.Config, bot *agent.Chatbot, store history.Store) *Server {
	return &Server{cfg: cfg, bot: bot, store: store}
}

// Handler builds the route table and wraps it with the CORS policy.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /chat/stream", s.handleChatStream)
	mux.HandleFunc("GET /conversations", s.handleListConversations)
	mux.HandleFunc("GET /conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("DELETE /conversations/{id}", s.handleDeleteConversation)
	mux.HandleFunc("PATCH /conversations/{id}/title", s.handleUpdateTitle)
	return s.cors(mux)
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Model       string `json:"model"`
	BackendKind string `json:"backend_kind"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	kind := ""
	if s.store != nil {
		kind = s.store.Kind()
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Environment: s.cfg.Env,
		Model:       s.cfg.OllamaModel,
		BackendKind: kind,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.bot == nil {
		writeError(w, http.StatusServiceUnavailable, "service not initialized")
		return
	}
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	result, err := s.bot.Chat(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		logger.L.Error("chat turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "chat error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if s.bot == nil {
		writeError(w, http.StatusServiceUnavailable, "service not initialized")
		return
	}
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Disable nginx buffering so fragments reach the client immediately.
	w.Header().Set("X-Accel-Buffering", "no")

	stream, err := s.bot.ChatStream(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		// The stream is always properly terminated, even before the
		// first fragment.
		logger.L.Error("streaming turn failed to start", "error", err)
		writeEvent(w, flusher, agent.Event{Error: err.Error(), Done: true})
		return
	}
	defer stream.Close()

	for {
		event, err := stream.Recv()
		if err != nil {
			return
		}
		if err := writeEvent(w, flusher, event); err != nil {
			// Client went away; Close stops fragment production.
			logger.L.Debug("client disconnected mid-stream", "error", err)
			return
		}
	}
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List(r.Context())
	if err != nil {
		logger.L.Error("list conversations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	if summaries == nil {
		summaries = []history.Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	detail, err := s.store.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		logger.L.Error("get conversation failed", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if detail.Messages == nil {
		detail.Messages = []history.Message{}
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		logger.L.Error("delete conversation failed", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":          "deleted",
		"conversation_id": id,
	})
}

func (s *Server) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	err := s.store.SetTitle(r.Context(), id, req.Title)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		logger.L.Error("update title failed", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update title")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":          "updated",
		"conversation_id": id,
		"title":           req.Title,
	})
}

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return req, false
	}
	return req, true
}

// cors applies the origin policy selected by the environment tag and answers
// preflight requests before they reach the route table.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := "*"
	if s.cfg.IsProd() {
		origin = "http://localhost:3000"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
