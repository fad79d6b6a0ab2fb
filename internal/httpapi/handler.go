package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-ai-scheduler/internal/schema"
	"github.com/wolfman30/clinic-ai-scheduler/pkg/logging"
)

// Handler serves the conversation API.
type Handler struct {
	manager *Manager
	logger  *logging.Logger
}

func NewHandler(manager *Manager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{manager: manager, logger: logger}
}

// RouterConfig holds router configuration.
type RouterConfig struct {
	Handler        *Handler
	MetricsHandler http.Handler
}

// NewRouter creates the Chi router with all routes configured.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", cfg.Handler.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1/conversations", func(r chi.Router) {
		r.Post("/", cfg.Handler.CreateConversation)
		r.Post("/{conversationID}/messages", cfg.Handler.PostMessage)
		r.Get("/{conversationID}", cfg.Handler.GetConversation)
	})

	return r
}

type conversationResponse struct {
	ConversationID string   `json:"conversation_id"`
	Messages       []string `json:"messages"`
	Phase          string   `json:"phase,omitempty"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type snapshotResponse struct {
	ConversationID string            `json:"conversation_id"`
	Phase          string            `json:"phase"`
	Turn           int               `json:"turn"`
	Request        map[string]string `json:"request"`
	ConfirmationID string            `json:"confirmation_id,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	id, messages := h.manager.Create(r.Context())
	h.logger.Info("conversation started", "conversation_id", id)
	writeJSON(w, http.StatusCreated, conversationResponse{
		ConversationID: id,
		Messages:       messages,
	})
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	replies, phase, err := h.manager.Message(r.Context(), id, req.Message)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		h.logger.Error("turn failed", "error", err, "conversation_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, conversationResponse{
		ConversationID: id,
		Messages:       replies,
		Phase:          phase.String(),
	})
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	st, err := h.manager.Snapshot(id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	fields := make(map[string]string)
	for _, d := range schema.Definitions() {
		if v := schema.Get(st.Request, d.Field); v != "" {
			fields[string(d.Field)] = v
		}
	}
	resp := snapshotResponse{
		ConversationID: st.ConversationID,
		Phase:          st.Phase.String(),
		Turn:           st.Turn,
		Request:        fields,
	}
	if st.Booking != nil {
		resp.ConfirmationID = st.Booking.ConfirmationID
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
