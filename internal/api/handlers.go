package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Duval1703/chatbot/internal/core"
	"github.com/Duval1703/chatbot/internal/logger"
	"github.com/Duval1703/chatbot/internal/store"
)

const dateLayout = "2006-01-02"

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type APIHandler struct {
	chatService        *core.ChatService
	userService        *core.UserService
	translationService *core.TranslationService
	generator          *core.ResponseGenerator
	db                 Pinger
}

func NewAPIHandler(cs *core.ChatService, us *core.UserService, ts *core.TranslationService, gen *core.ResponseGenerator, db Pinger) *APIHandler {
	return &APIHandler{
		chatService:        cs,
		userService:        us,
		translationService: ts,
		generator:          gen,
		db:                 db,
	}
}

type ctxKey int

const userCtxKey ctxKey = iota

func userFromContext(ctx context.Context) *store.User {
	u, _ := ctx.Value(userCtxKey).(*store.User)
	return u
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l := logger.L()
		l.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// respondError maps a service error to a status code. Persistence and
// unexpected errors are logged and reported generically.
func respondError(w http.ResponseWriter, r *http.Request, err error, notFoundDetail string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundDetail)
	case errors.Is(err, core.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Incorrect email or password")
	case errors.Is(err, core.ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already registered")
	default:
		l := logger.Ctx(r.Context())
		l.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", core.ErrInvalidInput)
	}
	return &t, nil
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		user, err := h.userService.Authenticate(r.Context(), tokenString)
		if err != nil {
			if errors.Is(err, core.ErrInvalidCredentials) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}
			respondError(w, r, err, "")
			return
		}

		l := logger.Ctx(r.Context()).With().Str(logger.FieldUserID, user.ID).Logger()
		ctx := context.WithValue(r.Context(), userCtxKey, user)
		ctx = logger.WithLogger(ctx, l)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Auth

type SignupRequest struct {
	Email             string  `json:"email"`
	Password          string  `json:"password"`
	FullName          string  `json:"full_name"`
	Phone             *string `json:"phone,omitempty"`
	DateOfBirth       *string `json:"date_of_birth,omitempty"`
	PreferredLanguage string  `json:"preferred_language,omitempty"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		respondError(w, r, err, "")
		return
	}

	user, err := h.userService.Signup(r.Context(), core.SignupInput{
		Email:             req.Email,
		Password:          req.Password,
		FullName:          req.FullName,
		Phone:             req.Phone,
		DateOfBirth:       dob,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		respondError(w, r, err, "")
		return
	}

	l := logger.Ctx(r.Context())
	l.Info().Str(logger.FieldUserID, user.ID).Msg("user registered")
	writeJSON(w, http.StatusCreated, user)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	res, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFromContext(r.Context()))
}

type UpdateProfileRequest struct {
	FullName          *string `json:"full_name,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	DateOfBirth       *string `json:"date_of_birth,omitempty"`
	PreferredLanguage *string `json:"preferred_language,omitempty"`
}

func (h *APIHandler) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		respondError(w, r, err, "")
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user.ID, core.ProfileUpdate{
		FullName:          req.FullName,
		Phone:             req.Phone,
		DateOfBirth:       dob,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		respondError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Chat

type ChatRequest struct {
	Message   string  `json:"message"`
	Language  string  `json:"language"`
	SessionID *string `json:"session_id,omitempty"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}
	if req.Language == "" {
		req.Language = core.English.Code()
	}

	res, err := h.chatService.HandleTurn(r.Context(), core.TurnInput{
		UserID:    user.ID,
		Message:   req.Message,
		Language:  req.Language,
		SessionID: req.SessionID,
	})
	if err != nil {
		respondError(w, r, err, "Chat session not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type SessionListItem struct {
	ID           string    `json:"id"`
	SessionName  string    `json:"session_name"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

func displayName(s *store.ChatSession) string {
	if s.SessionName != "" {
		return s.SessionName
	}
	return "Chat " + s.ID
}

func (h *APIHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	sessions, err := h.chatService.ListSessions(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err, "")
		return
	}

	items := make([]SessionListItem, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		items = append(items, SessionListItem{
			ID:           s.ID,
			SessionName:  displayName(&s.ChatSession),
			CreatedAt:    s.CreatedAt,
			MessageCount: s.MessageCount,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type SessionInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageItem struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionDetailsResponse struct {
	Session  SessionInfo   `json:"session"`
	Messages []MessageItem `json:"messages"`
}

func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	session, messages, err := h.chatService.GetSessionDetails(r.Context(), sessionID, user.ID)
	if err != nil {
		respondError(w, r, err, "Chat session not found")
		return
	}

	items := make([]MessageItem, 0, len(messages))
	for _, m := range messages {
		items = append(items, MessageItem{
			ID:        m.ID,
			Content:   m.Content,
			Sender:    m.Sender,
			Language:  m.Language,
			CreatedAt: m.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, SessionDetailsResponse{
		Session: SessionInfo{
			ID:        session.ID,
			Name:      displayName(session),
			CreatedAt: session.CreatedAt,
		},
		Messages: items,
	})
}

func (h *APIHandler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.chatService.SoftDeleteSession(r.Context(), sessionID, user.ID); err != nil {
		respondError(w, r, err, "Chat session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted successfully"})
}

// Translation

type TranslateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

func (h *APIHandler) TranslateHandler(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" || req.SourceLanguage == "" || req.TargetLanguage == "" {
		writeError(w, http.StatusBadRequest, "text, source_language and target_language are required")
		return
	}

	res, err := h.translationService.Translate(r.Context(), req.Text, req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type LanguageInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (h *APIHandler) LanguagesHandler(w http.ResponseWriter, r *http.Request) {
	langs := make([]LanguageInfo, 0, len(core.SupportedLanguages))
	for _, l := range core.SupportedLanguages {
		langs = append(langs, LanguageInfo{Code: l.Code(), Name: l.Name()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"languages": langs})
}

// Health

type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	ModelLoaded bool      `json:"model_loaded"`
	Database    string    `json:"database"`
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		ModelLoaded: h.generator.ModelLoaded(),
		Database:    "connected",
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		l := logger.Ctx(r.Context())
		l.Warn().Err(err).Msg("database ping failed")
		resp.Status = "degraded"
		resp.Database = "disconnected"
	}
	writeJSON(w, http.StatusOK, resp)
}
