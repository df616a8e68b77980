package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/davidbz/chatrelay/internal/config"
	"github.com/davidbz/chatrelay/internal/domain"
	"github.com/davidbz/chatrelay/internal/httpserver/middleware"
	"github.com/davidbz/chatrelay/internal/observability"
	"github.com/davidbz/chatrelay/internal/provider/openai"
	"github.com/davidbz/chatrelay/internal/relay"
)

const (
	maxBodyBytes = 8 << 20

	statusSuccess = "Success"
	statusFail    = "Fail"

	adminPasswordHeader = "X-Admin-Password"
)

// envelope is the response body of the non-streaming chat endpoints.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Handler handles HTTP requests.
type Handler struct {
	chat      *domain.ChatService
	ledger    *domain.Ledger
	registry  domain.ProviderRegistry
	access    *config.AccessConfig
	openai    *openai.Config
	ledgerCfg *config.LedgerConfig
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(
	chat *domain.ChatService,
	ledger *domain.Ledger,
	registry domain.ProviderRegistry,
	access *config.AccessConfig,
	openaiCfg *openai.Config,
	ledgerCfg *config.LedgerConfig,
) *Handler {
	return &Handler{
		chat:      chat,
		ledger:    ledger,
		registry:  registry,
		access:    access,
		openai:    openaiCfg,
		ledgerCfg: ledgerCfg,
	}
}

// Routes registers every endpoint under both the root and the /api prefix.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	auth := middleware.Auth(h.access.AuthSecretKey)
	limit := middleware.RateLimit(h.access.MaxRequestPerHour)
	admin := adminPrefix(h.access.AdminPathPrefix)

	for _, prefix := range []string{"", "/api"} {
		mux.Handle("POST "+prefix+"/chat-process", middleware.Chain(auth, limit)(http.HandlerFunc(h.HandleChatProcess)))
		mux.Handle("POST "+prefix+"/config", auth(http.HandlerFunc(h.HandleConfig)))
		mux.HandleFunc("POST "+prefix+"/session", h.HandleSession)
		mux.HandleFunc("POST "+prefix+"/verify", h.HandleVerify)
		mux.HandleFunc("POST "+prefix+admin+"/reset_token_counter", h.HandleResetTokenCounter)
		mux.HandleFunc("GET "+prefix+admin+"/token_counter", h.HandleTokenCounter)
		mux.HandleFunc("POST "+prefix+admin+"/update_max_token_limit", h.HandleUpdateMaxTokenLimit)
	}
	mux.HandleFunc("GET /health", h.HandleHealth)

	return mux
}

// HandleChatProcess streams a completion as newline-delimited JSON units.
// The status is always 200; failures arrive as a terminal error unit.
func (h *Handler) HandleChatProcess(w http.ResponseWriter, r *http.Request) {
	ctx := observability.WithModel(r.Context(), h.chat.Model())

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	sink := relay.NewWriter(w)

	var req domain.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger := observability.FromContext(ctx)
		logger.Warn("invalid chat request body", observability.Error(err))
		if writeErr := sink.WriteError(fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidArgument, err)); writeErr != nil {
			logger.Debug("writing error unit failed", observability.Error(writeErr))
		}
		_ = sink.Close()
		return
	}

	if req.Options.ConversationID != "" {
		ctx = observability.WithConversationID(ctx, req.Options.ConversationID)
	}

	observability.FromContext(ctx).Info("chat request received",
		observability.Int("prompt_chars", len([]rune(req.Prompt))),
		observability.Int("records", len(req.Options.DataSources)),
		observability.Bool("has_parent", req.Options.ParentMessageID != ""),
	)

	// Failures are already written to the stream.
	_, _ = h.chat.Process(ctx, &req, sink)
}

// HandleConfig reports the active completion settings.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	model := h.chat.Model()

	apiModel := "unavailable"
	if provider, err := h.registry.GetByModel(r.Context(), model); err == nil {
		apiModel = provider.Name()
	}

	data := map[string]any{
		"apiModel":      apiModel,
		"model":         model,
		"ledgerBackend": h.ledgerCfg.Backend,
	}
	if h.openai != nil {
		data["baseURL"] = h.openai.BaseURL
		data["timeoutMs"] = h.openai.Timeout * 1000
	}

	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Data: data})
}

// HandleSession reports whether a secret is required and the active model.
func (h *Handler) HandleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{
		Status: statusSuccess,
		Data: map[string]any{
			"auth":  strings.TrimSpace(h.access.AuthSecretKey) != "",
			"model": h.chat.Model(),
		},
	})
}

// HandleVerify checks a secret key supplied by the client.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusOK, envelope{Status: statusFail, Message: "Invalid request body"})
		return
	}

	switch {
	case body.Token == "":
		writeJSON(w, http.StatusOK, envelope{Status: statusFail, Message: "Secret key is empty"})
	case !secretMatches(h.access.AuthSecretKey, body.Token):
		writeJSON(w, http.StatusOK, envelope{Status: statusFail, Message: "Secret key is invalid"})
	default:
		writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Message: "Verify successfully"})
	}
}

// HandleResetTokenCounter zeroes the used counter.
func (h *Handler) HandleResetTokenCounter(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readAdminBody(w, r)
	if !ok {
		return
	}

	if !h.adminAuthorized(gjson.GetBytes(body, "password").String()) {
		rejectAdmin(w, r)
		return
	}

	if _, err := h.ledger.ResetUsage(r.Context()); err != nil {
		observability.FromContext(r.Context()).Error("token counter reset failed", observability.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Token counter has been reset."})
}

// HandleTokenCounter returns the used counter and the effective limit.
func (h *Handler) HandleTokenCounter(w http.ResponseWriter, r *http.Request) {
	password := r.Header.Get(adminPasswordHeader)
	if password == "" {
		password = r.URL.Query().Get("password")
	}

	if !h.adminAuthorized(password) {
		rejectAdmin(w, r)
		return
	}

	state, err := h.ledger.ReadUsage(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).Error("token counter read failed", observability.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"tokenCounter":  state.Used,
		"maxTokenLimit": state.Limit,
	})
}

// HandleUpdateMaxTokenLimit persists a new ceiling.
func (h *Handler) HandleUpdateMaxTokenLimit(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readAdminBody(w, r)
	if !ok {
		return
	}

	if !h.adminAuthorized(gjson.GetBytes(body, "password").String()) {
		rejectAdmin(w, r)
		return
	}

	limit, err := parseLimit(gjson.GetBytes(body, "newMaxTokenLimit"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	state, err := h.ledger.SetLimit(r.Context(), limit)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case err != nil:
		observability.FromContext(r.Context()).Error("max token limit update failed", observability.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Max token limit has been updated.",
		"maxTokenLimit": state.Limit,
	})
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (h *Handler) readAdminBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
		return nil, false
	}

	if len(strings.TrimSpace(string(body))) > 0 && !gjson.ValidBytes(body) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, false
	}

	return body, true
}

func (h *Handler) adminAuthorized(password string) bool {
	return h.access.ResetPassword != "" && password != "" && secretMatches(h.access.ResetPassword, password)
}

func rejectAdmin(w http.ResponseWriter, r *http.Request) {
	observability.FromContext(r.Context()).Warn("admin request rejected",
		observability.String("path", r.URL.Path),
	)
	writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Incorrect password."})
}

func secretMatches(expected, actual string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}

// parseLimit accepts a positive integer given as a JSON number or a numeric string.
func parseLimit(value gjson.Result) (int64, error) {
	var limit int64

	switch value.Type {
	case gjson.Number:
		if value.Num != math.Trunc(value.Num) || math.Abs(value.Num) > math.MaxInt64 {
			return 0, errors.New("newMaxTokenLimit must be an integer")
		}
		limit = value.Int()
	case gjson.String:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value.Str), 10, 64)
		if err != nil {
			return 0, errors.New("newMaxTokenLimit must be an integer")
		}
		limit = parsed
	default:
		return 0, errors.New("newMaxTokenLimit is required")
	}

	if limit <= 0 {
		return 0, errors.New("newMaxTokenLimit must be a positive integer")
	}

	return limit, nil
}

func adminPrefix(prefix string) string {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Already written status, can't change it.
		return
	}
}
