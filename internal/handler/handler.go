// Package handler exposes the gate's HTTP surface outside the middleware:
// rate limit status for callers, payment result reporting for the payment
// collaborator, and the token-guarded admin endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"turnstile/internal/admin"
	"turnstile/internal/guard"
	"turnstile/internal/models"
	platformMW "turnstile/internal/platform/middleware"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/httputil"
	"turnstile/pkg/secrets"
)

// maxBodySize bounds request bodies to prevent oversized payloads.
const maxBodySize = 64 * 1024

// IdentityResolver extracts the caller identity from a request.
type IdentityResolver interface {
	FromRequest(r *http.Request) models.Identity
}

// StatusService reports current window usage without consuming quota.
type StatusService interface {
	Status(ctx context.Context, identity models.Identity) (map[models.WindowType]*models.RateLimitResult, error)
}

// ResultRecorder feeds payment outcomes back into the activity ledger.
type ResultRecorder interface {
	RecordPaymentResult(ctx context.Context, req guard.PaymentRequest, status models.PaymentStatus, failureReason string) error
}

// AdminService is the operator-facing service behind the admin routes.
type AdminService interface {
	AddToAllowlist(ctx context.Context, req *admin.AllowlistAddRequest, adminPrincipal string) (*models.AllowlistEntry, error)
	RemoveFromAllowlist(ctx context.Context, entryType models.AllowlistEntryType, identifier string) error
	ListAllowlist(ctx context.Context) ([]*models.AllowlistEntry, error)
	ResetWindows(ctx context.Context, req *admin.ResetRequest) error
	FireTrigger(ctx context.Context, trigger models.TriggerType) error
	ClearCooldown(ctx context.Context, trigger models.TriggerType) error
	ListViolations(ctx context.Context, identityKey string, limit, offset int) ([]*models.Violation, error)
}

// Handler serves the gate HTTP API.
type Handler struct {
	resolver IdentityResolver
	status   StatusService
	results  ResultRecorder
	admin    AdminService
	logger   *slog.Logger

	// adminTokenHash is the bcrypt hash admin bearer tokens verify against.
	adminTokenHash string
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithResultRecorder enables the payment results endpoint.
func WithResultRecorder(r ResultRecorder) Option {
	return func(h *Handler) {
		h.results = r
	}
}

// WithAdmin enables the admin routes, guarded by tokens matching tokenHash.
func WithAdmin(svc AdminService, tokenHash string) Option {
	return func(h *Handler) {
		h.admin = svc
		h.adminTokenHash = tokenHash
	}
}

// New creates the handler.
func New(resolver IdentityResolver, status StatusService, opts ...Option) (*Handler, error) {
	if resolver == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "identity resolver is required")
	}
	if status == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "status service is required")
	}

	h := &Handler{
		resolver: resolver,
		status:   status,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register mounts the caller-facing routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/rate-limit/status", h.HandleStatus)
	if h.results != nil {
		r.Post("/v1/payments/results", h.HandlePaymentResult)
	}
}

// RegisterAdmin mounts the operator routes. Callers must present a bearer
// token matching the configured hash.
func (h *Handler) RegisterAdmin(r chi.Router) {
	if h.admin == nil {
		return
	}
	r.Route("/admin/rate-limit", func(r chi.Router) {
		r.Use(h.requireAdminToken)
		r.Post("/allowlist", h.HandleAddAllowlist)
		r.Delete("/allowlist", h.HandleRemoveAllowlist)
		r.Get("/allowlist", h.HandleListAllowlist)
		r.Post("/reset", h.HandleReset)
		r.Post("/triggers/{trigger}/fire", h.HandleFireTrigger)
		r.Delete("/triggers/{trigger}", h.HandleClearCooldown)
		r.Get("/violations", h.HandleListViolations)
	})
}

// requireAdminToken verifies the Authorization bearer token against the
// configured bcrypt hash.
func (h *Handler) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing admin token"))
			return
		}
		if err := secrets.Verify(token, h.adminTokenHash); err != nil {
			h.logger.WarnContext(r.Context(), "admin token rejected",
				"request_id", platformMW.GetRequestID(r.Context()),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid admin token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// HandleStatus implements GET /v1/rate-limit/status.
// Reports current usage for the calling identity without consuming quota.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := h.resolver.FromRequest(r)

	windows, err := h.status.Status(ctx, identity)
	if err != nil {
		h.logger.ErrorContext(ctx, "rate limit status lookup failed",
			"error", err,
			"identity", identity.Key(),
			"request_id", platformMW.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{
		Identity: identity.Key(),
		Windows:  windows,
	})
}

type statusResponse struct {
	Identity string                                        `json:"identity"`
	Windows  map[models.WindowType]*models.RateLimitResult `json:"windows"`
}

// paymentResultRequest is the payment collaborator's outcome report.
type paymentResultRequest struct {
	AmountCents   int64                    `json:"amount_cents"`
	Status        models.PaymentStatus     `json:"status"`
	FailureReason string                   `json:"failure_reason,omitempty"`
	PaymentMethod models.PaymentMethodInfo `json:"payment_method"`
	OriginCountry string                   `json:"origin_country,omitempty"`
}

// HandlePaymentResult implements POST /v1/payments/results.
// The payment collaborator reports the terminal outcome of an attempt so
// failure streaks are visible to the classifier.
func (h *Handler) HandlePaymentResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := platformMW.GetRequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	req, ok := httputil.DecodeJSON[paymentResultRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identity := h.resolver.FromRequest(r)
	err := h.results.RecordPaymentResult(ctx, guard.PaymentRequest{
		Identity:      identity,
		AmountCents:   req.AmountCents,
		Method:        req.PaymentMethod,
		OriginCountry: req.OriginCountry,
	}, req.Status, req.FailureReason)
	if err != nil {
		h.logger.ErrorContext(ctx, "payment result not recorded",
			"error", err,
			"identity", identity.Key(),
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleAddAllowlist implements POST /admin/rate-limit/allowlist.
func (h *Handler) HandleAddAllowlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := platformMW.GetRequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	req, ok := httputil.DecodeJSON[admin.AllowlistAddRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := h.admin.AddToAllowlist(ctx, req, adminPrincipal(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "allowlist add failed",
			"error", err,
			"identifier", req.Identifier,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

// removeAllowlistRequest targets an entry by type and identifier.
type removeAllowlistRequest struct {
	Type       models.AllowlistEntryType `json:"type"`
	Identifier string                    `json:"identifier"`
}

// HandleRemoveAllowlist implements DELETE /admin/rate-limit/allowlist.
func (h *Handler) HandleRemoveAllowlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := platformMW.GetRequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	req, ok := httputil.DecodeJSON[removeAllowlistRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.admin.RemoveFromAllowlist(ctx, req.Type, req.Identifier); err != nil {
		h.logger.ErrorContext(ctx, "allowlist remove failed",
			"error", err,
			"identifier", req.Identifier,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListAllowlist implements GET /admin/rate-limit/allowlist.
func (h *Handler) HandleListAllowlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.admin.ListAllowlist(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// HandleReset implements POST /admin/rate-limit/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := platformMW.GetRequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	req, ok := httputil.DecodeJSON[admin.ResetRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.admin.ResetWindows(ctx, req); err != nil {
		h.logger.ErrorContext(ctx, "window reset failed",
			"error", err,
			"identifier", req.Identifier,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFireTrigger implements POST /admin/rate-limit/triggers/{trigger}/fire.
func (h *Handler) HandleFireTrigger(w http.ResponseWriter, r *http.Request) {
	trigger := models.TriggerType(chi.URLParam(r, "trigger"))
	if err := h.admin.FireTrigger(r.Context(), trigger); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "fired", "trigger": trigger.String()})
}

// HandleClearCooldown implements DELETE /admin/rate-limit/triggers/{trigger}.
func (h *Handler) HandleClearCooldown(w http.ResponseWriter, r *http.Request) {
	trigger := models.TriggerType(chi.URLParam(r, "trigger"))
	if err := h.admin.ClearCooldown(r.Context(), trigger); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListViolations implements GET /admin/rate-limit/violations.
// Query params: identity (optional key), limit, offset.
func (h *Handler) HandleListViolations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	found, err := h.admin.ListViolations(r.Context(), q.Get("identity"), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, found)
}

// adminPrincipal names the operator for audit trails. Tokens are shared
// per-operator, so the caller self-identifies via header.
func adminPrincipal(r *http.Request) string {
	if v := r.Header.Get("X-Admin-Principal"); v != "" {
		return v
	}
	return "admin"
}
