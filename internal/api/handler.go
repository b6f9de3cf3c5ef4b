// Package api serves the CyberXpert gateway: the dashboard read model and
// admin actions for the bearer of a backend-issued token.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cyberxpert/internal/dashboard"
	"cyberxpert/internal/domain"
	"cyberxpert/internal/identity"
	"cyberxpert/internal/ui"
	"cyberxpert/internal/visibility"
)

const maxBodyBytes = 1 << 20

// BackendFactory returns a backend client that authenticates with token.
// An empty token yields an anonymous client.
type BackendFactory func(token string) domain.Backend

// Handler implements the gateway endpoints.
type Handler struct {
	svc        *dashboard.Service
	newBackend BackendFactory
	decoder    identity.Decoder
	logger     *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc *dashboard.Service, newBackend BackendFactory, decoder identity.Decoder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, newBackend: newBackend, decoder: decoder, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type authResponse struct {
	domain.TokenPair
	User *domain.Principal `json:"user"`
}

type accountView struct {
	domain.UserAccount
	Actions visibility.Actions `json:"actions"`
}

type accountsResponse struct {
	Developers []accountView `json:"developers"`
	Admins     []accountView `json:"admins"`
}

type statusRequest struct {
	Status domain.Status `json:"status"`
}

// Login exchanges credentials for a token pair and the resolved principal.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	tokens, raw, err := h.newBackend("").Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	h.issue(w, r, http.StatusOK, tokens, raw)
}

// Signup registers a developer account and signs it in.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	tokens, raw, err := h.newBackend("").Signup(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	h.issue(w, r, http.StatusCreated, tokens, raw)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, status int, tokens domain.TokenPair, raw *domain.RawUser) {
	claims, err := h.decoder.Decode(r.Context(), tokens.Access)
	if err != nil {
		h.logger.WarnContext(r.Context(), "backend issued an undecodable token", "error", err)
		writeError(w, http.StatusBadGateway, domain.ErrInvalidToken.Error())
		return
	}
	writeJSON(w, status, authResponse{TokenPair: tokens, User: identity.Reconcile(claims, raw)})
}

// Refresh exchanges a refresh token for a new pair.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}
	tokens, err := h.newBackend("").RefreshToken(r.Context(), req.Refresh)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

// Logout revokes the refresh token upstream. The caller's cached data is
// dropped even when revocation fails.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	rs, _ := domain.RequestSessionFromContext(r.Context())
	h.svc.Forget(rs.Claims.SubjectID)
	if err := h.newBackend(rs.Token).Logout(r.Context(), req.Refresh); err != nil {
		h.logger.WarnContext(r.Context(), "remote logout failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the resolved principal.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Principal)
}

// Dashboard returns the full view for the principal.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.svc.View(r.Context(), *sess)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListTests returns the tests visible to the principal.
func (h *Handler) ListTests(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	tests, err := h.svc.Tests(r.Context(), *sess)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

// ListReports returns the reports visible to the principal.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	reports, err := h.svc.Reports(r.Context(), *sess)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// ListAccounts returns managed accounts with the actions allowed on each.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	part, err := h.svc.Accounts(r.Context(), *sess)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, accountsResponse{
		Developers: withActions(sess.Principal, part.Developers),
		Admins:     withActions(sess.Principal, part.Admins),
	})
}

func withActions(p *domain.Principal, accounts []domain.UserAccount) []accountView {
	out := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountView{UserAccount: a, Actions: visibility.AccountActions(p, a)})
	}
	return out
}

// CreateAccount creates a developer or admin account.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req domain.CreateAccountRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	acct, err := h.svc.CreateAccount(r.Context(), *sess, req)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

// UpdateAccountStatus suspends or reactivates an account.
func (h *Handler) UpdateAccountStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	acct, err := h.svc.SetAccountStatus(r.Context(), *sess, domain.ID(chi.URLParam(r, "accountID")), req.Status)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// DeleteAccount removes an account.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAccount(r.Context(), *sess, domain.ID(chi.URLParam(r, "accountID"))); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddressVulnerability marks a finding on a test as addressed.
func (h *Handler) AddressVulnerability(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	err := h.svc.AddressVulnerability(r.Context(), *sess,
		domain.ID(chi.URLParam(r, "testID")), domain.ID(chi.URLParam(r, "vulnID")))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkReportRead marks a report as read.
func (h *Handler) MarkReportRead(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkReportRead(r.Context(), *sess, domain.ID(chi.URLParam(r, "reportID"))); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Menu returns the navigation entries with badges.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	entries, err := h.svc.Menu(r.Context(), *sess)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Summary returns the dashboard counters.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.Summary(r.Context(), *sess)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// NavFragment renders the navigation as HTML. The "active" query parameter
// selects the highlighted entry.
func (h *Handler) NavFragment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	entries, err := h.svc.Menu(r.Context(), *sess)
	if err != nil {
		status := httpStatusFromDomainError(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "render nav failed", "error", err)
			msg = "internal server error"
		}
		ui.Render(w, status, ui.ErrorFragment(msg))
		return
	}
	ui.Render(w, http.StatusOK, ui.Nav(entries, r.URL.Query().Get("active")))
}

// session resolves the principal for the request's bearer token. On failure
// the error response has been written.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*dashboard.Session, bool) {
	rs, ok := domain.RequestSessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	claims := rs.Claims
	sess, err := h.svc.Authenticate(r.Context(), h.newBackend(rs.Token), &claims)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return nil, false
	}
	return sess, true
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
