package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deepin-community/fprintd/internal/auth"
	"github.com/deepin-community/fprintd/internal/fprint"
	"github.com/deepin-community/fprintd/internal/logger"
	"github.com/deepin-community/fprintd/internal/usermgr"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginReply struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Admin     bool      `json:"admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ip := remoteIP(r)
	if !a.allowLogin(ip) {
		logger.Warn("login throttled for %s", ip)
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, CallReply{Error: &CallError{
			Name:    fprint.ErrorName(fprint.ErrPermissionDenied),
			Message: "Too many login attempts.",
		}})
		return
	}
	if a.auth == nil {
		writeCallError(w, fmt.Errorf("%w: password login is disabled", fprint.ErrPermissionDenied))
		return
	}

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeCallError(w, fmt.Errorf("%w: bad request body: %v", fprint.ErrInvalidArgument, err))
		return
	}
	username := strings.TrimSpace(req.Username)
	if !usermgr.ValidUsername(username) || req.Password == "" {
		writeCallError(w, fmt.Errorf("%w: username and password are required", fprint.ErrInvalidArgument))
		return
	}
	if err := a.auth.VerifyPassword(username, req.Password); err != nil {
		logger.Info("failed login attempt for user %s from %s", username, ip)
		writeCallError(w, fmt.Errorf("%w: %s", fprint.ErrPermissionDenied, auth.HumanAuthError(err)))
		return
	}
	admin, err := a.auth.IsAdmin(username)
	if err != nil {
		logger.Warn("admin lookup for %s failed: %v", username, err)
	}
	tok, err := auth.SignHS256(a.secret, username, admin, a.ttl)
	if err != nil {
		writeCallError(w, fmt.Errorf("failed to create token: %w", err))
		return
	}
	logger.Info("user %s logged in from %s", username, ip)
	writeJSON(w, http.StatusOK, loginReply{
		Token:     tok,
		Username:  username,
		Admin:     admin,
		ExpiresAt: time.Now().Add(a.ttl).UTC(),
	})
}

const keepAliveInterval = 15 * time.Second

// handleEvents streams device signals as server-sent events. The optional
// device query parameter restricts the stream to one object path.
func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	filter := r.URL.Query().Get("device")
	if filter != "" {
		if _, err := a.reg.Lookup(filter); err != nil {
			writeCallError(w, err)
			return
		}
	}

	ch, cancel := a.bus.Subscribe(filter, 0)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": subscribed\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				logger.Warn("encoding event failed: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Signal, b); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	states, err := a.reg.Snapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	data := statusPage{
		Report:      RenderMarkdown(StatusReport(states)),
		Subscribers: a.bus.Subscribers(),
		Generated:   time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.page.Execute(w, data); err != nil {
		logger.Error("status page render failed: %v", err)
	}
}
