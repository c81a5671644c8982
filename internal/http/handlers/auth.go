package handlers

import (
	"net/http"
	"net/url"

	apierrors "github.com/pribylovaa/news-portal/internal/http/errors"
	"github.com/pribylovaa/news-portal/internal/service"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in RegisterRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), service.RegisterInput{
		Name:      in.Name,
		Email:     in.Email,
		Password:  in.Password,
		Avatar:    in.Avatar,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authFromModel(res))
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), in.Email, in.Password, r.UserAgent())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authFromModel(res))
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in RefreshRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), in.RefreshToken, r.UserAgent())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokensFromModel(*pair))
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var in RefreshRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.Logout(r.Context(), in.RefreshToken); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "successfully logged out"})
}

// Check возвращает текущего пользователя по access-токену.
func (h *Handlers) Check(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	u, err := h.svc.Me(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(u))
}

func (h *Handlers) Sessions(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	list, err := h.svc.Sessions(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionsFromModel(list))
}

func (h *Handlers) RevokeSession(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	sessionID, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.RevokeSession(r.Context(), id, sessionID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "session revoked"})
}

func (h *Handlers) CheckAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	userID, err := pathID(r, "user_id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	u, err := h.svc.CheckUser(r.Context(), id, userID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckAdminResponse{
		UserID:     u.ID,
		Name:       u.Name,
		Email:      u.Email,
		IsAdmin:    u.IsAdmin,
		IsVerified: u.IsVerified,
	})
}

// Демонстрационный GitHub OAuth: login -> demo -> callback.
// demo играет роль страницы авторизации GitHub.

func (h *Handlers) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	target := "demo"
	if h.oauth.GitHubClientID != "" {
		target += "?" + url.Values{"client_id": {h.oauth.GitHubClientID}}.Encode()
	}

	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (h *Handlers) GitHubDemo(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("client_id"); id != "" && id != h.oauth.GitHubClientID {
		apierrors.WriteError(w, r, apierrors.InvalidArgument("unknown client_id"))
		return
	}

	state, err := service.NewOAuthState()
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	redirect := h.oauth.GitHubRedirectURI
	if redirect == "" {
		redirect = "callback"
	}

	q := url.Values{}
	q.Set("code", service.DemoCode(state))
	q.Set("state", state)
	http.Redirect(w, r, redirect+"?"+q.Encode(), http.StatusTemporaryRedirect)
}

func (h *Handlers) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		apierrors.WriteError(w, r, apierrors.InvalidArgument("code is required"))
		return
	}

	res, err := h.svc.GitHubLogin(r.Context(), code, r.UserAgent())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authFromModel(res))
}
