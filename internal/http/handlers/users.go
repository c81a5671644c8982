package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/news-portal/internal/http/errors"
	"github.com/pribylovaa/news-portal/internal/service"
)

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	list, err := h.svc.ListUsers(r.Context(), p)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, usersFromModel(list))
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	u, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(u))
}

// UpdateProfile меняет только имя и аватар; роли правит /admin.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	userID, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in UpdateProfileRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), caller, userID, service.ProfileUpdate{
		Name:   in.Name,
		Avatar: in.Avatar,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(u))
}

func (h *Handlers) AvatarPresign(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	userID, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in AvatarPresignRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	info, err := h.svc.AvatarUploadURL(r.Context(), caller, userID, in.ContentType, in.ContentLength)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, presignFromModel(info))
}

func (h *Handlers) AvatarConfirm(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	userID, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in AvatarConfirmRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	u, err := h.svc.ConfirmAvatar(r.Context(), caller, userID, in.AvatarKey)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(u))
}
