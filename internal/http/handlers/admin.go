package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/news-portal/internal/http/errors"
	"github.com/pribylovaa/news-portal/internal/service"
)

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	st, err := h.svc.Stats(r.Context(), caller)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) SetUserFlags(w http.ResponseWriter, r *http.Request) {
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

	var in UserFlagsRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	u, err := h.svc.SetUserFlags(r.Context(), caller, userID, service.UserFlags(in))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(u))
}

func (h *Handlers) MakeAdmin(w http.ResponseWriter, r *http.Request) {
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

	u, err := h.svc.MakeAdmin(r.Context(), caller, userID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "user " + u.Email + " is now an admin"})
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.DeleteUser(r.Context(), caller, userID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "user deleted"})
}
