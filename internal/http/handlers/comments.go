package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/news-portal/internal/http/errors"
)

func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	list, err := h.svc.ListComments(r.Context(), p)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, commentsFromModel(list))
}

func (h *Handlers) CommentsByNews(w http.ResponseWriter, r *http.Request) {
	newsID, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	p, err := listParams(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	list, err := h.svc.CommentsByNews(r.Context(), newsID, p)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, commentsFromModel(list))
}

func (h *Handlers) GetComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	c, err := h.svc.GetComment(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, commentFromModel(c))
}

func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	newsID, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in CommentRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	c, err := h.svc.CreateComment(r.Context(), caller, newsID, in.Text)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, commentFromModel(c))
}

func (h *Handlers) UpdateComment(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in CommentRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	c, err := h.svc.UpdateComment(r.Context(), caller, id, in.Text)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, commentFromModel(c))
}

func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteComment(r.Context(), caller, id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "comment deleted"})
}
