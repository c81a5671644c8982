package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/news-portal/internal/http/errors"
	"github.com/pribylovaa/news-portal/internal/service"
)

func (h *Handlers) ListNews(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	list, err := h.svc.ListNews(r.Context(), p)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newsListFromModel(list))
}

func (h *Handlers) NewsByAuthor(w http.ResponseWriter, r *http.Request) {
	authorID, err := pathID(r, "author_id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	p, err := listParams(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	list, err := h.svc.NewsByAuthor(r.Context(), authorID, p)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newsListFromModel(list))
}

func (h *Handlers) GetNews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	n, err := h.svc.GetNews(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newsFromModel(n))
}

// CreateNews публикует новость от имени вызывающего (author_id из токена).
func (h *Handlers) CreateNews(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in NewsRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	n, err := h.svc.CreateNews(r.Context(), caller, service.NewsInput(in))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newsFromModel(n))
}

func (h *Handlers) UpdateNews(w http.ResponseWriter, r *http.Request) {
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

	var in NewsRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	n, err := h.svc.UpdateNews(r.Context(), caller, id, service.NewsInput(in))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newsFromModel(n))
}

func (h *Handlers) DeleteNews(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.DeleteNews(r.Context(), caller, id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "news and associated comments deleted"})
}
