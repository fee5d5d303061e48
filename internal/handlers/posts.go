package handlers

import (
	"context"
	"net/http"

	"github.com/echopoint/echopoint/internal/models"
	"github.com/echopoint/echopoint/internal/repositories"
	pkghttp "github.com/echopoint/echopoint/pkg/http"
	"github.com/go-chi/chi/v5"
)

// PostFlows is the post surface behind the identity middleware.
type PostFlows interface {
	Create(ctx context.Context, identity *models.Identity, title, content string) (*models.Post, error)
	Get(ctx context.Context, postID string) (*models.Post, error)
	List(ctx context.Context, opts repositories.ListOptions) ([]*models.Post, error)
	Update(ctx context.Context, identity *models.Identity, postID string, title, content *string) (*models.Post, error)
	Delete(ctx context.Context, identity *models.Identity, postID string) error
}

type PostHandler struct {
	flows PostFlows
}

func NewPostHandler(flows PostFlows) *PostHandler {
	return &PostHandler{flows: flows}
}

type CreatePostRequest struct {
	Title   string `json:"title" validate:"required,min=1"`
	Content string `json:"content" validate:"required,min=1"`
}

type UpdatePostRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOrErr(r)
	if err != nil {
		return err
	}

	var req CreatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	post, err := h.flows.Create(r.Context(), identity, req.Title, req.Content)
	if err != nil {
		return err
	}

	pkghttp.WriteData(w, http.StatusCreated, post)
	return nil
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) error {
	postID := chi.URLParam(r, "postId")

	post, err := h.flows.Get(r.Context(), postID)
	if err != nil {
		return err
	}

	pkghttp.WriteData(w, http.StatusOK, map[string]interface{}{"post": post})
	return nil
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) error {
	opts, err := repositories.ParsePostListOptions(r.URL.Query())
	if err != nil {
		return err
	}

	posts, err := h.flows.List(r.Context(), opts)
	if err != nil {
		return err
	}

	projected, err := repositories.ProjectFields(posts, opts.Fields)
	if err != nil {
		return err
	}

	pkghttp.WriteJSON(w, http.StatusOK, pkghttp.Envelope{
		Status:  pkghttp.StatusSuccess,
		Results: len(posts),
		Data:    map[string]interface{}{"posts": projected},
	})
	return nil
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOrErr(r)
	if err != nil {
		return err
	}

	postID := chi.URLParam(r, "postId")

	var req UpdatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	post, err := h.flows.Update(r.Context(), identity, postID, req.Title, req.Content)
	if err != nil {
		return err
	}

	pkghttp.WriteData(w, http.StatusOK, map[string]interface{}{"post": post})
	return nil
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOrErr(r)
	if err != nil {
		return err
	}

	postID := chi.URLParam(r, "postId")

	if err := h.flows.Delete(r.Context(), identity, postID); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
