package handlers

import (
	"context"
	"net/http"

	"github.com/echopoint/echopoint/internal/models"
	"github.com/echopoint/echopoint/internal/repositories"
	pkghttp "github.com/echopoint/echopoint/pkg/http"
	"github.com/go-chi/chi/v5"
)

// CommentFlows is the comment surface nested under posts.
type CommentFlows interface {
	Create(ctx context.Context, identity *models.Identity, postID, content string) (*models.Comment, error)
	Get(ctx context.Context, postID, commentID string) (*models.Comment, error)
	ListForPost(ctx context.Context, postID string, opts repositories.ListOptions) ([]*models.Comment, error)
	Update(ctx context.Context, identity *models.Identity, postID, commentID, content string) (*models.Comment, error)
	Delete(ctx context.Context, identity *models.Identity, postID, commentID string) error
}

type CommentHandler struct {
	flows CommentFlows
}

func NewCommentHandler(flows CommentFlows) *CommentHandler {
	return &CommentHandler{flows: flows}
}

type CommentContentRequest struct {
	Content string `json:"content" validate:"required,min=1"`
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOrErr(r)
	if err != nil {
		return err
	}

	postID := chi.URLParam(r, "postId")

	var req CommentContentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	comment, err := h.flows.Create(r.Context(), identity, postID, req.Content)
	if err != nil {
		return err
	}

	pkghttp.WriteData(w, http.StatusCreated, comment)
	return nil
}

func (h *CommentHandler) Get(w http.ResponseWriter, r *http.Request) error {
	postID := chi.URLParam(r, "postId")
	commentID := chi.URLParam(r, "commentId")

	comment, err := h.flows.Get(r.Context(), postID, commentID)
	if err != nil {
		return err
	}

	pkghttp.WriteData(w, http.StatusOK, map[string]interface{}{"comment": comment})
	return nil
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) error {
	postID := chi.URLParam(r, "postId")

	opts, err := repositories.ParseCommentListOptions(r.URL.Query())
	if err != nil {
		return err
	}

	comments, err := h.flows.ListForPost(r.Context(), postID, opts)
	if err != nil {
		return err
	}

	pkghttp.WriteJSON(w, http.StatusOK, pkghttp.Envelope{
		Status:  pkghttp.StatusSuccess,
		Results: len(comments),
		Data:    map[string]interface{}{"comments": comments},
	})
	return nil
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOrErr(r)
	if err != nil {
		return err
	}

	postID := chi.URLParam(r, "postId")
	commentID := chi.URLParam(r, "commentId")

	var req CommentContentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	comment, err := h.flows.Update(r.Context(), identity, postID, commentID, req.Content)
	if err != nil {
		return err
	}

	pkghttp.WriteData(w, http.StatusOK, map[string]interface{}{"comment": comment})
	return nil
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOrErr(r)
	if err != nil {
		return err
	}

	postID := chi.URLParam(r, "postId")
	commentID := chi.URLParam(r, "commentId")

	if err := h.flows.Delete(r.Context(), identity, postID, commentID); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
