package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"traineeship/db"
	"traineeship/internal/apperr"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func parseIDParam(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, apperr.Newf(apperr.ErrValidation, "invalid %s", name)
	}
	return id, nil
}

// CreatePostHandler обрабатывает POST /api/training-posts
func (h *Handler) CreatePostHandler(w http.ResponseWriter, r *http.Request) {
	company, err := h.companyProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var input struct {
		Title          string    `json:"title"`
		Duration       int       `json:"duration"`
		Location       string    `json:"location"`
		AvailableUntil time.Time `json:"availableUntil"`
		Description    string    `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, apperr.New(apperr.ErrValidation, "invalid JSON format"))
		return
	}

	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" || input.Location == "" {
		h.respondError(w, apperr.New(apperr.ErrValidation, "title and location are required"))
		return
	}
	if input.Duration != 6 && input.Duration != 8 {
		h.respondError(w, apperr.New(apperr.ErrValidation, "duration must be either 6 or 8 weeks"))
		return
	}
	if !input.AvailableUntil.After(h.Now()) {
		h.respondError(w, apperr.New(apperr.ErrValidation, "availableUntil must be in the future"))
		return
	}

	// Статус при создании всегда PENDING независимо от входа
	post := &db.TrainingPost{
		CompanyID:      company.ID,
		Title:          input.Title,
		Duration:       input.Duration,
		Location:       input.Location,
		AvailableUntil: input.AvailableUntil,
		Status:         db.PostPending,
		Description:    input.Description,
	}
	if err := h.Store.CreatePost(r.Context(), post); err != nil {
		if db.IsUniqueViolation(err) {
			h.respondError(w, apperr.New(apperr.ErrConflict, "company already has a post with this title"))
			return
		}
		h.respondError(w, err)
		return
	}

	h.Log.Info("training post created",
		zap.Int("companyId", company.ID),
		zap.Int("postId", post.ID),
		zap.String("title", post.Title))

	h.respondJSON(w, http.StatusCreated, post)
}

// GetPostsHandler возвращает список объявлений с фильтром по статусу.
// Для status=APPROVED доступность пересчитывается по часам сервера.
func (h *Handler) GetPostsHandler(w http.ResponseWriter, r *http.Request) {
	status := strings.ToUpper(r.URL.Query().Get("status"))

	var now *time.Time
	if status == db.PostApproved {
		t := h.Now()
		now = &t
	}

	posts, err := h.Store.ListPosts(r.Context(), status, now)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, posts)
}

// GetPostHandler возвращает одно объявление
func (h *Handler) GetPostHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "postId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	post, err := h.Store.GetPost(r.Context(), postID)
	if err != nil {
		if db.IsNotFound(err) {
			h.respondError(w, apperr.New(apperr.ErrNotFound, "training post not found"))
			return
		}
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, post)
}

// UpdatePostHandler обрабатывает PUT /api/training-posts/{postId}.
// Частичное обновление: непереданные поля не трогаем.
func (h *Handler) UpdatePostHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "postId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	company, err := h.companyProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var input struct {
		Title          *string    `json:"title"`
		Duration       *int       `json:"duration"`
		Location       *string    `json:"location"`
		AvailableUntil *time.Time `json:"availableUntil"`
		Description    *string    `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, apperr.New(apperr.ErrValidation, "invalid JSON format"))
		return
	}

	post, err := h.Store.GetPost(r.Context(), postID)
	if err != nil {
		if db.IsNotFound(err) {
			h.respondError(w, apperr.New(apperr.ErrNotFound, "training post not found"))
			return
		}
		h.respondError(w, err)
		return
	}

	if post.CompanyID != company.ID {
		h.respondError(w, apperr.New(apperr.ErrAuthorization, "not your resource"))
		return
	}
	if post.Status != db.PostPending {
		h.respondError(w, apperr.New(apperr.ErrConflict, "post already finalized"))
		return
	}

	// Переданные поля перепроверяются по тем же правилам, что при создании
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			h.respondError(w, apperr.New(apperr.ErrValidation, "title must not be empty"))
			return
		}
		post.Title = title
	}
	if input.Duration != nil {
		if *input.Duration != 6 && *input.Duration != 8 {
			h.respondError(w, apperr.New(apperr.ErrValidation, "duration must be either 6 or 8 weeks"))
			return
		}
		post.Duration = *input.Duration
	}
	if input.Location != nil {
		post.Location = *input.Location
	}
	if input.AvailableUntil != nil {
		if !input.AvailableUntil.After(h.Now()) {
			h.respondError(w, apperr.New(apperr.ErrValidation, "availableUntil must be in the future"))
			return
		}
		post.AvailableUntil = *input.AvailableUntil
	}
	if input.Description != nil {
		post.Description = *input.Description
	}

	// Статус перечитывается на записи: проигравший гонку с рецензией получит конфликт
	updated, err := h.Store.UpdatePendingPost(r.Context(), post)
	if err != nil {
		if db.IsUniqueViolation(err) {
			h.respondError(w, apperr.New(apperr.ErrConflict, "company already has a post with this title"))
			return
		}
		h.respondError(w, err)
		return
	}
	if !updated {
		h.respondError(w, apperr.New(apperr.ErrConflict, "post already finalized"))
		return
	}

	h.Log.Info("training post updated",
		zap.Int("companyId", company.ID),
		zap.Int("postId", post.ID))

	h.respondJSON(w, http.StatusOK, post)
}

// DeletePostHandler отзывает объявление, пока оно PENDING
func (h *Handler) DeletePostHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "postId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	company, err := h.companyProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	post, err := h.Store.GetPost(r.Context(), postID)
	if err != nil {
		if db.IsNotFound(err) {
			h.respondError(w, apperr.New(apperr.ErrNotFound, "training post not found"))
			return
		}
		h.respondError(w, err)
		return
	}
	if post.CompanyID != company.ID {
		h.respondError(w, apperr.New(apperr.ErrAuthorization, "not your resource"))
		return
	}

	deleted, err := h.Store.DeletePendingPost(r.Context(), postID, company.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !deleted {
		h.respondError(w, apperr.New(apperr.ErrConflict, "post already finalized"))
		return
	}

	h.Log.Info("training post withdrawn",
		zap.Int("companyId", company.ID),
		zap.Int("postId", postID))

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "training post deleted"})
}
