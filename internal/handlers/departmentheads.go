package handlers

import (
	"encoding/json"
	"net/http"

	"traineeship/db"
	"traineeship/internal/apperr"
	"traineeship/internal/filestore"

	"go.uber.org/zap"
)

// GetDepartmentStudentsHandler возвращает студентов отделения руководителя
func (h *Handler) GetDepartmentStudentsHandler(w http.ResponseWriter, r *http.Request) {
	head, err := h.departmentHeadProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	students, err := h.Store.ListStudentsByDepartment(r.Context(), head.Department)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, students)
}

// GetPendingPostsHandler возвращает объявления, ожидающие рассмотрения.
// Объявления не привязаны к отделению - виден общий список.
func (h *Handler) GetPendingPostsHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.departmentHeadProfile(r); err != nil {
		h.respondError(w, err)
		return
	}

	posts, err := h.Store.ListPendingPosts(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, posts)
}

// ReviewPostHandler обрабатывает PUT /api/department-heads/posts/{postId}/review.
// Переход одноразовый: PENDING -> APPROVED/REJECTED, повторная рецензия - конфликт.
func (h *Handler) ReviewPostHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "postId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	head, err := h.departmentHeadProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, apperr.New(apperr.ErrValidation, "invalid JSON format"))
		return
	}
	if input.Status != db.PostApproved && input.Status != db.PostRejected {
		h.respondError(w, apperr.New(apperr.ErrValidation, "status must be either APPROVED or REJECTED"))
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
	if post.Status != db.PostPending {
		h.respondError(w, apperr.New(apperr.ErrConflict, "this post has already been reviewed"))
		return
	}

	// Условная запись сериализует двух рецензентов на поле статуса
	now := h.Now()
	reviewed, err := h.Store.ReviewPost(r.Context(), post.ID, input.Status, head.ID, now)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !reviewed {
		h.respondError(w, apperr.New(apperr.ErrConflict, "this post has already been reviewed"))
		return
	}
	post.Status = input.Status
	post.ApprovedBy = &head.ID
	post.ApprovedAt = &now

	h.Log.Info("training post reviewed",
		zap.Int("headId", head.ID),
		zap.String("department", head.Department),
		zap.Int("postId", post.ID),
		zap.String("status", input.Status))

	h.respondJSON(w, http.StatusOK, post)
}

// GetPendingApplicationsHandler возвращает выбранные заявки студентов отделения,
// ожидающих официального документа
func (h *Handler) GetPendingApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	head, err := h.departmentHeadProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	apps, err := h.Store.ListPendingDocumentApplications(r.Context(), head.Department)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apps)
}

// SubmitOfficialDocumentHandler обрабатывает POST /api/department-heads/applications/{applicationId}/document.
// Руководитель авторизует только студентов своего отделения.
func (h *Handler) SubmitOfficialDocumentHandler(w http.ResponseWriter, r *http.Request) {
	applicationID, err := parseIDParam(r, "applicationId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	head, err := h.departmentHeadProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var input struct {
		DocumentContent string `json:"documentContent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.DocumentContent == "" {
		h.respondError(w, apperr.New(apperr.ErrValidation, "document content is required"))
		return
	}

	application, err := h.Store.GetApplication(r.Context(), applicationID)
	if err != nil {
		if db.IsNotFound(err) {
			h.respondError(w, apperr.New(apperr.ErrNotFound, "application not found"))
			return
		}
		h.respondError(w, err)
		return
	}

	student, err := h.Store.GetStudent(r.Context(), application.StudentID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if student.Department != head.Department {
		h.respondError(w, apperr.New(apperr.ErrAuthorization, "this student is not in your department"))
		return
	}
	if student.TrainingStatus != db.TrainingWaitingForApproval {
		h.respondError(w, apperr.New(apperr.ErrConflict, "student is not waiting for approval"))
		return
	}

	handle, err := h.Files.Save(filestore.KindOfficial, ".txt", []byte(input.DocumentContent))
	if err != nil {
		h.respondError(w, err)
		return
	}

	// Документ пишется один раз; повторная подача - конфликт
	set, err := h.Store.SetOfficialDocument(r.Context(), application.ID, handle)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !set {
		h.respondError(w, apperr.New(apperr.ErrConflict, "official document has already been submitted"))
		return
	}
	application.OfficialDocument = &handle

	// Вторая запись пары: студент переходит в IN_TRAINING
	if _, err := h.Store.UpdateStudentStatus(r.Context(), student.ID,
		db.TrainingWaitingForApproval, db.TrainingInProgress); err != nil {
		h.respondError(w, err)
		return
	}

	h.Log.Info("official document submitted",
		zap.Int("headId", head.ID),
		zap.String("department", head.Department),
		zap.Int("applicationId", application.ID),
		zap.Int("studentId", student.ID))

	h.respondJSON(w, http.StatusOK, application)
}
