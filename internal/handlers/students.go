package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"traineeship/db"
	"traineeship/internal/apperr"
	"traineeship/internal/filestore"

	"go.uber.org/zap"
)

const maxCVSize = 5 << 20 // 5MB

var allowedCVExtensions = map[string]bool{".pdf": true, ".doc": true, ".docx": true}

// GetAvailablePostsHandler возвращает доступные студентам объявления:
// APPROVED и строго до availableUntil на момент запроса.
func (h *Handler) GetAvailablePostsHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.studentProfile(r); err != nil {
		h.respondError(w, err)
		return
	}

	now := h.Now()
	posts, err := h.Store.ListPosts(r.Context(), db.PostApproved, &now)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, posts)
}

// ApplyHandler обрабатывает POST /api/students/posts/{postId}/apply.
// Резюме приходит multipart-файлом "cv"; хранится только дескриптор.
func (h *Handler) ApplyHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "postId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	student, err := h.studentProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	// Порог допуска к практике
	if student.CompletedHours < 80 {
		h.respondError(w, apperr.New(apperr.ErrValidation, "you must complete at least 80 credit hours to apply for training"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCVSize)
	file, header, err := r.FormFile("cv")
	if err != nil {
		h.respondError(w, apperr.New(apperr.ErrValidation, "please upload your CV"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedCVExtensions[ext] {
		h.respondError(w, apperr.New(apperr.ErrValidation, "only PDF, DOC, or DOCX files are allowed"))
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		h.respondError(w, apperr.New(apperr.ErrValidation, "failed to read CV file"))
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
	if !post.AvailableAt(h.Now()) {
		h.respondError(w, apperr.New(apperr.ErrConflict, "this training post is not available for applications"))
		return
	}

	cvHandle, err := h.Files.Save(filestore.KindCV, ext, content)
	if err != nil {
		h.respondError(w, err)
		return
	}

	application := &db.Application{
		StudentID:      student.ID,
		TrainingPostID: post.ID,
		CV:             cvHandle,
		Status:         db.ApplicationUnderReview,
	}
	// Дубликат пары (student, post) ловит уникальный индекс, а не предварительное чтение
	if err := h.Store.CreateApplication(r.Context(), application); err != nil {
		if db.IsUniqueViolation(err) {
			h.respondError(w, apperr.New(apperr.ErrConflict, "you have already applied for this training post"))
			return
		}
		h.respondError(w, err)
		return
	}

	h.Log.Info("application submitted",
		zap.Int("studentId", student.ID),
		zap.String("universityId", student.UniversityID),
		zap.Int("postId", post.ID))

	h.respondJSON(w, http.StatusCreated, application)
}

// GetStudentApplicationsHandler возвращает заявки студента
func (h *Handler) GetStudentApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	student, err := h.studentProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.repairStudentStatus(r, student)

	apps, err := h.Store.ListStudentApplications(r.Context(), student.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apps)
}

// repairStudentStatus чинит восстановимую рассинхронизацию: выбранная заявка
// есть, а агрегатный статус остался NOT_STARTED (вторая запись select не прошла).
func (h *Handler) repairStudentStatus(r *http.Request, student *db.Student) {
	if student.TrainingStatus != db.TrainingNotStarted {
		return
	}
	if _, err := h.Store.GetSelectedApplication(r.Context(), student.ID); err != nil {
		return
	}
	repaired, err := h.Store.UpdateStudentStatus(r.Context(), student.ID,
		db.TrainingNotStarted, db.TrainingWaitingForApproval)
	if err != nil {
		h.Log.Warn("student status repair failed", zap.Int("studentId", student.ID), zap.Error(err))
		return
	}
	if repaired {
		student.TrainingStatus = db.TrainingWaitingForApproval
		h.Log.Info("student status repaired", zap.Int("studentId", student.ID))
	}
}

// SelectApplicationHandler обрабатывает PUT /api/students/applications/{applicationId}/select.
// Сначала флаг на заявке (его стережет частичный уникальный индекс), потом статус студента.
func (h *Handler) SelectApplicationHandler(w http.ResponseWriter, r *http.Request) {
	applicationID, err := parseIDParam(r, "applicationId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	student, err := h.studentProfile(r)
	if err != nil {
		h.respondError(w, err)
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
	if application.StudentID != student.ID {
		h.respondError(w, apperr.New(apperr.ErrAuthorization, "not your resource"))
		return
	}
	if application.Status != db.ApplicationApproved {
		h.respondError(w, apperr.New(apperr.ErrConflict, "you can only select approved applications"))
		return
	}

	// Предварительная проверка существующего выбора - для внятной ошибки;
	// решает все равно запись ниже
	if _, err := h.Store.GetSelectedApplication(r.Context(), student.ID); err == nil {
		h.respondError(w, apperr.New(apperr.ErrConflict, "you have already selected another application for training"))
		return
	} else if !db.IsNotFound(err) {
		h.respondError(w, err)
		return
	}

	selected, err := h.Store.SelectApplication(r.Context(), application.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			h.respondError(w, apperr.New(apperr.ErrConflict, "you have already selected another application for training"))
			return
		}
		h.respondError(w, err)
		return
	}
	if !selected {
		h.respondError(w, apperr.New(apperr.ErrConflict, "application cannot be selected"))
		return
	}
	application.SelectedByStudent = true

	// Вторая запись; при сбое состояние чинит repairStudentStatus на следующем чтении
	if _, err := h.Store.UpdateStudentStatus(r.Context(), student.ID,
		student.TrainingStatus, db.TrainingWaitingForApproval); err != nil {
		h.respondError(w, err)
		return
	}

	h.Log.Info("application selected",
		zap.Int("studentId", student.ID),
		zap.String("universityId", student.UniversityID),
		zap.Int("applicationId", application.ID))

	h.respondJSON(w, http.StatusOK, application)
}

// SubmitFinalReportHandler обрабатывает POST /api/students/training/report.
// Завершение проверяется только в момент подачи: если отчетов компании еще
// меньше двух, статус остается IN_TRAINING и задним числом не завершается.
func (h *Handler) SubmitFinalReportHandler(w http.ResponseWriter, r *http.Request) {
	student, err := h.studentProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var input struct {
		ReportContent string `json:"reportContent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.ReportContent == "" {
		h.respondError(w, apperr.New(apperr.ErrValidation, "final report content is required"))
		return
	}

	if student.TrainingStatus != db.TrainingInProgress {
		h.respondError(w, apperr.New(apperr.ErrConflict, "you must be in training to submit a final report"))
		return
	}

	application, err := h.Store.GetSelectedApplication(r.Context(), student.ID)
	if err != nil {
		if db.IsNotFound(err) {
			h.respondError(w, apperr.New(apperr.ErrNotFound, "no selected application found"))
			return
		}
		h.respondError(w, err)
		return
	}

	handle, err := h.Files.Save(filestore.KindFinal, ".txt", []byte(input.ReportContent))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.Store.SetFinalReport(r.Context(), application.ID, handle); err != nil {
		h.respondError(w, err)
		return
	}
	application.FinalReport = &handle

	completed := false
	if len(application.ActivityReports) >= 2 {
		completed, err = h.Store.UpdateStudentStatus(r.Context(), student.ID,
			db.TrainingInProgress, db.TrainingCompleted)
		if err != nil {
			h.respondError(w, err)
			return
		}
		if completed {
			student.TrainingStatus = db.TrainingCompleted
		}
	}

	h.Log.Info("final report submitted",
		zap.Int("studentId", student.ID),
		zap.String("universityId", student.UniversityID),
		zap.Int("applicationId", application.ID),
		zap.Bool("completed", completed))

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"application":    application,
		"trainingStatus": student.TrainingStatus,
	})
}
