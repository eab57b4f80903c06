package handlers

import (
	"encoding/json"
	"net/http"

	"traineeship/db"
	"traineeship/internal/apperr"
	"traineeship/internal/filestore"

	"go.uber.org/zap"
)

// UpdateCompanyProfileHandler обрабатывает PUT /api/companies/profile
func (h *Handler) UpdateCompanyProfileHandler(w http.ResponseWriter, r *http.Request) {
	company, err := h.companyProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var input struct {
		Name        *string `json:"name"`
		Phone       *string `json:"phone"`
		Location    *string `json:"location"`
		FieldOfWork *string `json:"fieldOfWork"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, apperr.New(apperr.ErrValidation, "invalid JSON format"))
		return
	}

	if input.Name != nil {
		company.Name = *input.Name
	}
	if input.Phone != nil {
		company.Phone = *input.Phone
	}
	if input.Location != nil {
		company.Location = *input.Location
	}
	if input.FieldOfWork != nil {
		company.FieldOfWork = *input.FieldOfWork
	}

	if err := h.Store.UpdateCompanyProfile(r.Context(), company); err != nil {
		h.respondError(w, err)
		return
	}

	h.Log.Info("company profile updated",
		zap.Int("companyId", company.ID),
		zap.String("nationalId", company.NationalID))

	h.respondJSON(w, http.StatusOK, company)
}

// GetCompanyPostsHandler возвращает объявления компании
func (h *Handler) GetCompanyPostsHandler(w http.ResponseWriter, r *http.Request) {
	company, err := h.companyProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	posts, err := h.Store.ListCompanyPosts(r.Context(), company.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, posts)
}

// GetCompanyApplicationsHandler возвращает заявки на объявления компании
func (h *Handler) GetCompanyApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	company, err := h.companyProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	apps, err := h.Store.ListCompanyApplications(r.Context(), company.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apps)
}

// companyApplication загружает заявку и проверяет, что ее объявление принадлежит компании.
func (h *Handler) companyApplication(r *http.Request, company *db.Company, applicationID int) (*db.Application, error) {
	application, err := h.Store.GetApplication(r.Context(), applicationID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.New(apperr.ErrNotFound, "application not found")
		}
		return nil, err
	}

	post, err := h.Store.GetPost(r.Context(), application.TrainingPostID)
	if err != nil {
		return nil, err
	}
	if post.CompanyID != company.ID {
		return nil, apperr.New(apperr.ErrAuthorization, "not your resource")
	}
	return application, nil
}

// DecideApplicationHandler обрабатывает PUT /api/companies/applications/{applicationId}.
// Решение одностороннее: UNDER_REVIEW -> APPROVED/REJECTED.
func (h *Handler) DecideApplicationHandler(w http.ResponseWriter, r *http.Request) {
	applicationID, err := parseIDParam(r, "applicationId")
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
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, apperr.New(apperr.ErrValidation, "invalid JSON format"))
		return
	}
	if input.Status != db.ApplicationApproved && input.Status != db.ApplicationRejected {
		h.respondError(w, apperr.New(apperr.ErrValidation, "status must be either APPROVED or REJECTED"))
		return
	}

	application, err := h.companyApplication(r, company, applicationID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	// Условная запись: второй решающий запрос увидит не-начальный статус и упадет
	decided, err := h.Store.DecideApplication(r.Context(), application.ID, input.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !decided {
		h.respondError(w, apperr.New(apperr.ErrConflict, "application has already been decided"))
		return
	}
	application.Status = input.Status

	h.Log.Info("application decided",
		zap.Int("companyId", company.ID),
		zap.Int("applicationId", application.ID),
		zap.String("status", input.Status))

	h.respondJSON(w, http.StatusOK, application)
}

// SubmitApprovalFileHandler обрабатывает POST /api/companies/applications/{applicationId}/approval
func (h *Handler) SubmitApprovalFileHandler(w http.ResponseWriter, r *http.Request) {
	applicationID, err := parseIDParam(r, "applicationId")
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
		FileContent string `json:"fileContent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.FileContent == "" {
		h.respondError(w, apperr.New(apperr.ErrValidation, "approval file content is required"))
		return
	}

	application, err := h.companyApplication(r, company, applicationID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if application.Status != db.ApplicationApproved {
		h.respondError(w, apperr.New(apperr.ErrConflict, "cannot submit approval files for an application that is not approved"))
		return
	}

	handle, err := h.Files.Save(filestore.KindApproval, ".txt", []byte(input.FileContent))
	if err != nil {
		h.respondError(w, err)
		return
	}

	count, err := h.Store.AppendApprovalFile(r.Context(), application.ID, handle)
	if err != nil {
		h.respondError(w, err)
		return
	}
	application.ApprovalFiles = append(application.ApprovalFiles, handle)

	// Первый файл одобрения закрепляет студента в WAITING_FOR_APPROVAL.
	// Повторное подтверждение того же статуса безвредно (0 строк).
	if count == 1 {
		if _, err := h.Store.UpdateStudentStatus(r.Context(), application.StudentID,
			db.TrainingWaitingForApproval, db.TrainingWaitingForApproval); err != nil {
			h.respondError(w, err)
			return
		}
	}

	h.Log.Info("approval file submitted",
		zap.Int("companyId", company.ID),
		zap.Int("applicationId", application.ID),
		zap.Int("approvalFiles", count))

	h.respondJSON(w, http.StatusOK, application)
}

// SubmitActivityReportHandler обрабатывает POST /api/companies/applications/{applicationId}/activity.
// Отчеты только дописываются; статус студента не меняется.
func (h *Handler) SubmitActivityReportHandler(w http.ResponseWriter, r *http.Request) {
	applicationID, err := parseIDParam(r, "applicationId")
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
		ReportContent string `json:"reportContent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.ReportContent == "" {
		h.respondError(w, apperr.New(apperr.ErrValidation, "activity report content is required"))
		return
	}

	application, err := h.companyApplication(r, company, applicationID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	student, err := h.Store.GetStudent(r.Context(), application.StudentID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if student.TrainingStatus != db.TrainingInProgress {
		h.respondError(w, apperr.New(apperr.ErrConflict, "student is not currently in training"))
		return
	}

	handle, err := h.Files.Save(filestore.KindActivity, ".txt", []byte(input.ReportContent))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.Store.AppendActivityReport(r.Context(), application.ID, handle); err != nil {
		h.respondError(w, err)
		return
	}
	application.ActivityReports = append(application.ActivityReports, handle)

	h.Log.Info("activity report submitted",
		zap.Int("companyId", company.ID),
		zap.Int("applicationId", application.ID))

	h.respondJSON(w, http.StatusOK, application)
}
