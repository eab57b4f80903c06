package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"

	"traineeship/db"
	"traineeship/internal/apperr"
	"traineeship/internal/auth"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	nationalIDRe   = regexp.MustCompile(`^\d{10}$`)
	universityIDRe = regexp.MustCompile(`^\d{7}$`)
	emailRe        = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
)

type tokenResponse struct {
	Token   string      `json:"token"`
	Account *db.Account `json:"account"`
	Profile interface{} `json:"profile,omitempty"`
}

func (h *Handler) tokenResponse(w http.ResponseWriter, status int, account *db.Account, profile interface{}) {
	token, err := auth.GenerateToken(account.ID, account.Role, h.JWTSecret)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, status, tokenResponse{Token: token, Account: account, Profile: profile})
}

// RegisterCompanyHandler обрабатывает POST /api/auth/register/company
func (h *Handler) RegisterCompanyHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		NationalID  string `json:"nationalId"`
		Name        string `json:"name"`
		Phone       string `json:"phone"`
		Location    string `json:"location"`
		FieldOfWork string `json:"fieldOfWork"`
		Password    string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, apperr.New(apperr.ErrValidation, "invalid JSON format"))
		return
	}

	if !nationalIDRe.MatchString(input.NationalID) {
		h.respondError(w, apperr.New(apperr.ErrValidation, "national ID must be 10 digits"))
		return
	}
	if input.Name == "" || input.Phone == "" || input.Location == "" || input.FieldOfWork == "" {
		h.respondError(w, apperr.New(apperr.ErrValidation, "name, phone, location and fieldOfWork are required"))
		return
	}
	if len(input.Password) < 6 {
		h.respondError(w, apperr.New(apperr.ErrValidation, "password must be at least 6 characters"))
		return
	}

	if _, err := h.Store.GetCompanyByNationalID(r.Context(), input.NationalID); err == nil {
		h.respondError(w, apperr.New(apperr.ErrConflict, "company with this national ID already exists"))
		return
	} else if !db.IsNotFound(err) {
		h.respondError(w, err)
		return
	}

	// Проверка в реестре министерства; отрицательный ответ окончателен для этой попытки
	verified, err := h.Ministry.VerifyCompany(r.Context(), input.NationalID)
	if err != nil {
		h.respondError(w, apperr.New(apperr.ErrDependency, "ministry verification service unavailable"))
		return
	}
	if !verified {
		h.respondError(w, apperr.New(apperr.ErrValidation, "company is not registered with the ministry of industry and trade"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(w, err)
		return
	}

	account := &db.Account{Role: db.RoleCompany, PasswordHash: string(hash)}
	if err := h.Store.CreateAccount(r.Context(), account); err != nil {
		h.respondError(w, err)
		return
	}

	company := &db.Company{
		AccountID:   account.ID,
		NationalID:  input.NationalID,
		Name:        input.Name,
		Phone:       input.Phone,
		Location:    input.Location,
		FieldOfWork: input.FieldOfWork,
		Verified:    true, // реестр уже подтвердил
	}
	if err := h.Store.CreateCompany(r.Context(), company); err != nil {
		if db.IsUniqueViolation(err) {
			h.respondError(w, apperr.New(apperr.ErrConflict, "company with this national ID already exists"))
			return
		}
		h.respondError(w, err)
		return
	}

	h.Log.Info("company registered",
		zap.String("name", company.Name),
		zap.String("nationalId", company.NationalID))

	h.tokenResponse(w, http.StatusCreated, account, company)
}

// RegisterStudentHandler обрабатывает POST /api/auth/register/student
func (h *Handler) RegisterStudentHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UniversityID   string `json:"universityId"`
		Name           string `json:"name"`
		Department     string `json:"department"`
		CompletedHours int    `json:"completedHours"`
		Password       string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, apperr.New(apperr.ErrValidation, "invalid JSON format"))
		return
	}

	if !universityIDRe.MatchString(input.UniversityID) {
		h.respondError(w, apperr.New(apperr.ErrValidation, "university ID must be 7 digits"))
		return
	}
	if input.Name == "" {
		h.respondError(w, apperr.New(apperr.ErrValidation, "name is required"))
		return
	}
	if !db.Departments[input.Department] {
		h.respondError(w, apperr.New(apperr.ErrValidation, "invalid department"))
		return
	}
	if input.CompletedHours < 0 {
		h.respondError(w, apperr.New(apperr.ErrValidation, "completedHours must be non-negative"))
		return
	}
	if len(input.Password) < 6 {
		h.respondError(w, apperr.New(apperr.ErrValidation, "password must be at least 6 characters"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(w, err)
		return
	}

	account := &db.Account{Role: db.RoleStudent, PasswordHash: string(hash)}
	if err := h.Store.CreateAccount(r.Context(), account); err != nil {
		h.respondError(w, err)
		return
	}

	student := &db.Student{
		AccountID:      account.ID,
		UniversityID:   input.UniversityID,
		Name:           input.Name,
		Department:     input.Department,
		CompletedHours: input.CompletedHours,
		TrainingStatus: db.TrainingNotStarted,
	}
	if err := h.Store.CreateStudent(r.Context(), student); err != nil {
		if db.IsUniqueViolation(err) {
			h.respondError(w, apperr.New(apperr.ErrConflict, "student with this university ID already exists"))
			return
		}
		h.respondError(w, err)
		return
	}

	h.Log.Info("student registered",
		zap.String("name", student.Name),
		zap.String("universityId", student.UniversityID))

	h.tokenResponse(w, http.StatusCreated, account, student)
}

// RegisterDepartmentHeadHandler обрабатывает POST /api/auth/register/department-head
func (h *Handler) RegisterDepartmentHeadHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		Department string `json:"department"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, apperr.New(apperr.ErrValidation, "invalid JSON format"))
		return
	}

	if input.Name == "" {
		h.respondError(w, apperr.New(apperr.ErrValidation, "name is required"))
		return
	}
	if !emailRe.MatchString(input.Email) {
		h.respondError(w, apperr.New(apperr.ErrValidation, "please provide a valid email"))
		return
	}
	if !db.Departments[input.Department] {
		h.respondError(w, apperr.New(apperr.ErrValidation, "invalid department"))
		return
	}
	if len(input.Password) < 6 {
		h.respondError(w, apperr.New(apperr.ErrValidation, "password must be at least 6 characters"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(w, err)
		return
	}

	account := &db.Account{Role: db.RoleDepartmentHead, PasswordHash: string(hash)}
	if err := h.Store.CreateAccount(r.Context(), account); err != nil {
		h.respondError(w, err)
		return
	}

	head := &db.DepartmentHead{
		AccountID:  account.ID,
		Name:       input.Name,
		Email:      input.Email,
		Department: input.Department,
	}
	if err := h.Store.CreateDepartmentHead(r.Context(), head); err != nil {
		// уникальность отделения - один руководитель на отделение
		if db.IsUniqueViolation(err) {
			h.respondError(w, apperr.New(apperr.ErrConflict, "department already has a head or email is in use"))
			return
		}
		h.respondError(w, err)
		return
	}

	h.Log.Info("department head registered",
		zap.String("name", head.Name),
		zap.String("department", head.Department))

	h.tokenResponse(w, http.StatusCreated, account, head)
}

// LoginHandler обрабатывает POST /api/auth/login.
// Руководитель входит по email, студент по universityId, компания по nationalId.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email        string `json:"email"`
		UniversityID string `json:"universityId"`
		NationalID   string `json:"nationalId"`
		Password     string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, apperr.New(apperr.ErrValidation, "invalid JSON format"))
		return
	}
	if input.Password == "" {
		h.respondError(w, apperr.New(apperr.ErrValidation, "password is required"))
		return
	}

	var (
		accountID int
		profile   interface{}
	)
	ctx := r.Context()

	switch {
	case input.Email != "":
		head, err := h.Store.GetDepartmentHeadByEmail(ctx, input.Email)
		if err != nil {
			h.invalidCredentials(w, err)
			return
		}
		accountID, profile = head.AccountID, head
	case input.UniversityID != "":
		student, err := h.Store.GetStudentByUniversityID(ctx, input.UniversityID)
		if err != nil {
			h.invalidCredentials(w, err)
			return
		}
		accountID, profile = student.AccountID, student
	case input.NationalID != "":
		company, err := h.Store.GetCompanyByNationalID(ctx, input.NationalID)
		if err != nil {
			h.invalidCredentials(w, err)
			return
		}
		accountID, profile = company.AccountID, company
	default:
		h.respondError(w, apperr.New(apperr.ErrValidation, "provide email, universityId or nationalId"))
		return
	}

	account, err := h.Store.GetAccount(ctx, accountID)
	if err != nil {
		h.invalidCredentials(w, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)) != nil {
		h.respondError(w, apperr.New(apperr.ErrAuthorization, "invalid credentials"))
		return
	}

	h.Log.Info("login", zap.Int("accountId", account.ID), zap.String("role", account.Role))

	h.tokenResponse(w, http.StatusOK, account, profile)
}

// invalidCredentials скрывает, какая именно часть учетных данных не подошла.
func (h *Handler) invalidCredentials(w http.ResponseWriter, err error) {
	if db.IsNotFound(err) {
		h.respondError(w, apperr.New(apperr.ErrAuthorization, "invalid credentials"))
		return
	}
	h.respondError(w, err)
}

// MeHandler обрабатывает GET /api/auth/me
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := h.identity(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	account, err := h.Store.GetAccount(r.Context(), id.AccountID)
	if err != nil {
		if db.IsNotFound(err) {
			h.respondError(w, apperr.New(apperr.ErrNotFound, "account not found"))
			return
		}
		h.respondError(w, err)
		return
	}

	var profile interface{}
	switch account.Role {
	case db.RoleCompany:
		profile, err = h.Store.GetCompanyByAccount(r.Context(), account.ID)
	case db.RoleStudent:
		var student *db.Student
		student, err = h.Store.GetStudentByAccount(r.Context(), account.ID)
		if err == nil {
			h.repairStudentStatus(r, student)
			profile = student
		}
	case db.RoleDepartmentHead:
		profile, err = h.Store.GetDepartmentHeadByAccount(r.Context(), account.ID)
	}
	if err != nil && !db.IsNotFound(err) {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"account": account,
		"profile": profile,
	})
}

// UpdatePasswordHandler обрабатывает PUT /api/auth/updatepassword
func (h *Handler) UpdatePasswordHandler(w http.ResponseWriter, r *http.Request) {
	id, err := h.identity(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var input struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, apperr.New(apperr.ErrValidation, "invalid JSON format"))
		return
	}
	if len(input.NewPassword) < 6 {
		h.respondError(w, apperr.New(apperr.ErrValidation, "new password must be at least 6 characters"))
		return
	}

	account, err := h.Store.GetAccount(r.Context(), id.AccountID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.CurrentPassword)) != nil {
		h.respondError(w, apperr.New(apperr.ErrAuthorization, "current password is incorrect"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.Store.UpdateAccountPassword(r.Context(), account.ID, string(hash)); err != nil {
		h.respondError(w, err)
		return
	}

	h.Log.Info("password updated", zap.Int("accountId", account.ID))

	h.tokenResponse(w, http.StatusOK, account, nil)
}
