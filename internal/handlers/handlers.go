package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"traineeship/db"
	"traineeship/internal/apperr"
	"traineeship/internal/auth"
	"traineeship/internal/filestore"
	"traineeship/internal/ministry"

	"go.uber.org/zap"
)

// Handler оборачивает хранилище и внешние сервисы для доступа из хендлеров
type Handler struct {
	Store     StorageInterface
	Files     filestore.Store
	Ministry  ministry.Verifier
	Log       *zap.Logger
	JWTSecret string

	// Now подменяется в тестах для проверки границы availableUntil
	Now func() time.Time
}

// NewHandler создает новый Handler
func NewHandler(store StorageInterface, files filestore.Store, verifier ministry.Verifier, log *zap.Logger, jwtSecret string) *Handler {
	return &Handler{
		Store:     store,
		Files:     files,
		Ministry:  verifier,
		Log:       log,
		JWTSecret: jwtSecret,
		Now:       time.Now,
	}
}

// PingHandler отвечает "ok" для проверки сервера
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError переводит вид ошибки в HTTP-статус и структурированный ответ.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch {
		case errors.Is(appErr.Kind, apperr.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(appErr.Kind, apperr.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(appErr.Kind, apperr.ErrAuthorization):
			status = http.StatusForbidden
		case errors.Is(appErr.Kind, apperr.ErrConflict):
			status = http.StatusConflict
		case errors.Is(appErr.Kind, apperr.ErrDependency):
			status = http.StatusBadGateway
		}
	} else {
		// внутренние детали наружу не отдаем
		h.Log.Error("unhandled internal error", zap.Error(err))
	}

	h.respondJSON(w, status, map[string]interface{}{
		"error": map[string]string{"kind": apperr.KindName(err), "message": message},
	})
}

// identity достает личность запроса; роль уже проверена маршрутным middleware.
func (h *Handler) identity(r *http.Request) (*auth.Identity, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return nil, apperr.New(apperr.ErrAuthorization, "you are not logged in")
	}
	return id, nil
}

// companyProfile заново выводит профиль компании из личности вызывающего.
func (h *Handler) companyProfile(r *http.Request) (*db.Company, error) {
	id, err := h.identity(r)
	if err != nil {
		return nil, err
	}
	if id.Role != db.RoleCompany {
		return nil, apperr.New(apperr.ErrAuthorization, "not authorized for this role-action")
	}
	company, err := h.Store.GetCompanyByAccount(r.Context(), id.AccountID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.New(apperr.ErrNotFound, "company profile not found")
		}
		return nil, err
	}
	return company, nil
}

func (h *Handler) studentProfile(r *http.Request) (*db.Student, error) {
	id, err := h.identity(r)
	if err != nil {
		return nil, err
	}
	if id.Role != db.RoleStudent {
		return nil, apperr.New(apperr.ErrAuthorization, "not authorized for this role-action")
	}
	student, err := h.Store.GetStudentByAccount(r.Context(), id.AccountID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.New(apperr.ErrNotFound, "student profile not found")
		}
		return nil, err
	}
	return student, nil
}

func (h *Handler) departmentHeadProfile(r *http.Request) (*db.DepartmentHead, error) {
	id, err := h.identity(r)
	if err != nil {
		return nil, err
	}
	if id.Role != db.RoleDepartmentHead {
		return nil, apperr.New(apperr.ErrAuthorization, "not authorized for this role-action")
	}
	head, err := h.Store.GetDepartmentHeadByAccount(r.Context(), id.AccountID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.New(apperr.ErrNotFound, "department head profile not found")
		}
		return nil, err
	}
	return head, nil
}
