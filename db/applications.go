package db

import (
	"context"
	"time"

	"github.com/lib/pq"
)

// Application (Заявка студента на объявление)
type Application struct {
	ID                int            `db:"id" json:"id"`
	StudentID         int            `db:"student_id" json:"studentId"`
	TrainingPostID    int            `db:"training_post_id" json:"trainingPostId"`
	CV                string         `db:"cv" json:"cv"`
	Status            string         `db:"status" json:"status"`
	SelectedByStudent bool           `db:"selected_by_student" json:"selectedByStudent"`
	OfficialDocument  *string        `db:"official_document" json:"officialDocument,omitempty"`
	ApprovalFiles     pq.StringArray `db:"approval_files" json:"approvalFiles"`
	ActivityReports   pq.StringArray `db:"activity_reports" json:"activityReports"`
	FinalReport       *string        `db:"final_report" json:"finalReport,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt         *time.Time     `db:"updated_at" json:"-"`
}

// CreateApplication вставляет заявку. Дубликат пары (student, post)
// упирается в уникальный индекс - см. IsUniqueViolation.
func (s *Storage) CreateApplication(ctx context.Context, a *Application) error {
	query := `
        INSERT INTO application (student_id, training_post_id, cv, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query, a.StudentID, a.TrainingPostID, a.CV, a.Status).
		Scan(&a.ID, &a.CreatedAt)
}

func (s *Storage) GetApplication(ctx context.Context, id int) (*Application, error) {
	a := &Application{}
	query := `SELECT * FROM application WHERE id=$1`
	err := s.db.GetContext(ctx, a, query, id)
	return a, err
}

func (s *Storage) ListStudentApplications(ctx context.Context, studentID int) ([]Application, error) {
	apps := []Application{}
	query := `SELECT * FROM application WHERE student_id=$1 ORDER BY created_at DESC`
	err := s.db.SelectContext(ctx, &apps, query, studentID)
	return apps, err
}

func (s *Storage) ListCompanyApplications(ctx context.Context, companyID int) ([]Application, error) {
	apps := []Application{}
	query := `
        SELECT a.* FROM application a
        JOIN training_post p ON a.training_post_id = p.id
        WHERE p.company_id = $1
        ORDER BY a.created_at DESC`
	err := s.db.SelectContext(ctx, &apps, query, companyID)
	return apps, err
}

// ListPendingDocumentApplications - выбранные заявки студентов отделения,
// ожидающих официального документа.
func (s *Storage) ListPendingDocumentApplications(ctx context.Context, department string) ([]Application, error) {
	apps := []Application{}
	query := `
        SELECT a.* FROM application a
        JOIN student st ON a.student_id = st.id
        WHERE st.department = $1
          AND st.training_status = $2
          AND a.selected_by_student
          AND a.official_document IS NULL
        ORDER BY a.created_at ASC`
	err := s.db.SelectContext(ctx, &apps, query, department, TrainingWaitingForApproval)
	return apps, err
}

// DecideApplication - решение компании UNDER_REVIEW -> APPROVED/REJECTED.
// false означает, что решение уже принято другим запросом.
func (s *Storage) DecideApplication(ctx context.Context, id int, status string) (bool, error) {
	query := `
        UPDATE application
        SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3`
	res, err := s.db.ExecContext(ctx, query, status, id, ApplicationUnderReview)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SelectApplication выставляет selected_by_student на одобренной заявке.
// Единственность выбора на студента гарантирует частичный уникальный индекс:
// проигравший гонку запрос получает нарушение уникальности, а не второй выбор.
func (s *Storage) SelectApplication(ctx context.Context, id int) (bool, error) {
	query := `
        UPDATE application
        SET selected_by_student=TRUE, updated_at=NOW()
        WHERE id=$1 AND status=$2 AND NOT selected_by_student`
	res, err := s.db.ExecContext(ctx, query, id, ApplicationApproved)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Storage) GetSelectedApplication(ctx context.Context, studentID int) (*Application, error) {
	a := &Application{}
	query := `SELECT * FROM application WHERE student_id=$1 AND selected_by_student`
	err := s.db.GetContext(ctx, a, query, studentID)
	return a, err
}

// AppendApprovalFile дописывает файл одобрения и возвращает новый размер списка.
func (s *Storage) AppendApprovalFile(ctx context.Context, id int, handle string) (int, error) {
	var count int
	query := `
        UPDATE application
        SET approval_files = array_append(approval_files, $1), updated_at=NOW()
        WHERE id=$2
        RETURNING COALESCE(array_length(approval_files, 1), 0)`
	err := s.db.QueryRowContext(ctx, query, handle, id).Scan(&count)
	return count, err
}

func (s *Storage) AppendActivityReport(ctx context.Context, id int, handle string) error {
	query := `
        UPDATE application
        SET activity_reports = array_append(activity_reports, $1), updated_at=NOW()
        WHERE id=$2`
	_, err := s.db.ExecContext(ctx, query, handle, id)
	return err
}

// SetOfficialDocument записывает документ руководителя один раз.
func (s *Storage) SetOfficialDocument(ctx context.Context, id int, handle string) (bool, error) {
	query := `
        UPDATE application
        SET official_document=$1, updated_at=NOW()
        WHERE id=$2 AND official_document IS NULL`
	res, err := s.db.ExecContext(ctx, query, handle, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Storage) SetFinalReport(ctx context.Context, id int, handle string) error {
	query := `
        UPDATE application
        SET final_report=$1, updated_at=NOW()
        WHERE id=$2`
	_, err := s.db.ExecContext(ctx, query, handle, id)
	return err
}
