package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Роли действующих лиц
const (
	RoleCompany        = "company"
	RoleStudent        = "student"
	RoleDepartmentHead = "department-head"
)

// Статусы объявления о тренировке
const (
	PostPending  = "PENDING"
	PostApproved = "APPROVED"
	PostRejected = "REJECTED"
)

// Статусы заявки (решение компании)
const (
	ApplicationUnderReview = "UNDER_REVIEW"
	ApplicationApproved    = "APPROVED"
	ApplicationRejected    = "REJECTED"
)

// Агрегатный статус тренировки студента
const (
	TrainingNotStarted         = "NOT_STARTED"
	TrainingWaitingForApproval = "WAITING_FOR_APPROVAL"
	TrainingInProgress         = "IN_TRAINING"
	TrainingCompleted          = "COMPLETED"
)

// Departments - допустимые отделения университета.
var Departments = map[string]bool{
	"SW": true, "CIS": true, "BIT": true, "AI": true, "CS": true, "CYBER": true,
}

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// IsNotFound сообщает, что запись не найдена.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation сообщает о нарушении уникального индекса (дубликат или гонка).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Account (Учетная запись) - только учетные данные; профиль лежит в таблице своей роли
type Account struct {
	ID           int       `db:"id" json:"id"`
	Role         string    `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

func (s *Storage) CreateAccount(ctx context.Context, a *Account) error {
	query := `
        INSERT INTO account (role, password_hash)
        VALUES ($1, $2)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query, a.Role, a.PasswordHash).
		Scan(&a.ID, &a.CreatedAt)
}

func (s *Storage) GetAccount(ctx context.Context, id int) (*Account, error) {
	a := &Account{}
	query := `SELECT * FROM account WHERE id=$1`
	err := s.db.GetContext(ctx, a, query, id)
	return a, err
}

func (s *Storage) UpdateAccountPassword(ctx context.Context, id int, passwordHash string) error {
	query := `UPDATE account SET password_hash=$1 WHERE id=$2`
	_, err := s.db.ExecContext(ctx, query, passwordHash, id)
	return err
}

// Company (Компания)
type Company struct {
	ID          int       `db:"id" json:"id"`
	AccountID   int       `db:"account_id" json:"-"`
	NationalID  string    `db:"national_id" json:"nationalId"`
	Name        string    `db:"name" json:"name"`
	Phone       string    `db:"phone" json:"phone"`
	Location    string    `db:"location" json:"location"`
	FieldOfWork string    `db:"field_of_work" json:"fieldOfWork"`
	Verified    bool      `db:"verified" json:"verified"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

func (s *Storage) CreateCompany(ctx context.Context, c *Company) error {
	query := `
        INSERT INTO company (account_id, national_id, name, phone, location, field_of_work, verified)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query,
		c.AccountID, c.NationalID, c.Name, c.Phone, c.Location, c.FieldOfWork, c.Verified).
		Scan(&c.ID, &c.CreatedAt)
}

func (s *Storage) GetCompanyByAccount(ctx context.Context, accountID int) (*Company, error) {
	c := &Company{}
	query := `SELECT * FROM company WHERE account_id=$1`
	err := s.db.GetContext(ctx, c, query, accountID)
	return c, err
}

func (s *Storage) GetCompanyByNationalID(ctx context.Context, nationalID string) (*Company, error) {
	c := &Company{}
	query := `SELECT * FROM company WHERE national_id=$1`
	err := s.db.GetContext(ctx, c, query, nationalID)
	return c, err
}

func (s *Storage) UpdateCompanyProfile(ctx context.Context, c *Company) error {
	query := `
        UPDATE company
        SET name=$1, phone=$2, location=$3, field_of_work=$4
        WHERE id=$5`
	_, err := s.db.ExecContext(ctx, query, c.Name, c.Phone, c.Location, c.FieldOfWork, c.ID)
	return err
}

// Student (Студент)
type Student struct {
	ID             int       `db:"id" json:"id"`
	AccountID      int       `db:"account_id" json:"-"`
	UniversityID   string    `db:"university_id" json:"universityId"`
	Name           string    `db:"name" json:"name"`
	Department     string    `db:"department" json:"department"`
	CompletedHours int       `db:"completed_hours" json:"completedHours"`
	TrainingStatus string    `db:"training_status" json:"trainingStatus"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

func (s *Storage) CreateStudent(ctx context.Context, st *Student) error {
	query := `
        INSERT INTO student (account_id, university_id, name, department, completed_hours, training_status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query,
		st.AccountID, st.UniversityID, st.Name, st.Department, st.CompletedHours, st.TrainingStatus).
		Scan(&st.ID, &st.CreatedAt)
}

func (s *Storage) GetStudent(ctx context.Context, id int) (*Student, error) {
	st := &Student{}
	query := `SELECT * FROM student WHERE id=$1`
	err := s.db.GetContext(ctx, st, query, id)
	return st, err
}

func (s *Storage) GetStudentByAccount(ctx context.Context, accountID int) (*Student, error) {
	st := &Student{}
	query := `SELECT * FROM student WHERE account_id=$1`
	err := s.db.GetContext(ctx, st, query, accountID)
	return st, err
}

func (s *Storage) GetStudentByUniversityID(ctx context.Context, universityID string) (*Student, error) {
	st := &Student{}
	query := `SELECT * FROM student WHERE university_id=$1`
	err := s.db.GetContext(ctx, st, query, universityID)
	return st, err
}

func (s *Storage) ListStudentsByDepartment(ctx context.Context, department string) ([]Student, error) {
	students := []Student{}
	query := `SELECT * FROM student WHERE department=$1 ORDER BY name ASC`
	err := s.db.SelectContext(ctx, &students, query, department)
	return students, err
}

// UpdateStudentStatus переводит агрегатный статус студента from -> to.
// Условный UPDATE вместо транзакции: конкурирующий писатель получит 0 строк.
func (s *Storage) UpdateStudentStatus(ctx context.Context, studentID int, from, to string) (bool, error) {
	query := `UPDATE student SET training_status=$1 WHERE id=$2 AND training_status=$3`
	res, err := s.db.ExecContext(ctx, query, to, studentID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DepartmentHead (Руководитель отделения) - по одному на отделение
type DepartmentHead struct {
	ID         int       `db:"id" json:"id"`
	AccountID  int       `db:"account_id" json:"-"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	Department string    `db:"department" json:"department"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

func (s *Storage) CreateDepartmentHead(ctx context.Context, h *DepartmentHead) error {
	query := `
        INSERT INTO department_head (account_id, name, email, department)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query, h.AccountID, h.Name, h.Email, h.Department).
		Scan(&h.ID, &h.CreatedAt)
}

func (s *Storage) GetDepartmentHeadByAccount(ctx context.Context, accountID int) (*DepartmentHead, error) {
	h := &DepartmentHead{}
	query := `SELECT * FROM department_head WHERE account_id=$1`
	err := s.db.GetContext(ctx, h, query, accountID)
	return h, err
}

func (s *Storage) GetDepartmentHeadByEmail(ctx context.Context, email string) (*DepartmentHead, error) {
	h := &DepartmentHead{}
	query := `SELECT * FROM department_head WHERE email=$1`
	err := s.db.GetContext(ctx, h, query, email)
	return h, err
}
