package handlers

import (
	"context"
	"time"

	"traineeship/db"
)

type StorageInterface interface {
	CreateAccount(ctx context.Context, a *db.Account) error
	GetAccount(ctx context.Context, id int) (*db.Account, error)
	UpdateAccountPassword(ctx context.Context, id int, passwordHash string) error

	CreateCompany(ctx context.Context, c *db.Company) error
	GetCompanyByAccount(ctx context.Context, accountID int) (*db.Company, error)
	GetCompanyByNationalID(ctx context.Context, nationalID string) (*db.Company, error)
	UpdateCompanyProfile(ctx context.Context, c *db.Company) error

	CreateStudent(ctx context.Context, st *db.Student) error
	GetStudent(ctx context.Context, id int) (*db.Student, error)
	GetStudentByAccount(ctx context.Context, accountID int) (*db.Student, error)
	GetStudentByUniversityID(ctx context.Context, universityID string) (*db.Student, error)
	ListStudentsByDepartment(ctx context.Context, department string) ([]db.Student, error)
	UpdateStudentStatus(ctx context.Context, studentID int, from, to string) (bool, error)

	CreateDepartmentHead(ctx context.Context, h *db.DepartmentHead) error
	GetDepartmentHeadByAccount(ctx context.Context, accountID int) (*db.DepartmentHead, error)
	GetDepartmentHeadByEmail(ctx context.Context, email string) (*db.DepartmentHead, error)

	CreatePost(ctx context.Context, p *db.TrainingPost) error
	GetPost(ctx context.Context, id int) (*db.TrainingPost, error)
	ListPosts(ctx context.Context, status string, now *time.Time) ([]db.TrainingPost, error)
	ListCompanyPosts(ctx context.Context, companyID int) ([]db.TrainingPost, error)
	ListPendingPosts(ctx context.Context) ([]db.TrainingPost, error)
	UpdatePendingPost(ctx context.Context, p *db.TrainingPost) (bool, error)
	DeletePendingPost(ctx context.Context, id, companyID int) (bool, error)
	ReviewPost(ctx context.Context, id int, status string, headID int, at time.Time) (bool, error)

	CreateApplication(ctx context.Context, a *db.Application) error
	GetApplication(ctx context.Context, id int) (*db.Application, error)
	ListStudentApplications(ctx context.Context, studentID int) ([]db.Application, error)
	ListCompanyApplications(ctx context.Context, companyID int) ([]db.Application, error)
	ListPendingDocumentApplications(ctx context.Context, department string) ([]db.Application, error)
	DecideApplication(ctx context.Context, id int, status string) (bool, error)
	SelectApplication(ctx context.Context, id int) (bool, error)
	GetSelectedApplication(ctx context.Context, studentID int) (*db.Application, error)
	AppendApprovalFile(ctx context.Context, id int, handle string) (int, error)
	AppendActivityReport(ctx context.Context, id int, handle string) error
	SetOfficialDocument(ctx context.Context, id int, handle string) (bool, error)
	SetFinalReport(ctx context.Context, id int, handle string) error
}
