package handlers_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"traineeship/db"
	"traineeship/internal/auth"
	"traineeship/internal/handlers"
	"traineeship/internal/ministry"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// fakeStorage реализует StorageInterface в памяти, воспроизводя семантику
// условных UPDATE и уникальных индексов настоящего хранилища.
type fakeStorage struct {
	mu           sync.Mutex
	accounts     map[int]*db.Account
	companies    map[int]*db.Company
	students     map[int]*db.Student
	heads        map[int]*db.DepartmentHead
	posts        map[int]*db.TrainingPost
	applications map[int]*db.Application
	nextID       int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		accounts:     map[int]*db.Account{},
		companies:    map[int]*db.Company{},
		students:     map[int]*db.Student{},
		heads:        map[int]*db.DepartmentHead{},
		posts:        map[int]*db.TrainingPost{},
		applications: map[int]*db.Application{},
	}
}

// uniqueViolation - то, что вернул бы драйвер на нарушении уникального индекса
func uniqueViolation() error {
	return &pq.Error{Code: "23505"}
}

func (f *fakeStorage) id() int {
	f.nextID++
	return f.nextID
}

func copyPost(p *db.TrainingPost) *db.TrainingPost {
	cp := *p
	return &cp
}

func copyApplication(a *db.Application) *db.Application {
	cp := *a
	cp.ApprovalFiles = append(pq.StringArray{}, a.ApprovalFiles...)
	cp.ActivityReports = append(pq.StringArray{}, a.ActivityReports...)
	return &cp
}

func (f *fakeStorage) CreateAccount(_ context.Context, a *db.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = f.id()
	a.CreatedAt = time.Now()
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeStorage) GetAccount(_ context.Context, id int) (*db.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStorage) UpdateAccountPassword(_ context.Context, id int, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		a.PasswordHash = passwordHash
	}
	return nil
}

func (f *fakeStorage) CreateCompany(_ context.Context, c *db.Company) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.companies {
		if existing.NationalID == c.NationalID {
			return uniqueViolation()
		}
	}
	c.ID = f.id()
	c.CreatedAt = time.Now()
	cp := *c
	f.companies[c.ID] = &cp
	return nil
}

func (f *fakeStorage) GetCompanyByAccount(_ context.Context, accountID int) (*db.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.companies {
		if c.AccountID == accountID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStorage) GetCompanyByNationalID(_ context.Context, nationalID string) (*db.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.companies {
		if c.NationalID == nationalID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStorage) UpdateCompanyProfile(_ context.Context, c *db.Company) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stored, ok := f.companies[c.ID]; ok {
		stored.Name, stored.Phone, stored.Location, stored.FieldOfWork =
			c.Name, c.Phone, c.Location, c.FieldOfWork
	}
	return nil
}

func (f *fakeStorage) CreateStudent(_ context.Context, st *db.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.students {
		if existing.UniversityID == st.UniversityID {
			return uniqueViolation()
		}
	}
	st.ID = f.id()
	st.CreatedAt = time.Now()
	cp := *st
	f.students[st.ID] = &cp
	return nil
}

func (f *fakeStorage) GetStudent(_ context.Context, id int) (*db.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *st
	return &cp, nil
}

func (f *fakeStorage) GetStudentByAccount(_ context.Context, accountID int) (*db.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.students {
		if st.AccountID == accountID {
			cp := *st
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStorage) GetStudentByUniversityID(_ context.Context, universityID string) (*db.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.students {
		if st.UniversityID == universityID {
			cp := *st
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStorage) ListStudentsByDepartment(_ context.Context, department string) ([]db.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	students := []db.Student{}
	for _, st := range f.students {
		if st.Department == department {
			students = append(students, *st)
		}
	}
	return students, nil
}

func (f *fakeStorage) UpdateStudentStatus(_ context.Context, studentID int, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.students[studentID]
	if !ok || st.TrainingStatus != from {
		return false, nil
	}
	st.TrainingStatus = to
	return true, nil
}

func (f *fakeStorage) CreateDepartmentHead(_ context.Context, h *db.DepartmentHead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.heads {
		if existing.Department == h.Department || existing.Email == h.Email {
			return uniqueViolation()
		}
	}
	h.ID = f.id()
	h.CreatedAt = time.Now()
	cp := *h
	f.heads[h.ID] = &cp
	return nil
}

func (f *fakeStorage) GetDepartmentHeadByAccount(_ context.Context, accountID int) (*db.DepartmentHead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.heads {
		if h.AccountID == accountID {
			cp := *h
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStorage) GetDepartmentHeadByEmail(_ context.Context, email string) (*db.DepartmentHead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.heads {
		if h.Email == email {
			cp := *h
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStorage) CreatePost(_ context.Context, p *db.TrainingPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.posts {
		if existing.CompanyID == p.CompanyID && existing.Title == p.Title {
			return uniqueViolation()
		}
	}
	p.ID = f.id()
	p.CreatedAt = time.Now()
	f.posts[p.ID] = copyPost(p)
	return nil
}

func (f *fakeStorage) GetPost(_ context.Context, id int) (*db.TrainingPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return copyPost(p), nil
}

func (f *fakeStorage) ListPosts(_ context.Context, status string, now *time.Time) ([]db.TrainingPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	posts := []db.TrainingPost{}
	for _, p := range f.posts {
		if status != "" && p.Status != status {
			continue
		}
		if status == db.PostApproved && now != nil && !p.AvailableUntil.After(*now) {
			continue
		}
		posts = append(posts, *copyPost(p))
	}
	return posts, nil
}

func (f *fakeStorage) ListCompanyPosts(_ context.Context, companyID int) ([]db.TrainingPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	posts := []db.TrainingPost{}
	for _, p := range f.posts {
		if p.CompanyID == companyID {
			posts = append(posts, *copyPost(p))
		}
	}
	return posts, nil
}

func (f *fakeStorage) ListPendingPosts(_ context.Context) ([]db.TrainingPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	posts := []db.TrainingPost{}
	for _, p := range f.posts {
		if p.Status == db.PostPending {
			posts = append(posts, *copyPost(p))
		}
	}
	return posts, nil
}

func (f *fakeStorage) UpdatePendingPost(_ context.Context, p *db.TrainingPost) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[p.ID]
	if !ok || stored.Status != db.PostPending {
		return false, nil
	}
	for _, other := range f.posts {
		if other.ID != p.ID && other.CompanyID == p.CompanyID && other.Title == p.Title {
			return false, uniqueViolation()
		}
	}
	stored.Title, stored.Duration, stored.Location = p.Title, p.Duration, p.Location
	stored.AvailableUntil, stored.Description = p.AvailableUntil, p.Description
	return true, nil
}

func (f *fakeStorage) DeletePendingPost(_ context.Context, id, companyID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.CompanyID != companyID || p.Status != db.PostPending {
		return false, nil
	}
	delete(f.posts, id)
	return true, nil
}

func (f *fakeStorage) ReviewPost(_ context.Context, id int, status string, headID int, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.Status != db.PostPending {
		return false, nil
	}
	p.Status = status
	p.ApprovedBy = &headID
	p.ApprovedAt = &at
	return true, nil
}

func (f *fakeStorage) CreateApplication(_ context.Context, a *db.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.applications {
		if existing.StudentID == a.StudentID && existing.TrainingPostID == a.TrainingPostID {
			return uniqueViolation()
		}
	}
	a.ID = f.id()
	a.CreatedAt = time.Now()
	f.applications[a.ID] = copyApplication(a)
	return nil
}

func (f *fakeStorage) GetApplication(_ context.Context, id int) (*db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applications[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return copyApplication(a), nil
}

func (f *fakeStorage) ListStudentApplications(_ context.Context, studentID int) ([]db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apps := []db.Application{}
	for _, a := range f.applications {
		if a.StudentID == studentID {
			apps = append(apps, *copyApplication(a))
		}
	}
	return apps, nil
}

func (f *fakeStorage) ListCompanyApplications(_ context.Context, companyID int) ([]db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apps := []db.Application{}
	for _, a := range f.applications {
		if p, ok := f.posts[a.TrainingPostID]; ok && p.CompanyID == companyID {
			apps = append(apps, *copyApplication(a))
		}
	}
	return apps, nil
}

func (f *fakeStorage) ListPendingDocumentApplications(_ context.Context, department string) ([]db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apps := []db.Application{}
	for _, a := range f.applications {
		st, ok := f.students[a.StudentID]
		if !ok || st.Department != department || st.TrainingStatus != db.TrainingWaitingForApproval {
			continue
		}
		if a.SelectedByStudent && a.OfficialDocument == nil {
			apps = append(apps, *copyApplication(a))
		}
	}
	return apps, nil
}

func (f *fakeStorage) DecideApplication(_ context.Context, id int, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applications[id]
	if !ok || a.Status != db.ApplicationUnderReview {
		return false, nil
	}
	a.Status = status
	return true, nil
}

func (f *fakeStorage) SelectApplication(_ context.Context, id int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applications[id]
	if !ok || a.Status != db.ApplicationApproved || a.SelectedByStudent {
		return false, nil
	}
	// частичный уникальный индекс: второй выбор того же студента
	for _, other := range f.applications {
		if other.StudentID == a.StudentID && other.SelectedByStudent {
			return false, uniqueViolation()
		}
	}
	a.SelectedByStudent = true
	return true, nil
}

func (f *fakeStorage) GetSelectedApplication(_ context.Context, studentID int) (*db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.applications {
		if a.StudentID == studentID && a.SelectedByStudent {
			return copyApplication(a), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStorage) AppendApprovalFile(_ context.Context, id int, handle string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applications[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	a.ApprovalFiles = append(a.ApprovalFiles, handle)
	return len(a.ApprovalFiles), nil
}

func (f *fakeStorage) AppendActivityReport(_ context.Context, id int, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.applications[id]; ok {
		a.ActivityReports = append(a.ActivityReports, handle)
	}
	return nil
}

func (f *fakeStorage) SetOfficialDocument(_ context.Context, id int, handle string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applications[id]
	if !ok || a.OfficialDocument != nil {
		return false, nil
	}
	a.OfficialDocument = &handle
	return true, nil
}

func (f *fakeStorage) SetFinalReport(_ context.Context, id int, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.applications[id]; ok {
		a.FinalReport = &handle
	}
	return nil
}

// fakeFiles считает сохраненные блобы и выдает предсказуемые дескрипторы.
type fakeFiles struct {
	mu    sync.Mutex
	saved int
}

func (f *fakeFiles) Save(kind string, ext string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved++
	return fmt.Sprintf("%s/%d%s", kind, f.saved, ext), nil
}

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestHandler(store *fakeStorage) *handlers.Handler {
	h := handlers.NewHandler(store, &fakeFiles{}, ministry.MockVerifier{}, zap.NewNop(), "test-secret")
	h.Now = func() time.Time { return testTime }
	return h
}

// Сидеры: учетная запись + профиль нужной роли

func seedCompany(store *fakeStorage, nationalID string) *db.Company {
	account := &db.Account{Role: db.RoleCompany, PasswordHash: "x"}
	store.CreateAccount(context.Background(), account)
	company := &db.Company{
		AccountID:   account.ID,
		NationalID:  nationalID,
		Name:        "TechCorp",
		Phone:       "0501234567",
		Location:    "Riyadh",
		FieldOfWork: "Software",
		Verified:    true,
	}
	store.CreateCompany(context.Background(), company)
	return company
}

func seedStudent(store *fakeStorage, universityID, department string, hours int, status string) *db.Student {
	account := &db.Account{Role: db.RoleStudent, PasswordHash: "x"}
	store.CreateAccount(context.Background(), account)
	student := &db.Student{
		AccountID:      account.ID,
		UniversityID:   universityID,
		Name:           "Test Student",
		Department:     department,
		CompletedHours: hours,
		TrainingStatus: status,
	}
	store.CreateStudent(context.Background(), student)
	return student
}

func seedHead(store *fakeStorage, email, department string) *db.DepartmentHead {
	account := &db.Account{Role: db.RoleDepartmentHead, PasswordHash: "x"}
	store.CreateAccount(context.Background(), account)
	head := &db.DepartmentHead{
		AccountID:  account.ID,
		Name:       "Dr. Head",
		Email:      email,
		Department: department,
	}
	store.CreateDepartmentHead(context.Background(), head)
	return head
}

func seedPost(store *fakeStorage, companyID int, title, status string, availableUntil time.Time) *db.TrainingPost {
	post := &db.TrainingPost{
		CompanyID:      companyID,
		Title:          title,
		Duration:       8,
		Location:       "Riyadh",
		AvailableUntil: availableUntil,
		Status:         status,
		Description:    "Backend training",
	}
	store.CreatePost(context.Background(), post)
	return post
}

func seedApplication(store *fakeStorage, studentID, postID int, status string) *db.Application {
	application := &db.Application{
		StudentID:      studentID,
		TrainingPostID: postID,
		CV:             "cvs/seed.pdf",
		Status:         status,
	}
	store.CreateApplication(context.Background(), application)
	return application
}

func authedRequest(method, target string, body io.Reader, accountID int, role string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(auth.WithIdentity(req.Context(),
		&auth.Identity{AccountID: accountID, Role: role}))
}
