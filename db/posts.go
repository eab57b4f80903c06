package db

import (
	"context"
	"time"
)

// TrainingPost (Объявление о тренировке)
type TrainingPost struct {
	ID             int        `db:"id" json:"id"`
	CompanyID      int        `db:"company_id" json:"companyId"`
	Title          string     `db:"title" json:"title"`
	Duration       int        `db:"duration" json:"duration"`
	Location       string     `db:"location" json:"location"`
	AvailableUntil time.Time  `db:"available_until" json:"availableUntil"`
	Status         string     `db:"status" json:"status"`
	ApprovedBy     *int       `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt     *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	Description    string     `db:"description" json:"description"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      *time.Time `db:"updated_at" json:"-"`
}

// AvailableAt - производный предикат видимости: только APPROVED и строго до availableUntil.
// Нигде не хранится, пересчитывается на каждое чтение.
func (p *TrainingPost) AvailableAt(t time.Time) bool {
	return p.Status == PostApproved && t.Before(p.AvailableUntil)
}

func (s *Storage) CreatePost(ctx context.Context, p *TrainingPost) error {
	query := `
        INSERT INTO training_post
            (company_id, title, duration, location, available_until, status, description)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query,
		p.CompanyID, p.Title, p.Duration, p.Location, p.AvailableUntil, p.Status, p.Description).
		Scan(&p.ID, &p.CreatedAt)
}

func (s *Storage) GetPost(ctx context.Context, id int) (*TrainingPost, error) {
	p := &TrainingPost{}
	query := `SELECT * FROM training_post WHERE id=$1`
	err := s.db.GetContext(ctx, p, query, id)
	return p, err
}

// ListPosts возвращает объявления, опционально по статусу. Для APPROVED
// с ненулевым now показываются только еще доступные (available_until > now).
func (s *Storage) ListPosts(ctx context.Context, status string, now *time.Time) ([]TrainingPost, error) {
	posts := []TrainingPost{}
	query := `SELECT * FROM training_post`
	var args []interface{}

	switch {
	case status == PostApproved && now != nil:
		query += ` WHERE status=$1 AND available_until > $2`
		args = append(args, status, *now)
	case status != "":
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	err := s.db.SelectContext(ctx, &posts, query, args...)
	return posts, err
}

func (s *Storage) ListCompanyPosts(ctx context.Context, companyID int) ([]TrainingPost, error) {
	posts := []TrainingPost{}
	query := `SELECT * FROM training_post WHERE company_id=$1 ORDER BY created_at DESC`
	err := s.db.SelectContext(ctx, &posts, query, companyID)
	return posts, err
}

func (s *Storage) ListPendingPosts(ctx context.Context) ([]TrainingPost, error) {
	posts := []TrainingPost{}
	query := `SELECT * FROM training_post WHERE status=$1 ORDER BY created_at ASC`
	err := s.db.SelectContext(ctx, &posts, query, PostPending)
	return posts, err
}

// UpdatePendingPost обновляет поля объявления, пока оно PENDING.
// false - объявление уже рассмотрено (или удалено), редактировать нельзя.
func (s *Storage) UpdatePendingPost(ctx context.Context, p *TrainingPost) (bool, error) {
	query := `
        UPDATE training_post
        SET title=$1, duration=$2, location=$3, available_until=$4, description=$5, updated_at=NOW()
        WHERE id=$6 AND status=$7`
	res, err := s.db.ExecContext(ctx, query,
		p.Title, p.Duration, p.Location, p.AvailableUntil, p.Description, p.ID, PostPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeletePendingPost отзывает объявление компании, пока оно PENDING.
func (s *Storage) DeletePendingPost(ctx context.Context, id, companyID int) (bool, error) {
	query := `DELETE FROM training_post WHERE id=$1 AND company_id=$2 AND status=$3`
	res, err := s.db.ExecContext(ctx, query, id, companyID, PostPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReviewPost - переход PENDING -> APPROVED/REJECTED с записью рецензента.
// Повторное рассмотрение вернет false: статус уже не PENDING.
func (s *Storage) ReviewPost(ctx context.Context, id int, status string, headID int, at time.Time) (bool, error) {
	query := `
        UPDATE training_post
        SET status=$1, approved_by=$2, approved_at=$3, updated_at=NOW()
        WHERE id=$4 AND status=$5`
	res, err := s.db.ExecContext(ctx, query, status, headID, at, id, PostPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
