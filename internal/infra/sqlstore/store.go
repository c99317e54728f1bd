package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"anxiety-quiz-bot/internal/domain"
	"github.com/uptrace/bun"
)

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID        int64     `bun:"id,pk"`
	Username  string    `bun:"username"`
	FirstName string    `bun:"first_name"`
	LastName  string    `bun:"last_name"`
	UpdatedAt time.Time `bun:"updated_at"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers"`

	UserID    int64     `bun:"user_id,pk"`
	Ordinal   int       `bun:"ordinal,pk"`
	Label     string    `bun:"label"`
	CreatedAt time.Time `bun:"created_at"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:results"`

	ID         string    `bun:"id,pk"`
	UserID     int64     `bun:"user_id"`
	ResultType string    `bun:"result_type"`
	Answers    string    `bun:"answers"`
	CreatedAt  time.Time `bun:"created_at"`
}

// Store is the durable answer store on top of bun. It works with the sqlite and
// postgres dialects; timestamps are written in UTC.
type Store struct {
	db    *bun.DB
	loc   *time.Location
	clock func() time.Time
}

// New wraps db. loc defines the calendar day used by CountToday.
func New(db *bun.DB, loc *time.Location) *Store {
	return NewWithClock(db, loc, time.Now)
}

func NewWithClock(db *bun.DB, loc *time.Location, clock func() time.Time) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{db: db, loc: loc, clock: clock}
}

func (s *Store) DB() *bun.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) UpsertUser(ctx context.Context, user domain.User) error {
	row := &userRow{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		UpdatedAt: user.UpdatedAt.UTC(),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("username = EXCLUDED.username").
		Set("first_name = EXCLUDED.first_name").
		Set("last_name = EXCLUDED.last_name").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", user.ID, err)
	}
	return nil
}

// User loads a stored user.
func (s *Store) User(ctx context.Context, id int64) (domain.User, error) {
	row := new(userRow)
	if err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return domain.User{
		ID:        row.ID,
		Username:  row.Username,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *Store) PutAnswer(ctx context.Context, answer domain.Answer) error {
	row := &answerRow{
		UserID:    answer.UserID,
		Ordinal:   answer.Ordinal,
		Label:     answer.Label,
		CreatedAt: answer.CreatedAt.UTC(),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id, ordinal) DO UPDATE").
		Set("label = EXCLUDED.label").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("put answer %d/%d: %w", answer.UserID, answer.Ordinal, err)
	}
	return nil
}

// Answers returns the current answers of a user keyed by ordinal.
func (s *Store) Answers(ctx context.Context, userID int64) (map[int]string, error) {
	var rows []answerRow
	if err := s.db.NewSelect().Model(&rows).Where("user_id = ?", userID).Order("ordinal ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("get answers %d: %w", userID, err)
	}
	out := make(map[int]string, len(rows))
	for _, r := range rows {
		out[r.Ordinal] = r.Label
	}
	return out, nil
}

func (s *Store) PutResult(ctx context.Context, result domain.Result) error {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	row := &resultRow{
		ID:         result.ID,
		UserID:     result.UserID,
		ResultType: string(result.Type),
		Answers:    string(answers),
		CreatedAt:  result.CreatedAt.UTC(),
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("put result %s: %w", result.ID, err)
	}
	return nil
}

// GetResults returns the results of a user, newest first. Result ids are time ordered,
// so they break ties between equal timestamps.
func (s *Store) GetResults(ctx context.Context, userID int64) ([]domain.Result, error) {
	var rows []resultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("created_at DESC", "id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get results %d: %w", userID, err)
	}

	results := make([]domain.Result, 0, len(rows))
	for _, r := range rows {
		result, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Store) AggregateCounts(ctx context.Context) (domain.Stats, error) {
	var rows []struct {
		ResultType string `bun:"result_type"`
		Count      int    `bun:"count"`
	}
	err := s.db.NewSelect().
		Model((*resultRow)(nil)).
		Column("result_type").
		ColumnExpr("COUNT(*) AS count").
		Group("result_type").
		OrderExpr("count DESC").
		Scan(ctx, &rows)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("aggregate results: %w", err)
	}

	stats := domain.Stats{Distribution: make(map[domain.ResultType]int, len(rows))}
	for _, r := range rows {
		stats.Total += r.Count
		stats.Distribution[domain.ResultType(r.ResultType)] = r.Count
	}
	return stats, nil
}

func (s *Store) CountToday(ctx context.Context) (int, error) {
	start, end := domain.DayBounds(s.clock(), s.loc)
	count, err := s.db.NewSelect().
		Model((*resultRow)(nil)).
		Where("created_at >= ?", start.UTC()).
		Where("created_at < ?", end.UTC()).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count today: %w", err)
	}
	return count, nil
}

func (r resultRow) toDomain() (domain.Result, error) {
	var answers map[int]string
	if err := json.Unmarshal([]byte(r.Answers), &answers); err != nil {
		return domain.Result{}, fmt.Errorf("decode answers of result %s: %w", r.ID, err)
	}
	return domain.Result{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      domain.ResultType(r.ResultType),
		Answers:   answers,
		CreatedAt: r.CreatedAt,
	}, nil
}
