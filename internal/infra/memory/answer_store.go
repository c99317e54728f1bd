package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"anxiety-quiz-bot/internal/domain"
)

type answerKey struct {
	userID  int64
	ordinal int
}

// AnswerStore is an in-memory implementation of app.AnswerStore for tests and demo runs.
type AnswerStore struct {
	loc   *time.Location
	clock func() time.Time

	mu      sync.RWMutex
	users   map[int64]domain.User
	answers map[answerKey]domain.Answer
	results []domain.Result
	failure error
}

func NewAnswerStore(loc *time.Location) *AnswerStore {
	return NewAnswerStoreWithClock(loc, time.Now)
}

// NewAnswerStoreWithClock fixes "today" for CountToday in tests.
func NewAnswerStoreWithClock(loc *time.Location, clock func() time.Time) *AnswerStore {
	if loc == nil {
		loc = time.Local
	}
	return &AnswerStore{
		loc:     loc,
		clock:   clock,
		users:   make(map[int64]domain.User),
		answers: make(map[answerKey]domain.Answer),
	}
}

// FailWith makes every following call return err; nil restores normal operation.
func (s *AnswerStore) FailWith(err error) {
	s.mu.Lock()
	s.failure = err
	s.mu.Unlock()
}

func (s *AnswerStore) UpsertUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	s.users[user.ID] = user
	return nil
}

// User returns the stored user, if any.
func (s *AnswerStore) User(id int64) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *AnswerStore) PutAnswer(_ context.Context, answer domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	s.answers[answerKey{userID: answer.UserID, ordinal: answer.Ordinal}] = answer
	return nil
}

// Answers returns the current answers of a user keyed by ordinal.
func (s *AnswerStore) Answers(userID int64) map[int]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]string)
	for k, a := range s.answers {
		if k.userID == userID {
			out[k.ordinal] = a.Label
		}
	}
	return out
}

func (s *AnswerStore) PutResult(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	answers := make(map[int]string, len(result.Answers))
	for k, v := range result.Answers {
		answers[k] = v
	}
	result.Answers = answers
	s.results = append(s.results, result)
	return nil
}

func (s *AnswerStore) GetResults(_ context.Context, userID int64) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failure != nil {
		return nil, s.failure
	}
	var out []domain.Result
	// walk backwards so equal timestamps keep newest-appended first after the stable sort
	for i := len(s.results) - 1; i >= 0; i-- {
		if s.results[i].UserID == userID {
			out = append(out, s.results[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *AnswerStore) AggregateCounts(_ context.Context) (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failure != nil {
		return domain.Stats{}, s.failure
	}
	stats := domain.Stats{Distribution: make(map[domain.ResultType]int)}
	for _, r := range s.results {
		stats.Total++
		stats.Distribution[r.Type]++
	}
	return stats, nil
}

func (s *AnswerStore) CountToday(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failure != nil {
		return 0, s.failure
	}
	start, end := domain.DayBounds(s.clock(), s.loc)
	count := 0
	for _, r := range s.results {
		if !r.CreatedAt.Before(start) && r.CreatedAt.Before(end) {
			count++
		}
	}
	return count, nil
}
