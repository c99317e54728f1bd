package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User is a chat user as reported by the transport. Latest metadata wins on upsert.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WebUserID maps a web client id into its own namespace. Telegram user ids are
// always positive, so web users are stored under the negated id.
func WebUserID(id int64) (int64, error) {
	if id <= 0 {
		return 0, fmt.Errorf("%w: web user id must be positive, got %d", ErrInvalidUser, id)
	}
	return -id, nil
}

// DisplayName picks the most readable name available.
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return fmt.Sprintf("user %d", u.ID)
}

// Labels is the fixed option alphabet, in classifier priority order.
var Labels = []string{"A", "B", "C", "D"}

// MaxOptions bounds the options per question to the label alphabet.
const MaxOptions = 4

// LabelAt returns the label for the option at position i (0-based).
func LabelAt(i int) string {
	return string(rune('A' + i))
}

// Option is a labeled choice of a question.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question is an immutable multiple-choice question.
type Question struct {
	Ordinal int      `json:"ordinal" yaml:"ordinal"`
	Prompt  string   `json:"prompt" yaml:"prompt"`
	Options []string `json:"options" yaml:"options"`
}

// LabeledOptions returns the options with their positional labels.
func (q Question) LabeledOptions() []Option {
	opts := make([]Option, len(q.Options))
	for i, text := range q.Options {
		opts[i] = Option{Label: LabelAt(i), Text: text}
	}
	return opts
}

// HasLabel reports whether label names one of the question's options.
func (q Question) HasLabel(label string) bool {
	for i := range q.Options {
		if LabelAt(i) == label {
			return true
		}
	}
	return false
}

// Questionnaire is the fixed, ordered question set shared by all users.
type Questionnaire struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Len is the number of questions.
func (q Questionnaire) Len() int {
	return len(q.Questions)
}

// Question returns the question with the given 1-based ordinal.
func (q Questionnaire) Question(ordinal int) (Question, bool) {
	if ordinal < 1 || ordinal > len(q.Questions) {
		return Question{}, false
	}
	return q.Questions[ordinal-1], true
}

// Validate checks that ordinals are contiguous from 1 and every question is answerable.
func (q Questionnaire) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidQuestionnaire)
	}
	for i, question := range q.Questions {
		if question.Ordinal != i+1 {
			return fmt.Errorf("%w: question at position %d has ordinal %d", ErrInvalidQuestionnaire, i+1, question.Ordinal)
		}
		if strings.TrimSpace(question.Prompt) == "" {
			return fmt.Errorf("%w: question %d has no prompt", ErrInvalidQuestionnaire, question.Ordinal)
		}
		if len(question.Options) < 2 || len(question.Options) > MaxOptions {
			return fmt.Errorf("%w: question %d needs 2..%d options, got %d", ErrInvalidQuestionnaire, question.Ordinal, MaxOptions, len(question.Options))
		}
	}
	return nil
}

// Answer is the current answer of a user to one question.
type Answer struct {
	UserID    int64
	Ordinal   int
	Label     string
	CreatedAt time.Time
}

// ResultType is the classification outcome of a completed attempt.
type ResultType string

const (
	ResultCalm           ResultType = "calm"
	ResultCatastrophizer ResultType = "catastrophizer"
	ResultMindReader     ResultType = "mind_reader"
	ResultPerfectionist  ResultType = "perfectionist"
	ResultMixed          ResultType = "mixed"
)

// ResultTypes lists every result type in a stable order.
var ResultTypes = []ResultType{ResultCalm, ResultCatastrophizer, ResultMindReader, ResultPerfectionist, ResultMixed}

// Result is one finalized attempt. Results are append-only.
type Result struct {
	ID        string         `json:"id"`
	UserID    int64          `json:"userId"`
	Type      ResultType     `json:"type"`
	Answers   map[int]string `json:"answers"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Session is the transient progress of one user through one attempt.
// It is handled by value; repositories hand out copies.
type Session struct {
	UserID          int64          `json:"userId"`
	CurrentQuestion int            `json:"currentQuestion"`
	Answers         map[int]string `json:"answers"`
	Finalized       bool           `json:"finalized"`
	ResultType      ResultType     `json:"resultType,omitempty"`
	StartedAt       time.Time      `json:"startedAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// NewSession returns a session positioned at the first question.
func NewSession(userID int64, now time.Time) Session {
	return Session{
		UserID:          userID,
		CurrentQuestion: 1,
		Answers:         make(map[int]string),
		StartedAt:       now,
		UpdatedAt:       now,
	}
}

// Clone returns a deep copy so the answers map is never shared.
func (s Session) Clone() Session {
	answers := make(map[int]string, len(s.Answers))
	for k, v := range s.Answers {
		answers[k] = v
	}
	s.Answers = answers
	return s
}

// Stats is the aggregate view over all results.
type Stats struct {
	Total        int                `json:"total"`
	Today        int                `json:"today"`
	Distribution map[ResultType]int `json:"distribution"`
}

// TypeCount is one row of the distribution.
type TypeCount struct {
	Type  ResultType
	Count int
}

// Ranked returns the distribution ordered by count desc, then by type.
func (s Stats) Ranked() []TypeCount {
	rows := make([]TypeCount, 0, len(s.Distribution))
	for t, c := range s.Distribution {
		rows = append(rows, TypeCount{Type: t, Count: c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Type < rows[j].Type
	})
	return rows
}

// Share returns the percentage of attempts that ended in t, rounded to one decimal place.
func (s Stats) Share(t ResultType) decimal.Decimal {
	if s.Total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.Distribution[t])).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(s.Total))).
		Round(1)
}

// DayBounds returns [start, end) of the calendar day containing t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
