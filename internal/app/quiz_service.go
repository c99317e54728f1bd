package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"anxiety-quiz-bot/internal/domain"
	"anxiety-quiz-bot/internal/telemetry"
	"github.com/google/uuid"
)

// SessionRepository abstracts where per-user quiz sessions live (in-memory, Redis).
// Sessions are values: Get returns a copy and only Put changes what is stored.
type SessionRepository interface {
	Get(ctx context.Context, userID int64) (domain.Session, bool, error)
	Put(ctx context.Context, session domain.Session) error
	Delete(ctx context.Context, userID int64) error
}

// QuestionnaireRepository loads the question set (from cache/backing store).
type QuestionnaireRepository interface {
	GetQuestionnaire(ctx context.Context) (domain.Questionnaire, error)
}

// AnswerStore is the durable record of users, answers and finalized results.
type AnswerStore interface {
	UpsertUser(ctx context.Context, user domain.User) error
	// PutAnswer overwrites any previous answer for the same (user, ordinal).
	PutAnswer(ctx context.Context, answer domain.Answer) error
	// PutResult appends; results are never updated or deleted.
	PutResult(ctx context.Context, result domain.Result) error
	// GetResults returns the user's results, newest first.
	GetResults(ctx context.Context, userID int64) ([]domain.Result, error)
	AggregateCounts(ctx context.Context) (domain.Stats, error)
	// CountToday counts results created on the current calendar day of the store's location.
	CountToday(ctx context.Context) (int, error)
}

// Prompt is what the user should see next: either a question or the final result.
type Prompt struct {
	Question *domain.Question
	Total    int
	Result   *domain.Result
}

// Complete reports whether the prompt carries a result instead of a question.
func (p Prompt) Complete() bool {
	return p.Result != nil
}

// QuizService drives each user through the questionnaire and finalizes results.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionnaireRepository
	answers   AnswerStore
	log       *slog.Logger
	now       func() time.Time
	locks     *userLocks
}

func NewQuizService(sessions SessionRepository, questions QuestionnaireRepository, answers AnswerStore, log *slog.Logger) *QuizService {
	return NewQuizServiceWithClock(sessions, questions, answers, log, time.Now)
}

// NewQuizServiceWithClock is used by tests for deterministic timestamps.
func NewQuizServiceWithClock(sessions SessionRepository, questions QuestionnaireRepository, answers AnswerStore, log *slog.Logger, now func() time.Time) *QuizService {
	if log == nil {
		log = slog.Default()
	}
	return &QuizService{
		sessions:  sessions,
		questions: questions,
		answers:   answers,
		log:       log,
		now:       now,
		locks:     newUserLocks(),
	}
}

// StartAttempt upserts the user and resets their session to the first question.
// On a store failure the previous session, if any, is left as it was.
func (s *QuizService) StartAttempt(ctx context.Context, user domain.User) error {
	if user.ID == 0 {
		return domain.ErrInvalidUser
	}
	unlock := s.locks.lock(user.ID)
	defer unlock()

	now := s.now()
	user.UpdatedAt = now
	if err := s.answers.UpsertUser(ctx, user); err != nil {
		return storeErr("upsert user", err)
	}
	if err := s.sessions.Put(ctx, domain.NewSession(user.ID, now)); err != nil {
		return storeErr("put session", err)
	}

	telemetry.AttemptsStarted.Inc()
	s.log.DebugContext(ctx, "quiz: attempt started", "user_id", user.ID)
	return nil
}

// CurrentPrompt returns the pending question. Once every question is answered it finalizes
// the attempt; for an attempt that is already finalized it returns the cached result type
// without writing anything.
func (s *QuizService) CurrentPrompt(ctx context.Context, userID int64) (Prompt, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	session, questionnaire, err := s.load(ctx, userID)
	if err != nil {
		return Prompt{}, err
	}
	total := questionnaire.Len()

	if session.Finalized {
		return Prompt{
			Total:  total,
			Result: &domain.Result{UserID: userID, Type: session.ResultType, Answers: session.Clone().Answers},
		}, nil
	}

	if session.CurrentQuestion > total {
		result, err := s.finalizeLocked(ctx, session, total)
		if err != nil {
			return Prompt{}, err
		}
		return Prompt{Total: total, Result: &result}, nil
	}

	question, _ := questionnaire.Question(session.CurrentQuestion)
	return Prompt{Question: &question, Total: total}, nil
}

// RecordAnswer stores the answer to the pending question and advances the session.
// The durable write happens first; if it fails the session does not move.
func (s *QuizService) RecordAnswer(ctx context.Context, userID int64, ordinal int, label string) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	session, questionnaire, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	if session.Finalized || ordinal != session.CurrentQuestion {
		telemetry.AnswersRejected.WithLabelValues("out_of_sequence").Inc()
		return fmt.Errorf("%w: got question %d, pending %d", domain.ErrOutOfSequence, ordinal, session.CurrentQuestion)
	}

	question, ok := questionnaire.Question(ordinal)
	if !ok || !question.HasLabel(label) {
		telemetry.AnswersRejected.WithLabelValues("invalid_option").Inc()
		return fmt.Errorf("%w: %q for question %d", domain.ErrInvalidOption, label, ordinal)
	}

	now := s.now()
	err = s.answers.PutAnswer(ctx, domain.Answer{
		UserID:    userID,
		Ordinal:   ordinal,
		Label:     label,
		CreatedAt: now,
	})
	if err != nil {
		return storeErr("put answer", err)
	}

	next := session.Clone()
	next.Answers[ordinal] = label
	next.CurrentQuestion++
	next.UpdatedAt = now
	if err := s.sessions.Put(ctx, next); err != nil {
		return storeErr("put session", err)
	}

	telemetry.AnswersRecorded.Inc()
	return nil
}

// IsComplete reports whether every question of the attempt has been answered.
func (s *QuizService) IsComplete(ctx context.Context, userID int64) (bool, error) {
	session, questionnaire, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	return session.CurrentQuestion > questionnaire.Len(), nil
}

// AwaitingFinalize reports whether every question is answered but no result was stored,
// which is where an attempt stays when finalization failed after the last answer.
func (s *QuizService) AwaitingFinalize(ctx context.Context, userID int64) (bool, error) {
	session, questionnaire, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	return !session.Finalized && session.CurrentQuestion > questionnaire.Len(), nil
}

// Finalize classifies a complete attempt and appends its result.
// A second call for the same attempt fails with domain.ErrAlreadyFinalized.
func (s *QuizService) Finalize(ctx context.Context, userID int64) (domain.Result, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	session, questionnaire, err := s.load(ctx, userID)
	if err != nil {
		return domain.Result{}, err
	}
	return s.finalizeLocked(ctx, session, questionnaire.Len())
}

// Results returns the user's result history, newest first.
func (s *QuizService) Results(ctx context.Context, userID int64) ([]domain.Result, error) {
	results, err := s.answers.GetResults(ctx, userID)
	if err != nil {
		return nil, storeErr("get results", err)
	}
	return results, nil
}

// Stats returns total attempts, the per-type distribution and today's attempts.
func (s *QuizService) Stats(ctx context.Context) (domain.Stats, error) {
	stats, err := s.answers.AggregateCounts(ctx)
	if err != nil {
		return domain.Stats{}, storeErr("aggregate counts", err)
	}
	today, err := s.answers.CountToday(ctx)
	if err != nil {
		return domain.Stats{}, storeErr("count today", err)
	}
	stats.Today = today
	return stats, nil
}

// Questionnaire exposes the active question set to transports.
func (s *QuizService) Questionnaire(ctx context.Context) (domain.Questionnaire, error) {
	return s.questions.GetQuestionnaire(ctx)
}

func (s *QuizService) finalizeLocked(ctx context.Context, session domain.Session, total int) (domain.Result, error) {
	if session.Finalized {
		return domain.Result{}, domain.ErrAlreadyFinalized
	}
	if session.CurrentQuestion <= total {
		return domain.Result{}, fmt.Errorf("%w: attempt incomplete at question %d of %d", domain.ErrInvalidState, session.CurrentQuestion, total)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Result{}, fmt.Errorf("generate result id: %w", err)
	}

	snapshot := session.Clone()
	result := domain.Result{
		ID:        id.String(),
		UserID:    session.UserID,
		Type:      Classify(snapshot.Answers),
		Answers:   snapshot.Answers,
		CreatedAt: s.now(),
	}
	if err := s.answers.PutResult(ctx, result); err != nil {
		return domain.Result{}, storeErr("put result", err)
	}

	snapshot.Finalized = true
	snapshot.ResultType = result.Type
	snapshot.UpdatedAt = result.CreatedAt
	if err := s.sessions.Put(ctx, snapshot); err != nil {
		return domain.Result{}, storeErr("put session", err)
	}

	telemetry.AttemptsFinalized.WithLabelValues(string(result.Type)).Inc()
	s.log.InfoContext(ctx, "quiz: attempt finalized", "user_id", session.UserID, "result_type", result.Type)
	return result, nil
}

func (s *QuizService) load(ctx context.Context, userID int64) (domain.Session, domain.Questionnaire, error) {
	session, ok, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return domain.Session{}, domain.Questionnaire{}, storeErr("get session", err)
	}
	if !ok {
		return domain.Session{}, domain.Questionnaire{}, fmt.Errorf("%w: no session for user %d", domain.ErrInvalidState, userID)
	}
	questionnaire, err := s.questions.GetQuestionnaire(ctx)
	if err != nil {
		return domain.Session{}, domain.Questionnaire{}, fmt.Errorf("load questionnaire: %w", err)
	}
	return session, questionnaire, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
