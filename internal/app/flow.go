package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"anxiety-quiz-bot/internal/domain"
)

// Event is an inbound user action.
type Event interface {
	Name() string
}

type (
	// Welcome is the greeting shown on /start.
	Welcome struct{}
	// ShowExplanation asks what the quiz is about.
	ShowExplanation struct{}
	// StartTest starts a fresh attempt.
	StartTest struct{}
	// BeginTest starts an attempt after the explanation screen.
	BeginTest struct{}
	// AnswerSelected is a pressed option button.
	AnswerSelected struct {
		Ordinal int
		Label   string
	}
	// Retake restarts the quiz from the result screen.
	Retake struct{}
	// ShareResult asks for a shareable invitation text.
	ShareResult struct{}
	// RequestGatedContent asks for the bonus content.
	RequestGatedContent struct{}
	// RecheckSubscription repeats the subscription check after the user subscribed.
	RecheckSubscription struct{}
	// ShowHistory lists the user's past results.
	ShowHistory struct{}
)

func (Welcome) Name() string             { return "welcome" }
func (ShowExplanation) Name() string     { return "show_explanation" }
func (StartTest) Name() string           { return "start_test" }
func (BeginTest) Name() string           { return "begin_test" }
func (AnswerSelected) Name() string      { return "answer_selected" }
func (Retake) Name() string              { return "retake" }
func (ShareResult) Name() string         { return "share_result" }
func (RequestGatedContent) Name() string { return "request_gated_content" }
func (RecheckSubscription) Name() string { return "recheck_subscription" }
func (ShowHistory) Name() string         { return "show_history" }

// View is structured output for a transport to render.
type View interface {
	Kind() string
}

type (
	WelcomeView     struct{}
	ExplanationView struct{}
	QuestionView    struct {
		Ordinal int             `json:"ordinal"`
		Total   int             `json:"total"`
		Prompt  string          `json:"prompt"`
		Options []domain.Option `json:"options"`
	}
	ResultView struct {
		Result domain.Result `json:"result"`
	}
	ShareView struct {
		Type domain.ResultType `json:"type,omitempty"`
	}
	GatedContentView struct {
		Channel string `json:"channel"`
	}
	SubscriptionReminderView struct {
		Channel string `json:"channel"`
	}
	HistoryView struct {
		Results []domain.Result `json:"results"`
	}
)

func (WelcomeView) Kind() string              { return "welcome" }
func (ExplanationView) Kind() string          { return "explanation" }
func (QuestionView) Kind() string             { return "question" }
func (ResultView) Kind() string               { return "result" }
func (ShareView) Kind() string                { return "share" }
func (GatedContentView) Kind() string         { return "gated_content" }
func (SubscriptionReminderView) Kind() string { return "subscription_reminder" }
func (HistoryView) Kind() string              { return "history" }

// Flow is the single transition function between user events and views.
type Flow struct {
	quiz *QuizService
	gate *Gate
	log  *slog.Logger
}

func NewFlow(quiz *QuizService, gate *Gate, log *slog.Logger) *Flow {
	if log == nil {
		log = slog.Default()
	}
	return &Flow{quiz: quiz, gate: gate, log: log}
}

// Quiz exposes the underlying service for read-only surfaces such as stats.
func (f *Flow) Quiz() *QuizService {
	return f.quiz
}

// Handle applies ev on behalf of user and returns the view to render.
func (f *Flow) Handle(ctx context.Context, user domain.User, ev Event) (View, error) {
	if user.ID == 0 {
		return nil, domain.ErrInvalidUser
	}

	switch e := ev.(type) {
	case Welcome:
		return WelcomeView{}, nil
	case ShowExplanation:
		return ExplanationView{}, nil
	case StartTest, BeginTest, Retake:
		if err := f.quiz.StartAttempt(ctx, user); err != nil {
			return nil, err
		}
		return f.prompt(ctx, user.ID)
	case AnswerSelected:
		if err := f.quiz.RecordAnswer(ctx, user.ID, e.Ordinal, e.Label); err != nil {
			if !errors.Is(err, domain.ErrOutOfSequence) {
				return nil, err
			}
			// A repeated press on a fully answered attempt retries the pending finalize.
			if pending, perr := f.quiz.AwaitingFinalize(ctx, user.ID); perr != nil || !pending {
				return nil, err
			}
		}
		return f.prompt(ctx, user.ID)
	case ShareResult:
		results, err := f.quiz.Results(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		view := ShareView{}
		if len(results) > 0 {
			view.Type = results[0].Type
		}
		return view, nil
	case RequestGatedContent, RecheckSubscription:
		return f.gated(ctx, user.ID)
	case ShowHistory:
		results, err := f.quiz.Results(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return HistoryView{Results: results}, nil
	default:
		return nil, fmt.Errorf("unsupported event %T", ev)
	}
}

func (f *Flow) prompt(ctx context.Context, userID int64) (View, error) {
	p, err := f.quiz.CurrentPrompt(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.Complete() {
		return ResultView{Result: *p.Result}, nil
	}
	return QuestionView{
		Ordinal: p.Question.Ordinal,
		Total:   p.Total,
		Prompt:  p.Question.Prompt,
		Options: p.Question.LabeledOptions(),
	}, nil
}

func (f *Flow) gated(ctx context.Context, userID int64) (View, error) {
	results, err := f.quiz.Results(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no finished attempt", domain.ErrInvalidState)
	}

	if f.gate.Allowed(ctx, userID) {
		return GatedContentView{Channel: f.gate.Channel()}, nil
	}
	return SubscriptionReminderView{Channel: f.gate.Channel()}, nil
}
