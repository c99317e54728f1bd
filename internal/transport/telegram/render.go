package telegram

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"anxiety-quiz-bot/internal/app"
	"anxiety-quiz-bot/internal/domain"
)

const welcomeText = `<b>Hi! What kind of worrier are you?</b>

Everyone worries, but not in the same way. Some of us picture the worst, some read minds, some polish every detail until midnight.

Answer a few short questions and find out your anxiety type, plus a technique that helps with it.`

const explanationText = `<b>What is an anxiety type?</b>

Anxiety tends to follow habits of thinking. The most common ones:

• <b>Catastrophizing</b>: a small problem grows into a disaster in your head.
• <b>Mind reading</b>: you are sure you know what others think of you.
• <b>Perfectionism</b>: nothing is done until it is flawless.

The quiz shows which habit is strongest for you. It takes about two minutes.`

const shareTemplate = "🔮 I found out my anxiety type! Do you know yours?\n\nTake the quiz: %s"

const techniquesText = `<b>Thanks for subscribing!</b>

Here is the "three facts" technique:

1. Write down the thought that worries you.
2. Next to it, write three facts that support it and three that contradict it.
3. Rewrite the thought so that it matches all six facts.

Do it on paper: it works better than in your head. More techniques are waiting in the channel.`

const reminderText = `<b>The techniques are for channel subscribers</b>

Subscribe to the channel, then press "I subscribed" and the bonus is yours.`

var resultTexts = map[domain.ResultType]string{
	domain.ResultCalm: `<b>Your type: Calm</b>

You notice worries without letting them steer. Your mind checks the facts before it sounds the alarm.

Keep it up: rest, sleep and people you trust are what hold this balance.`,
	domain.ResultCatastrophizer: `<b>Your type: Catastrophizer</b>

An unanswered message means something terrible happened; a small mistake means everything is ruined. Your mind rehearses the worst case to be ready for it.

The trick is to ask: what is the most likely outcome, not the worst one?`,
	domain.ResultMindReader: `<b>Your type: Mind reader</b>

You are sure you know what others think, and it is rarely flattering. A short reply or a glance feels like proof.

The trick is to treat those guesses as hypotheses and check them instead of believing them.`,
	domain.ResultPerfectionist: `<b>Your type: Perfectionist</b>

Good enough never feels good enough. You check, redo and polish, and the worry lives in the gap between done and perfect.

The trick is to decide in advance what "done" looks like and stop there.`,
	domain.ResultMixed: `<b>Your type: Mixed</b>

No single habit dominates: your worries borrow a bit from every type, depending on the situation.

The trick is to notice which pattern shows up today and name it. Naming a thought already weakens it.`,
}

// Renderer turns flow views into Telegram messages.
type Renderer struct {
	Channel     string
	BotUsername string
}

// Render returns the message text (HTML) and its inline keyboard.
func (r Renderer) Render(view app.View) (string, *InlineKeyboardMarkup) {
	switch v := view.(type) {
	case app.WelcomeView:
		return welcomeText, keyboard(
			row(callbackButton("🚀 Find out my type", cbStartTest)),
			row(callbackButton("❓ What is this?", cbWhatIsIt)),
		)
	case app.ExplanationView:
		return explanationText, keyboard(
			row(callbackButton("Got it, let's go!", cbBeginTest)),
		)
	case app.QuestionView:
		return r.question(v)
	case app.ResultView:
		text, ok := resultTexts[v.Result.Type]
		if !ok {
			text = resultTexts[domain.ResultMixed]
		}
		return text, keyboard(
			row(callbackButton("📱 Share with a friend", cbShareResult)),
			row(callbackButton("🔄 Take it again", cbRetakeTest)),
			row(callbackButton("✅ Get the technique", cbGetTechniques)),
		)
	case app.ShareView:
		return "<b>Forward this to a friend:</b>\n\n" + html.EscapeString(r.shareText()), keyboard(
			row(callbackButton("🔄 Take it again", cbRetakeTest)),
		)
	case app.GatedContentView:
		return techniquesText, keyboard(
			row(urlButton("💾 Open the channel", r.channelURL())),
			row(callbackButton("📤 Share with a friend", cbShareResult)),
		)
	case app.SubscriptionReminderView:
		return reminderText, keyboard(
			row(urlButton("👆 Subscribe", r.channelURL())),
			row(callbackButton("🔄 I subscribed", cbCheckSubscription)),
		)
	case app.HistoryView:
		return r.history(v), nil
	default:
		return "Something went wrong. Send /start to begin again.", nil
	}
}

func (r Renderer) question(v app.QuestionView) (string, *InlineKeyboardMarkup) {
	text := fmt.Sprintf("<b>Question %d of %d</b>\n\n%s\n\n<b>Your reaction:</b>", v.Ordinal, v.Total, html.EscapeString(v.Prompt))
	rows := make([][]InlineKeyboardButton, 0, len(v.Options))
	for _, opt := range v.Options {
		rows = append(rows, row(callbackButton(opt.Text, answerCallback(v.Ordinal, opt.Label))))
	}
	return text, keyboard(rows...)
}

func (r Renderer) history(v app.HistoryView) string {
	if len(v.Results) == 0 {
		return "You have not finished the quiz yet. Send /start to take it."
	}
	var b strings.Builder
	b.WriteString("<b>Your results</b>\n")
	for _, res := range v.Results {
		fmt.Fprintf(&b, "\n%s: %s", res.CreatedAt.Format("2006-01-02 15:04"), typeName(res.Type))
	}
	return b.String()
}

// Stats formats the admin statistics report.
func (r Renderer) Stats(stats domain.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Statistics</b>\n\nTotal attempts: %d\nToday: %d\n", stats.Total, stats.Today)
	for _, tc := range stats.Ranked() {
		fmt.Fprintf(&b, "\n%s: %d (%s%%)", typeName(tc.Type), tc.Count, stats.Share(tc.Type).StringFixed(1))
	}
	return b.String()
}

func (r Renderer) shareText() string {
	link := "https://t.me/"
	if r.BotUsername != "" {
		link += strings.TrimPrefix(r.BotUsername, "@")
	}
	return fmt.Sprintf(shareTemplate, link)
}

func (r Renderer) channelURL() string {
	return "https://t.me/" + strings.TrimPrefix(r.Channel, "@")
}

func typeName(t domain.ResultType) string {
	switch t {
	case domain.ResultCalm:
		return "Calm"
	case domain.ResultCatastrophizer:
		return "Catastrophizer"
	case domain.ResultMindReader:
		return "Mind reader"
	case domain.ResultPerfectionist:
		return "Perfectionist"
	case domain.ResultMixed:
		return "Mixed"
	default:
		return string(t)
	}
}

// ErrorText maps a flow error to the short notice shown to the user.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrOutOfSequence):
		return "This question was already answered."
	case errors.Is(err, domain.ErrInvalidOption):
		return "That option is not available."
	case errors.Is(err, domain.ErrInvalidState):
		return "Start the quiz first with /start."
	case errors.Is(err, domain.ErrAlreadyFinalized):
		return "This attempt is already finished."
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "Something went wrong on our side. Please try again later."
	case errors.Is(err, errUnknownCallback):
		return "This button is no longer supported."
	default:
		return "Something went wrong. Please try again."
	}
}
