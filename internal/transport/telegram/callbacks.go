package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"anxiety-quiz-bot/internal/app"
)

// Callback data sent by inline buttons.
const (
	cbStartTest         = "start_test"
	cbWhatIsIt          = "what_is_it"
	cbBeginTest         = "begin_test"
	cbRetakeTest        = "retake_test"
	cbShareResult       = "share_result"
	cbGetTechniques     = "get_techniques"
	cbCheckSubscription = "check_subscription"
	cbAnswerPrefix      = "answer_"
)

var errUnknownCallback = errors.New("unknown callback")

// ParseCallback turns button data into a flow event.
// Answers are encoded as answer_<ordinal>_<label>, e.g. answer_3_B.
func ParseCallback(data string) (app.Event, error) {
	switch data {
	case cbStartTest:
		return app.StartTest{}, nil
	case cbWhatIsIt:
		return app.ShowExplanation{}, nil
	case cbBeginTest:
		return app.BeginTest{}, nil
	case cbRetakeTest:
		return app.Retake{}, nil
	case cbShareResult:
		return app.ShareResult{}, nil
	case cbGetTechniques:
		return app.RequestGatedContent{}, nil
	case cbCheckSubscription:
		return app.RecheckSubscription{}, nil
	}

	rest, ok := strings.CutPrefix(data, cbAnswerPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownCallback, data)
	}
	rawOrdinal, label, ok := strings.Cut(rest, "_")
	if !ok || label == "" {
		return nil, fmt.Errorf("%w: %q", errUnknownCallback, data)
	}
	ordinal, err := strconv.Atoi(rawOrdinal)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errUnknownCallback, data)
	}
	return app.AnswerSelected{Ordinal: ordinal, Label: label}, nil
}

func answerCallback(ordinal int, label string) string {
	return cbAnswerPrefix + strconv.Itoa(ordinal) + "_" + label
}

// Commands understood in private chats.
const (
	cmdStart   = "/start"
	cmdHistory = "/history"
	cmdStats   = "/stats"
)

// parseCommand returns the command of a message without bot mention and arguments.
func parseCommand(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(cmd)
}
