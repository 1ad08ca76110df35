package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// NoContextMessage is the fixed reply used when retrieval finds nothing
// relevant. It is a successful answer, not an error.
const NoContextMessage = "I couldn't find relevant information in the textbook " +
	"to answer your question accurately. Please try rephrasing your question " +
	"or ask about a different math topic."

// MaxQuestionLength bounds incoming questions in characters.
const MaxQuestionLength = 2000

// MaxAnswerLength bounds generated answers in characters.
const MaxAnswerLength = 5000

// Answer is the outcome of one query. Either the generated text grounded in
// retrieved context, or the fixed no-context message with UsedContext false.
type Answer struct {
	// Text is the answer shown to the student.
	Text string

	// UsedContext reports whether the answer was grounded in retrieved
	// textbook passages.
	UsedContext bool

	// Sources lists the source IDs of the chunks the answer was grounded in,
	// best match first.
	Sources []string
}

// Patterns that are never legitimate in a math question.
var harmfulPatterns = []string{
	"<script", "javascript:", "data:", "vbscript:",
	"onload=", "onerror=", "onclick=",
}

// ValidateQuestion rejects empty, over-length, or abusive input. All failures
// wrap ErrInvalidInput so callers can map them to a client error.
func ValidateQuestion(question string) error {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return fmt.Errorf("%w: question is empty", ErrInvalidInput)
	}
	if len(question) > MaxQuestionLength {
		return fmt.Errorf("%w: question exceeds %d characters", ErrInvalidInput, MaxQuestionLength)
	}

	lower := strings.ToLower(question)
	for _, pattern := range harmfulPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%w: question contains disallowed content", ErrInvalidInput)
		}
	}

	// Reject spam where one word makes up more than half the message.
	words := strings.Fields(trimmed)
	if len(words) > 10 {
		counts := make(map[string]int, len(words))
		maxCount := 0
		for _, w := range words {
			counts[w]++
			if counts[w] > maxCount {
				maxCount = counts[w]
			}
		}
		if maxCount > len(words)/2 {
			return fmt.Errorf("%w: question contains excessive repetition", ErrInvalidInput)
		}
	}

	return nil
}

var (
	scriptTagRe     = regexp.MustCompile(`(?is)<script.*?</script>`)
	unsafeSchemeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)data:`),
	}
)

// SanitizeAnswer strips markup that must never reach the frontend and caps
// the answer length.
func SanitizeAnswer(answer string) string {
	answer = scriptTagRe.ReplaceAllString(answer, "")
	for _, re := range unsafeSchemeRes {
		answer = re.ReplaceAllString(answer, "")
	}
	if len(answer) > MaxAnswerLength {
		answer = answer[:MaxAnswerLength] + "..."
	}
	return strings.TrimSpace(answer)
}
