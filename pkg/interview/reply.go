package interview

import (
	"regexp"
	"strings"
)

var (
	feedbackRe = regexp.MustCompile(`(?is)Feedback:(.*?)Next Question:`)
	questionRe = regexp.MustCompile(`(?is)Next Question:(.*)`)
	leadingRe  = regexp.MustCompile(`(?i)^\s*Feedback:`)
)

// Reply is a model turn split into its two sections.
type Reply struct {
	Feedback     string
	NextQuestion string
}

// ParseReply splits a model reply on the "Feedback:" and "Next Question:"
// markers, case-insensitively. Text without a question marker is returned
// whole as the question, minus a leading "Feedback:" label.
func ParseReply(text string) Reply {
	var r Reply
	if m := feedbackRe.FindStringSubmatch(text); m != nil {
		r.Feedback = strings.TrimSpace(m[1])
	}
	if m := questionRe.FindStringSubmatch(text); m != nil {
		r.NextQuestion = strings.TrimSpace(m[1])
		return r
	}
	r.NextQuestion = strings.TrimSpace(leadingRe.ReplaceAllString(text, ""))
	return r
}
