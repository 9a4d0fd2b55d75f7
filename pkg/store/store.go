// Package store defines the InterviewStore interface for saved transcripts.
package store

import (
	"errors"

	"github.com/jxucoder/mockmate/pkg/model"
)

// ErrNotFound is returned when an interview does not exist.
var ErrNotFound = errors.New("interview not found")

// InterviewStore persists finished or in-progress interview transcripts.
type InterviewStore interface {
	SaveInterview(iv *model.Interview) error
	GetInterview(id string) (*model.Interview, error)
	// ListInterviews returns a user's interviews, newest first.
	ListInterviews(userID string) ([]*model.Interview, error)
	Close() error
}
