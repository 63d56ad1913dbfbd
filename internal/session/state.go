// Package session holds the per-session state of one user interaction: the
// uploaded table, the message log and the pending question.
package session

import (
	"errors"
	"time"

	"sheet-qa/internal/domain"
	"sheet-qa/internal/table"
)

// StartupPrompt seeds the message log of a fresh session.
const StartupPrompt = "Please upload an Excel file to start."

// ErrNoTable is returned when marking a session as uploaded without a table.
var ErrNoTable = errors.New("session: no table to mark as uploaded")

// State is the mutable aggregate of a single session. FileUploaded is true
// exactly when Table is non-nil; the mutators keep that invariant.
type State struct {
	ID              string
	FileUploaded    bool
	Table           *table.Table
	Messages        []domain.Message
	PendingQuestion string
	UpdatedAt       time.Time
}

// New returns a fresh session seeded with the startup prompt.
func New(id string) *State {
	s := &State{ID: id}
	s.Reset()
	return s
}

// Reset drops the table and pending question and restores the startup prompt.
func (s *State) Reset() {
	s.FileUploaded = false
	s.Table = nil
	s.PendingQuestion = ""
	s.Messages = []domain.Message{domain.SystemMessage(StartupPrompt)}
}

func (s *State) AppendMessage(m domain.Message) {
	s.Messages = append(s.Messages, m)
}

// SetTable replaces the table wholesale. A nil table clears the upload flag.
func (s *State) SetTable(t *table.Table) {
	s.Table = t
	s.FileUploaded = t != nil
}

// SetFileUploaded toggles the upload flag. Clearing it drops the table;
// setting it requires a table to be present.
func (s *State) SetFileUploaded(uploaded bool) error {
	if !uploaded {
		s.SetTable(nil)
		return nil
	}
	if s.Table == nil {
		return ErrNoTable
	}
	s.FileUploaded = true
	return nil
}

// Apply runs the effects against s in order.
func (s *State) Apply(effects ...Effect) {
	for _, e := range effects {
		if e != nil {
			e.apply(s)
		}
	}
}

// Clone returns a copy whose message log can be mutated independently. The
// table is immutable and shared.
func (s *State) Clone() *State {
	cp := *s
	cp.Messages = make([]domain.Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return &cp
}
