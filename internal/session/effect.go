package session

import (
	"sheet-qa/internal/domain"
	"sheet-qa/internal/table"
)

// Effect is one state change produced by a command. Presentation layers can
// consume effects as a feed instead of diffing states.
type Effect interface {
	Kind() string
	apply(*State)
}

// AppendMessage adds Message to the end of the log.
type AppendMessage struct {
	Message domain.Message
}

func (AppendMessage) Kind() string { return "append_message" }

func (e AppendMessage) apply(s *State) { s.AppendMessage(e.Message) }

// ReplaceTable installs a freshly uploaded table.
type ReplaceTable struct {
	Table *table.Table
}

func (ReplaceTable) Kind() string { return "replace_table" }

func (e ReplaceTable) apply(s *State) { s.SetTable(e.Table) }

// ResetLog empties the message log ahead of a new upload.
type ResetLog struct{}

func (ResetLog) Kind() string { return "reset_log" }

func (ResetLog) apply(s *State) { s.Messages = nil }

// SetPendingQuestion records the question text currently in the input box.
type SetPendingQuestion struct {
	Text string
}

func (SetPendingQuestion) Kind() string { return "set_pending_question" }

func (e SetPendingQuestion) apply(s *State) { s.PendingQuestion = e.Text }

// ClearPendingQuestion empties the question input after it was answered.
type ClearPendingQuestion struct{}

func (ClearPendingQuestion) Kind() string { return "clear_pending_question" }

func (ClearPendingQuestion) apply(s *State) { s.PendingQuestion = "" }
