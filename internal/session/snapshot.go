package session

import (
	"encoding/json"
	"fmt"
	"time"

	"sheet-qa/internal/domain"
	"sheet-qa/internal/table"
)

// Snapshot is the serialisable form of a State used by persistent stores.
type Snapshot struct {
	ID              string           `json:"id"`
	FileUploaded    bool             `json:"fileUploaded"`
	Table           *TableSnapshot   `json:"table,omitempty"`
	Messages        []domain.Message `json:"messages"`
	PendingQuestion string           `json:"pendingQuestion"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

type TableSnapshot struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// EncodedTableSize is the size of t once serialised into a snapshot.
func EncodedTableSize(t *table.Table) (int, error) {
	if t == nil {
		return 0, nil
	}
	raw, err := json.Marshal(TableSnapshot{Columns: t.Columns(), Rows: t.Rows()})
	if err != nil {
		return 0, fmt.Errorf("session: encode table: %w", err)
	}
	return len(raw), nil
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		ID:              s.ID,
		FileUploaded:    s.FileUploaded,
		Messages:        append([]domain.Message(nil), s.Messages...),
		PendingQuestion: s.PendingQuestion,
		UpdatedAt:       s.UpdatedAt,
	}
	if s.Table != nil {
		snap.Table = &TableSnapshot{Columns: s.Table.Columns(), Rows: s.Table.Rows()}
	}
	return snap
}

// Restore rebuilds a State from snap. The upload flag is derived from the
// table so a stale flag cannot break the State invariant.
func Restore(snap Snapshot) (*State, error) {
	s := &State{
		ID:              snap.ID,
		Messages:        append([]domain.Message(nil), snap.Messages...),
		PendingQuestion: snap.PendingQuestion,
		UpdatedAt:       snap.UpdatedAt,
	}
	if snap.Table != nil {
		t, err := table.New(snap.Table.Columns, snap.Table.Rows)
		if err != nil {
			return nil, fmt.Errorf("session: restore table: %w", err)
		}
		s.SetTable(t)
	}
	return s, nil
}
