package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sheet-qa/internal/session"
	"sheet-qa/internal/table"
)

type mockArchiver struct {
	url      string
	err      error
	filename string
	body     []byte
	calls    int
}

func (m *mockArchiver) Upload(_ context.Context, filename string, body io.Reader) (string, error) {
	m.calls++
	m.filename = filename
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.body = b
	return m.url, m.err
}

type mockStore struct {
	states  map[string]*session.State
	getErr  error
	saveErr error
	delErr  error
	saved   int
	deleted []string
}

func newMockStore() *mockStore {
	return &mockStore{states: map[string]*session.State{}}
}

func (m *mockStore) Get(_ context.Context, id string) (*session.State, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	s, ok := m.states[id]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *mockStore) Save(_ context.Context, s *session.State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved++
	m.states[s.ID] = s.Clone()
	return nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	if m.delErr != nil {
		return m.delErr
	}
	m.deleted = append(m.deleted, id)
	delete(m.states, id)
	return nil
}

func workbookBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func salesWorkbook(t *testing.T) []byte {
	t.Helper()
	return workbookBytes(t, [][]any{
		{"Product Name", "Sales Amount"},
		{"A", 10},
		{"B", 30},
		{"C", 20},
	})
}

func salesTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(
		[]string{"Product Name", "Sales Amount"},
		[][]string{{"A", "10"}, {"B", "30"}, {"C", "20"}},
	)
	require.NoError(t, err)
	return tbl
}

func expectUsecaseError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.Equal(t, reason, usecaseErr.Reason)
}

type failingSeeker struct {
	*bytes.Reader
	failAfter int
	seeks     int
}

func (f *failingSeeker) Seek(offset int64, whence int) (int64, error) {
	f.seeks++
	if f.seeks > f.failAfter {
		return 0, errors.New("seek not supported")
	}
	return f.Reader.Seek(offset, whence)
}
