package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sheet-qa/internal/integrations/objectstore"
	"sheet-qa/internal/usecase"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func salesRows() [][]any {
	return [][]any{
		{"Product Name", "Sales Amount"},
		{"A", 10},
		{"B", 30},
		{"C", 20},
	}
}

func TestRunAsk_TotalSales(t *testing.T) {
	archiveDir := t.TempDir()
	archiver, err := objectstore.NewDirArchiver(archiveDir)
	require.NoError(t, err)

	var out bytes.Buffer
	err = runAsk(context.Background(), &out, askOptions{
		file:     writeWorkbook(t, salesRows()),
		question: "what are the total sales?",
		archiver: archiver,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Equal(t, "[user] what are the total sales?", lines[len(lines)-2])
	require.Equal(t, "[system] The total sales are 60", lines[len(lines)-1])
	require.Contains(t, out.String(), "File uploaded to object storage: file://")

	entries, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRunAsk_RejectsBadPolicy(t *testing.T) {
	archiver, err := objectstore.NewDirArchiver(t.TempDir())
	require.NoError(t, err)

	err = runAsk(context.Background(), &bytes.Buffer{}, askOptions{
		file:          writeWorkbook(t, salesRows()),
		question:      "total sales",
		archiver:      archiver,
		archivePolicy: "sometimes",
	})
	require.Error(t, err)
}

func TestRunAsk_ParseFailurePrintsLog(t *testing.T) {
	archiver, err := objectstore.NewDirArchiver(t.TempDir())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	var out bytes.Buffer
	err = runAsk(context.Background(), &out, askOptions{file: path, question: "total sales", archiver: archiver})
	var uerr *usecase.Error
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, usecase.ErrorParseFailure, uerr.Code)
	require.Contains(t, out.String(), "[system] Error processing file: ")
}

func TestRunInspect(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runInspect(&out, writeWorkbook(t, salesRows()), 2))

	text := out.String()
	require.Contains(t, text, "Product Name")
	require.Contains(t, text, "B")
	require.NotContains(t, text, "C ")
	require.True(t, strings.HasSuffix(text, "3 rows\n"))
}

func TestRunInspect_MissingFile(t *testing.T) {
	err := runInspect(&bytes.Buffer{}, filepath.Join(t.TempDir(), "missing.xlsx"), 0)
	require.Error(t, err)
}
