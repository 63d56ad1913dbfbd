package table

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func salesTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New(
		[]string{"Product Name", "Sales Amount"},
		[][]string{{"A", "10"}, {"B", "30"}, {"C", "20"}},
	)
	require.NoError(t, err)
	return tbl
}

func TestNew_NormalizesHeader(t *testing.T) {
	tbl, err := New([]string{"Name", "", "Name", " Name "}, [][]string{{"a", "b", "c", "d", "e"}})
	require.NoError(t, err)
	require.Equal(t, []string{"Name", "Column_2", "Name.1", "Name.2", "Column_5"}, tbl.Columns())
}

func TestNew_PadsShortRows(t *testing.T) {
	tbl, err := New([]string{"a", "b", "c"}, [][]string{{"1"}, {}})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"1", "", ""}, {"", "", ""}}, tbl.Rows())
	require.Equal(t, 2, tbl.Len())
}

func TestNew_NoColumns(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
}

func TestRows_ReturnsCopy(t *testing.T) {
	tbl := salesTable(t)
	rows := tbl.Rows()
	rows[0][0] = "changed"
	require.Equal(t, "A", tbl.Rows()[0][0])
}

func TestSum(t *testing.T) {
	sum, err := salesTable(t).Sum("Sales Amount")
	require.NoError(t, err)
	require.Equal(t, 60.0, sum)
	require.Equal(t, "60", FormatNumber(sum))
}

func TestSum_SkipsEmptyCells(t *testing.T) {
	tbl, err := New([]string{"Sales Amount"}, [][]string{{"1.5"}, {""}, {" 2 "}})
	require.NoError(t, err)
	sum, err := tbl.Sum("Sales Amount")
	require.NoError(t, err)
	require.Equal(t, "3.5", FormatNumber(sum))
}

func TestSum_Errors(t *testing.T) {
	_, err := salesTable(t).Sum("Revenue")
	require.ErrorIs(t, err, ErrMissingColumn)

	tbl, err := New([]string{"Sales Amount"}, [][]string{{"1"}, {"n/a"}})
	require.NoError(t, err)
	_, err = tbl.Sum("Sales Amount")
	require.ErrorIs(t, err, ErrNotNumeric)
	require.ErrorContains(t, err, "row 2")
}

func TestTop_OrdersDescending(t *testing.T) {
	records, err := salesTable(t).Top(5, "Sales Amount", "Product Name", "Sales Amount")
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "{Product Name: B, Sales Amount: 30}", records[0].String())
	require.Equal(t, "{Product Name: C, Sales Amount: 20}", records[1].String())
	require.Equal(t, "{Product Name: A, Sales Amount: 10}", records[2].String())
}

func TestTop_LimitsAndKeepsTieOrder(t *testing.T) {
	tbl, err := New(
		[]string{"Product Name", "Sales Amount"},
		[][]string{{"p1", "5"}, {"p2", "9"}, {"p3", "5"}, {"p4", "9"}, {"p5", "1"}, {"p6", "5"}, {"p7", ""}},
	)
	require.NoError(t, err)

	records, err := tbl.Top(5, "Sales Amount", "Product Name")
	require.NoError(t, err)
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r[0].Value
	}
	require.Equal(t, []string{"p2", "p4", "p1", "p3", "p6"}, names)
}

func TestTop_Errors(t *testing.T) {
	_, err := salesTable(t).Top(5, "Sales Amount", "Product")
	require.ErrorIs(t, err, ErrMissingColumn)

	_, err = salesTable(t).Top(5, "Revenue", "Product Name")
	require.ErrorIs(t, err, ErrMissingColumn)
}
