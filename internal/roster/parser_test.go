package roster

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	data := strings.Join([]string{
		"Name,Email",
		"Alice Smith,alice@example.com",
		"Bob,",
		",missing@example.com",
		"  Carol Jones , carol@example.com ",
	}, "\n")

	result, err := ParseCSV(strings.NewReader(data))

	require.NoError(t, err)
	require.Len(t, result.Participants, 3)
	assert.Equal(t, 1, result.SkippedRows)
	assert.Equal(t, Participant{Name: "Alice Smith", Email: "alice@example.com"}, result.Participants[0])
	assert.Equal(t, Participant{Name: "Bob"}, result.Participants[1])
	assert.Equal(t, Participant{Name: "Carol Jones", Email: "carol@example.com"}, result.Participants[2])
}

func TestParseCSVWithoutHeader(t *testing.T) {
	data := "Alice Smith,alice@example.com\nBob,bob@example.com\n"

	result, err := ParseCSV(strings.NewReader(data))

	require.NoError(t, err)
	require.Len(t, result.Participants, 2)
	assert.Equal(t, "Alice Smith", result.Participants[0].Name)
	assert.Equal(t, 0, result.SkippedRows)
}

func TestParseCSVPreservesOrder(t *testing.T) {
	data := "Zoe,\nAlice,\nMike,\n"

	result, err := ParseCSV(strings.NewReader(data))

	require.NoError(t, err)
	names := make([]string, 0, len(result.Participants))
	for _, p := range result.Participants {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Zoe", "Alice", "Mike"}, names)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Name"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "Email"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "Alice Smith"))
	require.NoError(t, f.SetCellValue(sheet, "B2", "alice@example.com"))
	require.NoError(t, f.SetCellValue(sheet, "A3", "Bob"))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	result, err := ParseXLSX(&buf)

	require.NoError(t, err)
	require.Len(t, result.Participants, 2)
	assert.Equal(t, Participant{Name: "Alice Smith", Email: "alice@example.com"}, result.Participants[0])
	assert.Equal(t, Participant{Name: "Bob"}, result.Participants[1])
}

func TestParseDispatchesOnExtension(t *testing.T) {
	result, err := Parse("roster.csv", strings.NewReader("Alice,\n"))
	require.NoError(t, err)
	assert.Len(t, result.Participants, 1)

	_, err = Parse("roster.pdf", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
