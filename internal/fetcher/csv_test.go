package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRecords(t *testing.T) {
	input := "Name,Street Address,City\nSunny Days,123 Main St,Richmond\nLittle Sprouts,456 Oak Ave,Norfolk\n"

	records, err := CSVRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Sunny Days", records[0]["name"])
	assert.Equal(t, "123 Main St", records[0]["street_address"])
	assert.Equal(t, "Norfolk", records[1]["city"])
}

func TestCSVRecordsQuotedFields(t *testing.T) {
	input := `name,address,notes
"Smith, Jones & Co Preschool","789 ""B"" Street","multi
line note"
`
	records, err := CSVRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Smith, Jones & Co Preschool", records[0]["name"])
	assert.Equal(t, `789 "B" Street`, records[0]["address"])
	// Embedded newlines collapse under whitespace compaction.
	assert.Equal(t, "multi line note", records[0]["notes"])
}

func TestCSVRecordsCRLF(t *testing.T) {
	input := "name,city\r\nAlpha,Austin\r\nBeta,Dallas\r\n"

	records, err := CSVRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Austin", records[0]["city"])
	assert.Equal(t, "Beta", records[1]["name"])
}

func TestCSVRecordsSkipsBlankRows(t *testing.T) {
	input := "name,city\nAlpha,Austin\n,\nBeta,Dallas\n"

	records, err := CSVRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Alpha", records[0]["name"])
	assert.Equal(t, "Beta", records[1]["name"])
}

func TestCSVRecordsRaggedRows(t *testing.T) {
	input := "name,city,zip\nAlpha,Austin\nBeta,Dallas,75201,extra\n"

	records, err := CSVRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "", records[0]["zip"])
	assert.Equal(t, "75201", records[1]["zip"])
}

func TestCSVRecordsEmpty(t *testing.T) {
	records, err := CSVRecords(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = CSVRecords(strings.NewReader("name,city\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecordPick(t *testing.T) {
	rec := Record{"phone_number": "555-1234", "city": "Richmond"}

	assert.Equal(t, "555-1234", rec.Pick("Phone", "Phone Number"))
	assert.Equal(t, "Richmond", rec.Pick("City"))
	assert.Equal(t, "", rec.Pick("State", "Province"))
}

func TestRecordRaw(t *testing.T) {
	rec := Record{"name": "Alpha", "city": "Austin"}
	raw := rec.Raw()

	require.Len(t, raw, 2)
	assert.Equal(t, "Alpha", raw["name"])
}
