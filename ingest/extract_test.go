package ingest

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource []Row

func (s *sliceSource) Next() (Row, error) {
	if len(*s) == 0 {
		return Row{}, io.EOF
	}
	row := (*s)[0]
	*s = (*s)[1:]
	return row, nil
}

func rowsOf(records ...[]string) *sliceSource {
	src := make(sliceSource, 0, len(records))
	for i, r := range records {
		src = append(src, Row{Line: i + 2, Fields: r})
	}
	return &src
}

func TestExtract_SampleScenario(t *testing.T) {
	sets, err := Extract(rowsOf(
		[]string{"0", "TownA", "CT", "1", "StateX", "10", "DistrictY"},
		[]string{"1", "TownB", "CT", "1", "StateX", "10", "DistrictY"},
	))
	require.NoError(t, err)

	assert.Equal(t, []StateRecord{{Name: "StateX", Code: "1", Line: 2}}, sets.States)
	assert.Equal(t, []DistrictRecord{{Name: "DistrictY", Code: "10", State: "StateX", Line: 2}}, sets.Districts)
	assert.Equal(t, []TownRecord{
		{Name: "TownA", UrbanStatus: "CT", District: "DistrictY", Line: 2},
		{Name: "TownB", UrbanStatus: "CT", District: "DistrictY", Line: 3},
	}, sets.Towns)
	assert.Equal(t, 2, sets.Rows)
	assert.Empty(t, sets.Warnings)
	assert.Empty(t, sets.RowErrors)
}

func TestExtract_FirstSeenWinsWithWarning(t *testing.T) {
	sets, err := Extract(rowsOf(
		[]string{"0", "TownA", "CT", "1", "StateX", "10", "DistrictY"},
		[]string{"1", "TownB", "CT", "2", "StateX", "11", "DistrictY"},
		[]string{"2", "TownA", "M", "1", "StateX", "10", "DistrictY"},
	))
	require.NoError(t, err)

	require.Len(t, sets.States, 1)
	assert.Equal(t, "1", sets.States[0].Code)
	require.Len(t, sets.Districts, 1)
	assert.Equal(t, "10", sets.Districts[0].Code)
	require.Len(t, sets.Towns, 2)
	assert.Equal(t, "CT", sets.Towns[0].UrbanStatus)

	require.Len(t, sets.Warnings, 3)
	assert.Equal(t, Warning{
		Kind:      WarnConflictingDuplicate,
		Entity:    "state",
		Name:      "StateX",
		Line:      3,
		FirstLine: 2,
		Message:   `code "2" ignored, keeping "1"`,
	}, sets.Warnings[0])
	assert.Equal(t, "district", sets.Warnings[1].Entity)
	assert.Equal(t, "town", sets.Warnings[2].Entity)
	assert.Equal(t, 4, sets.Warnings[2].Line)
}

func TestExtract_NamesAreCaseSensitive(t *testing.T) {
	sets, err := Extract(rowsOf(
		[]string{"0", "TownA", "CT", "1", "StateX", "10", "DistrictY"},
		[]string{"1", "towna", "CT", "1", "statex", "10", "DistrictY"},
	))
	require.NoError(t, err)
	assert.Len(t, sets.States, 2)
	assert.Len(t, sets.Towns, 2)
}

func TestExtract_MalformedRows(t *testing.T) {
	sets, err := Extract(rowsOf(
		[]string{"0", "TownA", "CT"},
		[]string{"1", "TownB", "CT", "1", "", "10", "DistrictY"},
		[]string{"2", "TownC", "CT", "1", "StateX", "10", "DistrictY"},
	))
	require.NoError(t, err)

	require.Len(t, sets.RowErrors, 2)
	assert.Equal(t, RowError{Line: 2, Fields: []string{"0", "TownA", "CT"}, Reason: "expected 7 fields, got 3"}, sets.RowErrors[0])
	assert.Equal(t, "empty state name", sets.RowErrors[1].Reason)
	assert.Equal(t, 3, sets.RowErrors[1].Line)

	require.Len(t, sets.Towns, 1)
	assert.Equal(t, "TownC", sets.Towns[0].Name)
	assert.Equal(t, 3, sets.Rows)
}
