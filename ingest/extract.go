package ingest

import (
	"fmt"
	"io"
)

// Column positions in a directory CSV row.
const (
	colIndex = iota
	colTown
	colUrbanStatus
	colStateCode
	colState
	colDistrictCode
	colDistrict

	rowWidth
)

// StateRecord is the first row seen for a state name.
type StateRecord struct {
	Name string
	Code string
	Line int
}

// DistrictRecord is the first row seen for a district name; State is the
// parent name.
type DistrictRecord struct {
	Name  string
	Code  string
	State string
	Line  int
}

// TownRecord is the first row seen for a town name; District is the parent name.
type TownRecord struct {
	Name        string
	UrbanStatus string
	District    string
	Line        int
}

// RowError is a data row that could not be used.
type RowError struct {
	Line   int      `json:"line"`
	Fields []string `json:"fields"`
	Reason string   `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// WarnConflictingDuplicate is the Warning kind for a repeated name with
// different values.
const WarnConflictingDuplicate = "conflicting_duplicate"

// Warning flags a row whose values were ignored because an earlier row
// already defined the same name differently.
type Warning struct {
	Kind      string `json:"kind"`
	Entity    string `json:"entity"`
	Name      string `json:"name"`
	Line      int    `json:"line"`
	FirstLine int    `json:"firstLine"`
	Message   string `json:"message"`
}

// Sets holds the three deduplicated entity sets in first-seen order.
type Sets struct {
	States    []StateRecord
	Districts []DistrictRecord
	Towns     []TownRecord

	Rows      int
	Warnings  []Warning
	RowErrors []RowError
}

// Extract folds every row of src into Sets. The first row to name a state,
// district or town defines it; later rows with the same name only produce a
// warning when their values differ. Malformed rows are collected in
// RowErrors. The only error returned is a stream error from src.
func Extract(src RowSource) (*Sets, error) {
	sets := &Sets{}
	states := map[string]int{}
	districts := map[string]int{}
	towns := map[string]int{}

	for {
		row, err := src.Next()
		if err == io.EOF {
			return sets, nil
		}
		if err != nil {
			return nil, err
		}
		sets.Rows++

		if reason := malformed(row.Fields); reason != "" {
			sets.RowErrors = append(sets.RowErrors, RowError{Line: row.Line, Fields: row.Fields, Reason: reason})
			continue
		}
		f := row.Fields

		state := StateRecord{Name: f[colState], Code: f[colStateCode], Line: row.Line}
		if i, ok := states[state.Name]; !ok {
			states[state.Name] = len(sets.States)
			sets.States = append(sets.States, state)
		} else if first := sets.States[i]; first.Code != state.Code {
			sets.warn("state", state.Name, row.Line, first.Line,
				fmt.Sprintf("code %q ignored, keeping %q", state.Code, first.Code))
		}

		district := DistrictRecord{Name: f[colDistrict], Code: f[colDistrictCode], State: f[colState], Line: row.Line}
		if i, ok := districts[district.Name]; !ok {
			districts[district.Name] = len(sets.Districts)
			sets.Districts = append(sets.Districts, district)
		} else if first := sets.Districts[i]; first.Code != district.Code || first.State != district.State {
			sets.warn("district", district.Name, row.Line, first.Line,
				fmt.Sprintf("code %q and state %q ignored, keeping %q in %q", district.Code, district.State, first.Code, first.State))
		}

		town := TownRecord{Name: f[colTown], UrbanStatus: f[colUrbanStatus], District: f[colDistrict], Line: row.Line}
		if i, ok := towns[town.Name]; !ok {
			towns[town.Name] = len(sets.Towns)
			sets.Towns = append(sets.Towns, town)
		} else if first := sets.Towns[i]; first.UrbanStatus != town.UrbanStatus || first.District != town.District {
			sets.warn("town", town.Name, row.Line, first.Line,
				fmt.Sprintf("urban status %q and district %q ignored, keeping %q in %q", town.UrbanStatus, town.District, first.UrbanStatus, first.District))
		}
	}
}

func (s *Sets) warn(entity, name string, line, firstLine int, msg string) {
	s.Warnings = append(s.Warnings, Warning{
		Kind:      WarnConflictingDuplicate,
		Entity:    entity,
		Name:      name,
		Line:      line,
		FirstLine: firstLine,
		Message:   msg,
	})
}

func malformed(fields []string) string {
	if len(fields) < rowWidth {
		return fmt.Sprintf("expected %d fields, got %d", rowWidth, len(fields))
	}
	switch {
	case fields[colTown] == "":
		return "empty town name"
	case fields[colState] == "":
		return "empty state name"
	case fields[colDistrict] == "":
		return "empty district name"
	}
	return ""
}
