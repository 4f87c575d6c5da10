package models

// DistrictSummary is the entry a State keeps for each of its districts.
type DistrictSummary struct {
	Name string `json:"name" bson:"name"`
	Code string `json:"code" bson:"code"`
}

type State struct {
	Base      `bson:",inline"`
	Name      string            `json:"name" bson:"name"`
	Code      string            `json:"code" bson:"code"`
	Districts []DistrictSummary `json:"districts" bson:"districts"`
}

func (s *State) GetName() string { return s.Name }

// HasDistrict reports whether the summary list already names the district.
func (s *State) HasDistrict(name string) bool {
	for _, d := range s.Districts {
		if d.Name == name {
			return true
		}
	}
	return false
}

// StateDistrictRow is one row of the state listing, one per (state, district) pair.
type StateDistrictRow struct {
	State        string `json:"state" bson:"state"`
	District     string `json:"district,omitempty" bson:"district,omitempty"`
	DistrictCode string `json:"district_code,omitempty" bson:"district_code,omitempty"`
}
