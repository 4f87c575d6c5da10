package models

// StateRef is the State snapshot embedded in a District.
type StateRef struct {
	Name string `json:"name" bson:"name"`
	Code string `json:"code" bson:"code"`
}

// TownSummary is the entry a District keeps for each of its towns.
type TownSummary struct {
	Name        string `json:"name" bson:"name"`
	UrbanStatus string `json:"urbanStatus" bson:"urbanStatus"`
}

type District struct {
	Base  `bson:",inline"`
	Name  string        `json:"name" bson:"name"`
	Code  string        `json:"code" bson:"code"`
	State StateRef      `json:"state" bson:"state"`
	Towns []TownSummary `json:"towns" bson:"towns"`
}

func (d *District) GetName() string { return d.Name }

func (d *District) HasTown(name string) bool {
	for _, t := range d.Towns {
		if t.Name == name {
			return true
		}
	}
	return false
}

// DistrictTownRow mirrors the CSV columns so a listing can be exported back.
type DistrictTownRow struct {
	Town         string `json:"town,omitempty" bson:"town,omitempty"`
	UrbanStatus  string `json:"Urban_status,omitempty" bson:"Urban_status,omitempty"`
	State        string `json:"State" bson:"State"`
	StateCode    string `json:"State_code" bson:"State_code"`
	District     string `json:"District" bson:"District"`
	DistrictCode string `json:"District_code" bson:"District_code"`
}
