package models

// DistrictRef is the District snapshot embedded in a Town.
type DistrictRef struct {
	Name  string `json:"name" bson:"name"`
	State string `json:"state" bson:"state"`
}

type Town struct {
	Base        `bson:",inline"`
	Name        string      `json:"name" bson:"name"`
	UrbanStatus string      `json:"urbanStatus" bson:"urbanStatus"`
	District    DistrictRef `json:"district" bson:"district"`
}

func (t *Town) GetName() string { return t.Name }

type TownRow struct {
	Town     string `json:"town" bson:"town"`
	State    string `json:"state" bson:"state"`
	District string `json:"district" bson:"district"`
}
