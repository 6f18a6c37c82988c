package model

// SubtestType is the category of a subtest within a package.
type SubtestType string

const (
	SubtestTypePU  SubtestType = "pu"
	SubtestTypePPU SubtestType = "ppu"
	SubtestTypePBM SubtestType = "pbm"
	SubtestTypePK  SubtestType = "pk"
	SubtestTypeLB  SubtestType = "lb"
	SubtestTypePM  SubtestType = "pm"
)

var subtestLabels = map[SubtestType]string{
	SubtestTypePU:  "Kemampuan Penalaran Umum",
	SubtestTypePPU: "Pengetahuan dan Pemahaman Umum",
	SubtestTypePBM: "Kemampuan Memahami Bacaan dan Menulis",
	SubtestTypePK:  "Pengetahuan Kuantitatif",
	SubtestTypeLB:  "Literasi Bahasa Indonesia dan Bahasa Inggris",
	SubtestTypePM:  "Penalaran Matematika",
}

// Label returns the display name of the subtest type, or the raw code when unknown.
func (t SubtestType) Label() string {
	if l, ok := subtestLabels[t]; ok {
		return l
	}
	return string(t)
}

// Subtest is a timed category within a package.
type Subtest struct {
	ID        int64       `json:"id"`
	PackageID int64       `json:"packageId"`
	Type      SubtestType `json:"type"`
	// Duration is in minutes.
	Duration int `json:"duration"`
}
