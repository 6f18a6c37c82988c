package model

import "time"

// PackageKind distinguishes scheduled tryouts from practice drills.
type PackageKind string

const (
	PackageKindTryout PackageKind = "tryout"
	PackageKindDrill  PackageKind = "drill"
)

// Package is an exam offering with a global open/close window.
type Package struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Kind    PackageKind `json:"type"`
	ClassID *int64      `json:"classId,omitempty"`
	TOStart time.Time   `json:"TOstart"`
	TOEnd   time.Time   `json:"TOend"`
}

// PackageWindow is the part of a package this engine depends on.
type PackageWindow struct {
	PackageID int64     `json:"packageId"`
	TOStart   time.Time `json:"TOstart"`
	TOEnd     time.Time `json:"TOend"`
}

// Window returns the package time window.
func (p *Package) Window() PackageWindow {
	return PackageWindow{PackageID: p.ID, TOStart: p.TOStart, TOEnd: p.TOEnd}
}
