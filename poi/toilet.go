// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package poi

import (
	"github.com/cartobdx/cartobdx/spatial"
)

// ToiletKind is the "type" column of the toilets dataset.
type ToiletKind string

// Known toilet kinds. The dataset may carry others.
const (
	KindAutomatic ToiletKind = "SANITAIRE_AUTOMATIQUE"
	KindUrinal    ToiletKind = "URINOIR"
	KindChalet    ToiletKind = "CHALET_DE_NECESSITE"
)

// KnownKinds lists the kinds with a dedicated label.
var KnownKinds = []ToiletKind{KindAutomatic, KindUrinal, KindChalet}

// Label returns the French display label of the kind.
func (k ToiletKind) Label() string {
	switch k {
	case KindAutomatic:
		return "Sanitaire automatique"
	case KindUrinal:
		return "Urinoir"
	case KindChalet:
		return "Chalet de nécessité"
	default:
		return string(k)
	}
}

// accessibleFlag is the value of the "handi" column for accessible toilets.
const accessibleFlag = "OUI"

// Toilet is a row of the public toilets dataset.
type Toilet struct {
	GeoPoint   string        `json:"geo_point"`
	GeoShape   string        `json:"geo_shape,omitempty"`
	GMLID      string        `json:"gml_id"`
	GID        int           `json:"gid"`
	GeomO      int           `json:"geom_o"`
	Address    string        `json:"address"`
	Kind       ToiletKind    `json:"type"`
	Handi      string        `json:"handi"`
	CreatedAt  string        `json:"cdate,omitempty"`
	ModifiedAt string        `json:"mdate,omitempty"`
	Point      spatial.Point `json:"point"`
	Provenance Provenance    `json:"provenance"`
}

// Accessible reports whether the toilet is wheelchair accessible.
func (t *Toilet) Accessible() bool {
	return t.Handi == accessibleFlag
}

// Key identifies the toilet by its coordinate pair, "<lat>_<lng>".
func (t *Toilet) Key() string {
	return t.Point.Key()
}
