// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package opendata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cartobdx/cartobdx/poi"
)

// associationFields is the select list sent to the records endpoint.
var associationFields = []string{
	"rna",
	"nom",
	"sigle",
	"description",
	"etat",
	"liste_activites",
	"contact_adresse",
	"contact_cp",
	"contact_ville",
	"site_web",
	"anneecreation",
}

// RecordSet is a page of the associations dataset.
type RecordSet struct {
	TotalCount   int               `json:"total_count"`
	Associations []poi.Association `json:"results"`
	FetchedAt    time.Time         `json:"fetched_at"`
}

type recordsResponse struct {
	TotalCount int                 `json:"total_count"`
	Results    []associationRecord `json:"results"`
}

// associationRecord is the wire form of an association. Some fields are
// published as numbers or as a single string depending on the record. Every
// field is in associationFields; the dataset has no coordinates, so points
// only come from geocoding.
type associationRecord struct {
	RNA            flexString  `json:"rna"`
	Nom            flexString  `json:"nom"`
	Sigle          flexString  `json:"sigle"`
	Description    flexString  `json:"description"`
	Etat           flexString  `json:"etat"`
	ListeActivites flexStrings `json:"liste_activites"`
	ContactAdresse flexString  `json:"contact_adresse"`
	ContactCP      flexString  `json:"contact_cp"`
	ContactVille   flexString  `json:"contact_ville"`
	SiteWeb        flexString  `json:"site_web"`
	AnneeCreation  flexString  `json:"anneecreation"`
}

func (r *associationRecord) toAssociation() poi.Association {
	return poi.Association{
		ID:           string(r.RNA),
		RNA:          string(r.RNA),
		Name:         string(r.Nom),
		Acronym:      string(r.Sigle),
		Description:  string(r.Description),
		State:        string(r.Etat),
		Activities:   []string(r.ListeActivites),
		Address:      string(r.ContactAdresse),
		PostalCode:   string(r.ContactCP),
		City:         string(r.ContactVille),
		Website:      string(r.SiteWeb),
		CreationYear: string(r.AnneeCreation),
	}
}

// flexString accepts a JSON string, number, boolean or null.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""

		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}

		*s = flexString(strings.TrimSpace(v))

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = flexString(n.String())

		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = flexString(strconv.FormatBool(b))

		return nil
	}

	return fmt.Errorf("unsupported JSON value for text field: %s", data)
}

// flexStrings accepts a JSON array of strings, a single string or null.
type flexStrings []string

func (s *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil

		return nil
	}

	if len(data) > 0 && data[0] == '[' {
		var items []flexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}

		out := make([]string, 0, len(items))
		for _, it := range items {
			if it != "" {
				out = append(out, string(it))
			}
		}

		*s = out

		return nil
	}

	var one flexString
	if err := one.UnmarshalJSON(data); err != nil {
		return err
	}

	if one == "" {
		*s = nil
	} else {
		*s = []string{string(one)}
	}

	return nil
}
