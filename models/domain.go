// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"fmt"
)

// Domain is implemented by every typed record that can be stored through
// the sync engine.
type Domain interface {
	EntityType() EntityType
}

// Patient is a person registered at a facility.
type Patient struct {
	GivenName   string `json:"givenName"`
	FamilyName  string `json:"familyName"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Sex         string `json:"sex,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	FacilityID  string `json:"facilityId,omitempty"`
	// DraftNote is kept on the device and never uploaded.
	DraftNote string `json:"draftNote,omitempty"`
}

func (Patient) EntityType() EntityType { return EntityPatient }

// ImmunizationEvent records one administered dose.
type ImmunizationEvent struct {
	// PatientID references a local patient id.
	PatientID    string `json:"patientId"`
	VaccineCode  string `json:"vaccineCode"`
	DoseNumber   int    `json:"doseNumber"`
	AdministerAt int64  `json:"administeredAt"`
	LotNumber    string `json:"lotNumber,omitempty"`
	Site         string `json:"site,omitempty"`
}

func (ImmunizationEvent) EntityType() EntityType { return EntityImmunizationEvent }

// Notification is a reminder addressed to a patient.
type Notification struct {
	PatientID string `json:"patientId"`
	Channel   string `json:"channel"`
	Message   string `json:"message"`
	SendAt    int64  `json:"sendAt"`
	Read      bool   `json:"read,omitempty"`
}

func (Notification) EntityType() EntityType { return EntityNotification }

// ReferenceData is a lookup entry such as a vaccine catalogue item.
type ReferenceData struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Label    string `json:"label"`
	Active   bool   `json:"active"`
}

func (ReferenceData) EntityType() EntityType { return EntityReferenceData }

// Record is the typed view of an Entity.
type Record[T Domain] struct {
	ID           string `json:"id"`
	RemoteID     string `json:"remote_id,omitempty"`
	Version      int64  `json:"version"`
	LastModified int64  `json:"last_modified"`
	Dirty        bool   `json:"dirty"`
	Data         T      `json:"data"`
}

// ToPayload converts a typed record into a payload map.
func ToPayload[T Domain](v T) (Payload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", v.EntityType(), err)
	}
	p := Payload{}
	if err = json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", v.EntityType(), err)
	}
	return p, nil
}

// FromPayload decodes a payload map into a typed value.
func FromPayload[T Domain](p Payload) (T, error) {
	var out T
	raw, err := json.Marshal(p)
	if err != nil {
		return out, fmt.Errorf("marshal payload: %w", err)
	}
	if err = json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("unmarshal %s: %w", out.EntityType(), err)
	}
	return out, nil
}

// RecordFromEntity builds the typed view of e.
func RecordFromEntity[T Domain](e Entity) (Record[T], error) {
	data, err := FromPayload[T](e.Payload)
	if err != nil {
		return Record[T]{}, err
	}
	return Record[T]{
		ID:           e.ID,
		RemoteID:     e.RemoteIDOrEmpty(),
		Version:      e.Version,
		LastModified: e.LastModified,
		Dirty:        e.Dirty,
		Data:         data,
	}, nil
}
