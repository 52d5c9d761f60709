package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Symptom flag names in the declared feature order.
var SymptomNames = [SymptomCount]string{
	"increasedThirst",
	"frequentUrination",
	"extremeHunger",
	"unexplainedWeightLoss",
	"fatigue",
	"irritability",
	"blurredVision",
	"slowHealingSores",
	"frequentInfections",
}

// Risk factor flag names in the declared feature order.
var RiskFactorNames = [RiskFactorCount]string{
	"familyHistory",
	"overweight",
	"inactiveLifestyle",
	"highBloodPressure",
	"abnormalCholesterol",
}

const (
	SymptomCount    = 9
	RiskFactorCount = 5
)

// PatientRecord is the structured input of a single risk assessment.
// The three object groups are required; BloodGlucose is optional.
type PatientRecord struct {
	PersonalInfo *PersonalInfo `json:"personalInfo" jsonschema:"age, weight and height of the patient"`
	Symptoms     *Symptoms     `json:"symptoms" jsonschema:"reported symptom flags; omitted flags are false"`
	RiskFactors  *RiskFactors  `json:"riskFactors" jsonschema:"known risk factor flags; omitted flags are false"`
	BloodGlucose *Measurement  `json:"bloodGlucose,omitempty" jsonschema:"blood glucose reading in mg/dL; omitted or null means 0"`
}

// UnmarshalJSON decodes the record, reporting a bad bloodGlucose by field name.
func (r *PatientRecord) UnmarshalJSON(data []byte) error {
	type plain PatientRecord
	aux := struct {
		*plain
		BloodGlucose json.RawMessage `json:"bloodGlucose"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.BloodGlucose = nil
	raw := bytes.TrimSpace(aux.BloodGlucose)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var glucose Measurement
	if err := glucose.UnmarshalJSON(raw); err != nil {
		return NewMalformedInputError("bloodGlucose", err.Error())
	}
	r.BloodGlucose = &glucose
	return nil
}

// PersonalInfo carries the numeric demographics. Missing values decode to 0.
type PersonalInfo struct {
	Age    Measurement `json:"age,omitempty" jsonschema:"age in years"`
	Weight Measurement `json:"weight,omitempty" jsonschema:"weight in kilograms"`
	Height Measurement `json:"height,omitempty" jsonschema:"height in centimetres"`

	// present records which keys were supplied; it is not serialized.
	present map[string]bool
}

// UnmarshalJSON decodes the group and remembers which fields were supplied.
func (p *PersonalInfo) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewMalformedInputError("personalInfo", "value is not a valid dict")
	}

	*p = PersonalInfo{present: make(map[string]bool, 3)}
	fields := []struct {
		name string
		dst  *Measurement
	}{
		{"age", &p.Age},
		{"weight", &p.Weight},
		{"height", &p.Height},
	}
	for _, f := range fields {
		value, ok := raw[f.name]
		if !ok {
			continue
		}
		if err := f.dst.UnmarshalJSON(value); err != nil {
			return NewMalformedInputError("personalInfo."+f.name, err.Error())
		}
		if !bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			p.present[f.name] = true
		}
	}
	return nil
}

// MissingFields returns the personal info fields that were absent or null.
// A value built in code (not decoded) reports zero-valued fields as missing.
func (p *PersonalInfo) MissingFields() []string {
	var missing []string
	check := func(name string, v Measurement) {
		if p.present != nil {
			if !p.present[name] {
				missing = append(missing, name)
			}
			return
		}
		if v == 0 {
			missing = append(missing, name)
		}
	}
	check("age", p.Age)
	check("weight", p.Weight)
	check("height", p.Height)
	return missing
}

// Symptoms holds the nine symptom flags.
type Symptoms struct {
	IncreasedThirst       bool `json:"increasedThirst,omitempty"`
	FrequentUrination     bool `json:"frequentUrination,omitempty"`
	ExtremeHunger         bool `json:"extremeHunger,omitempty"`
	UnexplainedWeightLoss bool `json:"unexplainedWeightLoss,omitempty"`
	Fatigue               bool `json:"fatigue,omitempty"`
	Irritability          bool `json:"irritability,omitempty"`
	BlurredVision         bool `json:"blurredVision,omitempty"`
	SlowHealingSores      bool `json:"slowHealingSores,omitempty"`
	FrequentInfections    bool `json:"frequentInfections,omitempty"`
}

// Flags returns the symptom flags in SymptomNames order.
func (s Symptoms) Flags() [SymptomCount]bool {
	return [SymptomCount]bool{
		s.IncreasedThirst,
		s.FrequentUrination,
		s.ExtremeHunger,
		s.UnexplainedWeightLoss,
		s.Fatigue,
		s.Irritability,
		s.BlurredVision,
		s.SlowHealingSores,
		s.FrequentInfections,
	}
}

// RiskFactors holds the five risk factor flags.
type RiskFactors struct {
	FamilyHistory       bool `json:"familyHistory,omitempty"`
	Overweight          bool `json:"overweight,omitempty"`
	InactiveLifestyle   bool `json:"inactiveLifestyle,omitempty"`
	HighBloodPressure   bool `json:"highBloodPressure,omitempty"`
	AbnormalCholesterol bool `json:"abnormalCholesterol,omitempty"`
}

// Flags returns the risk factor flags in RiskFactorNames order.
func (r RiskFactors) Flags() [RiskFactorCount]bool {
	return [RiskFactorCount]bool{
		r.FamilyHistory,
		r.Overweight,
		r.InactiveLifestyle,
		r.HighBloodPressure,
		r.AbnormalCholesterol,
	}
}

// Measurement is a real-valued input that also accepts numeric strings.
// null decodes to 0. NaN and infinities are rejected; range is not validated.
type Measurement float64

// UnmarshalJSON accepts numbers, numeric strings and null.
func (m *Measurement) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("could not convert string to float: %q", s)
		}
		return m.set(v)
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("expected a number, got %s", string(data))
	}
	return m.set(v)
}

func (m *Measurement) set(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("value must be a finite number, got %v", v)
	}
	*m = Measurement(v)
	return nil
}

// Float returns the measurement as float64.
func (m Measurement) Float() float64 {
	return float64(m)
}

// GlucoseValue returns the blood glucose reading, 0 when absent.
func (r *PatientRecord) GlucoseValue() float64 {
	if r.BloodGlucose == nil {
		return 0
	}
	return r.BloodGlucose.Float()
}

// Validate checks that the record has the structure the vectorizer needs.
func (r *PatientRecord) Validate() error {
	if r == nil {
		return NewMalformedInputError("", "patient record is required")
	}
	if r.PersonalInfo == nil {
		return NewMalformedInputError("personalInfo", "field required")
	}
	if r.Symptoms == nil {
		return NewMalformedInputError("symptoms", "field required")
	}
	if r.RiskFactors == nil {
		return NewMalformedInputError("riskFactors", "field required")
	}
	return nil
}

// DecodePatientRecord decodes a JSON payload into a PatientRecord.
// Decoding and structural errors are returned as *MalformedInputError.
func DecodePatientRecord(data []byte) (*PatientRecord, error) {
	var record PatientRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, malformedFromJSON(err)
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return &record, nil
}

// malformedFromJSON converts a decoding error into a MalformedInputError.
func malformedFromJSON(err error) *MalformedInputError {
	var malformed *MalformedInputError
	if errors.As(err, &malformed) {
		return malformed
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return NewMalformedInputError(typeErr.Field, fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value))
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return NewMalformedInputError("", fmt.Sprintf("invalid JSON at offset %d: %v", syntaxErr.Offset, syntaxErr))
	}
	return NewMalformedInputError("", err.Error())
}
