// Package features turns patient records into the fixed-order numeric
// vector every classifier is trained on.
package features

import (
	"github.com/diabetes-risk-server/internal/domain"
)

// Positions of the feature groups inside a domain.FeatureVector.
const (
	AgeIndex         = 0
	WeightIndex      = 1
	HeightIndex      = 2
	SymptomOffset    = 3
	RiskFactorOffset = SymptomOffset + domain.SymptomCount
	GlucoseIndex     = RiskFactorOffset + domain.RiskFactorCount
)

// Extraction is a vectorized record together with the intermediate values
// the fallback scorer consumes.
type Extraction struct {
	Vector        domain.FeatureVector
	Symptoms      [domain.SymptomCount]bool
	RiskFactors   [domain.RiskFactorCount]bool
	BloodGlucose  float64
	MissingFields []string
}

// SymptomsPresent counts the true symptom flags.
func (e *Extraction) SymptomsPresent() int {
	return countTrue(e.Symptoms[:])
}

// RiskFactorsPresent counts the true risk factor flags.
func (e *Extraction) RiskFactorsPresent() int {
	return countTrue(e.RiskFactors[:])
}

// FeatureNames returns the canonical feature names in vector order.
func FeatureNames() [domain.FeatureCount]string {
	var names [domain.FeatureCount]string
	names[AgeIndex] = "age"
	names[WeightIndex] = "weight"
	names[HeightIndex] = "height"
	for i, name := range domain.SymptomNames {
		names[SymptomOffset+i] = name
	}
	for i, name := range domain.RiskFactorNames {
		names[RiskFactorOffset+i] = name
	}
	names[GlucoseIndex] = "bloodGlucose"
	return names
}

// Extract vectorizes a record. It fails only when a required group is
// structurally absent.
func Extract(record *domain.PatientRecord) (*Extraction, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}

	ex := &Extraction{
		Symptoms:      record.Symptoms.Flags(),
		RiskFactors:   record.RiskFactors.Flags(),
		BloodGlucose:  record.GlucoseValue(),
		MissingFields: record.PersonalInfo.MissingFields(),
	}

	ex.Vector[AgeIndex] = record.PersonalInfo.Age.Float()
	ex.Vector[WeightIndex] = record.PersonalInfo.Weight.Float()
	ex.Vector[HeightIndex] = record.PersonalInfo.Height.Float()
	for i, flag := range ex.Symptoms {
		ex.Vector[SymptomOffset+i] = boolToFloat(flag)
	}
	for i, flag := range ex.RiskFactors {
		ex.Vector[RiskFactorOffset+i] = boolToFloat(flag)
	}
	ex.Vector[GlucoseIndex] = ex.BloodGlucose

	return ex, nil
}

// Vectorize returns only the feature vector of a record.
func Vectorize(record *domain.PatientRecord) (domain.FeatureVector, error) {
	ex, err := Extract(record)
	if err != nil {
		return domain.FeatureVector{}, err
	}
	return ex.Vector, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
