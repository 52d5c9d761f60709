package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestRiskTierLabels(t *testing.T) {
	tests := []struct {
		name     string
		value    RiskTier
		expected string
	}{
		{"High", RiskHigh, "High risk"},
		{"Moderate", RiskModerate, "Moderate risk"},
		{"Low", RiskLow, "Low risk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.Label() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.value.Label())
			}

			parsed, ok := ParseRiskTier(tt.expected)
			if !ok || parsed != tt.value {
				t.Errorf("ParseRiskTier(%q) = %s, %v", tt.expected, parsed, ok)
			}

			parsed, ok = ParseRiskTier(tt.value.String())
			if !ok || parsed != tt.value {
				t.Errorf("ParseRiskTier(%q) = %s, %v", tt.value.String(), parsed, ok)
			}
		})
	}

	if _, ok := ParseRiskTier("Severe"); ok {
		t.Error("Expected unknown tier to be rejected")
	}
}

func TestScoreResultResponse(t *testing.T) {
	result := &ScoreResult{Value: 55, Tier: RiskModerate, Method: MethodModel}
	resp := result.Response()

	if resp.Prediction != 55 {
		t.Errorf("Expected prediction 55, got %v", resp.Prediction)
	}
	if resp.RiskLevel != "Moderate risk" {
		t.Errorf("Expected riskLevel 'Moderate risk', got %s", resp.RiskLevel)
	}
}

func TestFeatureCount(t *testing.T) {
	if FeatureCount != 18 {
		t.Errorf("Expected 18 features, got %d", FeatureCount)
	}

	var v FeatureVector
	v[0] = 45
	s := v.Slice()
	s[0] = 0
	if v[0] != 45 {
		t.Error("Slice must return a copy")
	}
}

func TestDecodePatientRecord(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		check   func(t *testing.T, r *PatientRecord)
	}{
		{
			name: "Complete record",
			payload: `{
				"personalInfo": {"age": 45, "weight": 70.5, "height": 170},
				"symptoms": {"increasedThirst": true, "fatigue": true},
				"riskFactors": {"familyHistory": true},
				"bloodGlucose": 180
			}`,
			check: func(t *testing.T, r *PatientRecord) {
				if r.PersonalInfo.Age != 45 || r.PersonalInfo.Weight != 70.5 || r.PersonalInfo.Height != 170 {
					t.Errorf("Unexpected personal info: %+v", r.PersonalInfo)
				}
				if !r.Symptoms.IncreasedThirst || !r.Symptoms.Fatigue || r.Symptoms.BlurredVision {
					t.Errorf("Unexpected symptoms: %+v", r.Symptoms)
				}
				if !r.RiskFactors.FamilyHistory || r.RiskFactors.Overweight {
					t.Errorf("Unexpected risk factors: %+v", r.RiskFactors)
				}
				if r.GlucoseValue() != 180 {
					t.Errorf("Expected glucose 180, got %v", r.GlucoseValue())
				}
				if len(r.PersonalInfo.MissingFields()) != 0 {
					t.Errorf("Expected no missing fields, got %v", r.PersonalInfo.MissingFields())
				}
			},
		},
		{
			name:    "Numeric strings and missing glucose",
			payload: `{"personalInfo": {"age": "45", "weight": " 80 "}, "symptoms": {}, "riskFactors": {}}`,
			check: func(t *testing.T, r *PatientRecord) {
				if r.PersonalInfo.Age != 45 || r.PersonalInfo.Weight != 80 {
					t.Errorf("Unexpected personal info: %+v", r.PersonalInfo)
				}
				if r.BloodGlucose != nil || r.GlucoseValue() != 0 {
					t.Errorf("Expected absent glucose, got %v", r.BloodGlucose)
				}
				if !reflect.DeepEqual(r.PersonalInfo.MissingFields(), []string{"height"}) {
					t.Errorf("Expected height missing, got %v", r.PersonalInfo.MissingFields())
				}
			},
		},
		{
			name:    "Null values decode to zero",
			payload: `{"personalInfo": {"age": null}, "symptoms": {}, "riskFactors": {}, "bloodGlucose": null}`,
			check: func(t *testing.T, r *PatientRecord) {
				if r.PersonalInfo.Age != 0 || r.GlucoseValue() != 0 {
					t.Errorf("Expected zeros, got age=%v glucose=%v", r.PersonalInfo.Age, r.GlucoseValue())
				}
				if !reflect.DeepEqual(r.PersonalInfo.MissingFields(), []string{"age", "weight", "height"}) {
					t.Errorf("Expected all fields missing, got %v", r.PersonalInfo.MissingFields())
				}
			},
		},
		{
			name:    "Negative and string glucose values pass through",
			payload: `{"personalInfo": {"age": -5}, "symptoms": {}, "riskFactors": {}, "bloodGlucose": "150.5"}`,
			check: func(t *testing.T, r *PatientRecord) {
				if r.PersonalInfo.Age != -5 {
					t.Errorf("Expected age -5, got %v", r.PersonalInfo.Age)
				}
				if r.GlucoseValue() != 150.5 {
					t.Errorf("Expected glucose 150.5, got %v", r.GlucoseValue())
				}
			},
		},
		{
			name:    "Unknown keys are ignored",
			payload: `{"personalInfo": {"age": 30, "bmi": 22}, "symptoms": {"headache": true}, "riskFactors": {}}`,
			check: func(t *testing.T, r *PatientRecord) {
				if r.PersonalInfo.Age != 30 {
					t.Errorf("Expected age 30, got %v", r.PersonalInfo.Age)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := DecodePatientRecord([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			tt.check(t, record)
		})
	}
}

func TestDecodePatientRecord_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{"Missing symptoms", `{"personalInfo": {}, "riskFactors": {}}`, "symptoms"},
		{"Null risk factors", `{"personalInfo": {}, "symptoms": {}, "riskFactors": null}`, "riskFactors"},
		{"Missing personal info", `{"symptoms": {}, "riskFactors": {}}`, "personalInfo"},
		{"Non-numeric age", `{"personalInfo": {"age": "abc"}, "symptoms": {}, "riskFactors": {}}`, "personalInfo.age"},
		{"Boolean weight", `{"personalInfo": {"weight": true}, "symptoms": {}, "riskFactors": {}}`, "personalInfo.weight"},
		{"Personal info not an object", `{"personalInfo": [1, 2], "symptoms": {}, "riskFactors": {}}`, "personalInfo"},
		{"NaN age", `{"personalInfo": {"age": "NaN"}, "symptoms": {}, "riskFactors": {}}`, "personalInfo.age"},
		{"Infinite weight", `{"personalInfo": {"weight": "Infinity"}, "symptoms": {}, "riskFactors": {}}`, "personalInfo.weight"},
		{"Negative infinite height", `{"personalInfo": {"height": "-Inf"}, "symptoms": {}, "riskFactors": {}}`, "personalInfo.height"},
		{"Non-finite glucose", `{"personalInfo": {}, "symptoms": {}, "riskFactors": {}, "bloodGlucose": "inf"}`, "bloodGlucose"},
		{"Non-numeric glucose", `{"personalInfo": {}, "symptoms": {}, "riskFactors": {}, "bloodGlucose": "high"}`, "bloodGlucose"},
		{"Invalid JSON", `{"personalInfo": `, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePatientRecord([]byte(tt.payload))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !errors.Is(err, ErrMalformedInput) {
				t.Fatalf("Expected ErrMalformedInput, got %v", err)
			}

			var malformed *MalformedInputError
			if !errors.As(err, &malformed) {
				t.Fatalf("Expected *MalformedInputError, got %T", err)
			}
			if malformed.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, malformed.Field)
			}
		})
	}
}

func TestFlagsOrder(t *testing.T) {
	s := Symptoms{IncreasedThirst: true, FrequentInfections: true}
	flags := s.Flags()
	if !flags[0] || !flags[SymptomCount-1] {
		t.Errorf("Unexpected symptom flag order: %v", flags)
	}
	for i := 1; i < SymptomCount-1; i++ {
		if flags[i] {
			t.Errorf("Symptom flag %s should be false", SymptomNames[i])
		}
	}

	r := RiskFactors{AbnormalCholesterol: true}
	rf := r.Flags()
	if !rf[RiskFactorCount-1] || rf[0] {
		t.Errorf("Unexpected risk factor flag order: %v", rf)
	}
}
