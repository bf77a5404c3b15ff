// Package draft holds the candidate's editable application form: merging the
// persisted profile with session identity, field-level input normalization,
// and the submit-time validation gate.
package draft

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ciportal/api/internal/store"
)

const (
	nationalIDLength  = 12
	bankAccountMinLen = 10
	bankAccountMaxLen = 18
)

// ValidationError is a locally detected, field-specific failure. It never
// reaches the network layer as anything but a 422 payload.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Identity is the minimal session-cached profile used when no persisted
// profile is available (or to backfill blanks in one).
type Identity struct {
	Name  string
	Email string
}

// Merge reconciles the three draft sources in ascending priority: session
// identity, the persisted profile, then local edits. The form date is always
// stamped fresh.
func Merge(identity Identity, persisted, edits store.Profile) store.Profile {
	merged := persisted

	overlayStrings(&merged, edits)

	if merged.Name == "" {
		merged.Name = identity.Name
	}
	if merged.Email == "" {
		merged.Email = identity.Email
	}

	merged.PenaltyAgreed = edits.PenaltyAgreed || persisted.PenaltyAgreed
	merged.HealthDeclAgreed = edits.HealthDeclAgreed || persisted.HealthDeclAgreed

	merged.FormDate = time.Now().Format("2006-01-02")
	return merged
}

func overlayStrings(dst *store.Profile, src store.Profile) {
	pick := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	pick(&dst.Name, src.Name)
	pick(&dst.Email, src.Email)
	pick(&dst.DOB, src.DOB)
	pick(&dst.Phone, src.Phone)
	pick(&dst.GuardianName, src.GuardianName)
	pick(&dst.Residence, src.Residence)
	pick(&dst.Area, src.Area)
	pick(&dst.Landmark, src.Landmark)
	pick(&dst.Address, src.Address)
	pick(&dst.ExamCityPref1, src.ExamCityPref1)
	pick(&dst.ExamCityPref2, src.ExamCityPref2)
	pick(&dst.PriorExperience, src.PriorExperience)
	pick(&dst.ExperienceYears, src.ExperienceYears)
	pick(&dst.ExperienceRole, src.ExperienceRole)
	pick(&dst.PhotoURL, src.PhotoURL)
	pick(&dst.SignatureURL, src.SignatureURL)
	pick(&dst.ThumbprintURL, src.ThumbprintURL)
	pick(&dst.NationalID, src.NationalID)
	pick(&dst.Fever, src.Fever)
	pick(&dst.Cough, src.Cough)
	pick(&dst.Breathlessness, src.Breathlessness)
	pick(&dst.SoreThroat, src.SoreThroat)
	pick(&dst.OtherSymptoms, src.OtherSymptoms)
	pick(&dst.OtherSymptomsDetails, src.OtherSymptomsDetails)
	pick(&dst.CloseContact, src.CloseContact)
	pick(&dst.AccountHolder, src.AccountHolder)
	pick(&dst.BankName, src.BankName)
	pick(&dst.IFSC, src.IFSC)
	pick(&dst.Branch, src.Branch)
	pick(&dst.BankAccountNo, src.BankAccountNo)
}

// KnownField reports whether the name addresses an editable profile field.
func KnownField(field string) bool {
	switch field {
	case "nationalId", "bankAccountNo", "penaltyAgreed", "healthDeclAgreed":
		return true
	}
	var p store.Profile
	_, ok := stringField(&p, field)
	return ok
}

// ApplyField stores one raw input value on the profile, applying the
// field-specific normalization rules. The returned error reflects the
// field's validity after the update; inputs that would overflow the digit
// fields leave the stored value unchanged.
func ApplyField(p *store.Profile, field, raw string) *ValidationError {
	switch field {
	case "nationalId":
		digits := digitsOnly(raw)
		if len(digits) <= nationalIDLength {
			p.NationalID = digits
		}
		if len(p.NationalID) != nationalIDLength {
			return &ValidationError{Field: "nationalId", Message: fmt.Sprintf("national ID must be exactly %d digits", nationalIDLength)}
		}
		return nil
	case "bankAccountNo":
		digits := digitsOnly(raw)
		if len(digits) <= bankAccountMaxLen {
			p.BankAccountNo = digits
		}
		if n := len(p.BankAccountNo); n > 0 && (n < bankAccountMinLen || n > bankAccountMaxLen) {
			return &ValidationError{Field: "bankAccountNo", Message: fmt.Sprintf("bank account number must be %d to %d digits", bankAccountMinLen, bankAccountMaxLen)}
		}
		return nil
	case "penaltyAgreed":
		p.PenaltyAgreed = parseBool(raw)
		return nil
	case "healthDeclAgreed":
		p.HealthDeclAgreed = parseBool(raw)
		return nil
	}

	target, ok := stringField(p, field)
	if !ok {
		return &ValidationError{Field: field, Message: "unknown field"}
	}
	*target = raw
	return nil
}

// Validate is the submit-time gate. Pure: same profile, same outcome, same
// first failing field.
func Validate(p store.Profile) *ValidationError {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(p.Email) == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if p.NationalID == "" {
		return &ValidationError{Field: "nationalId", Message: "national ID is required"}
	}
	if len(p.NationalID) != nationalIDLength || digitsOnly(p.NationalID) != p.NationalID {
		return &ValidationError{Field: "nationalId", Message: fmt.Sprintf("national ID must be exactly %d digits", nationalIDLength)}
	}
	if n := len(p.BankAccountNo); n > 0 {
		if n < bankAccountMinLen || n > bankAccountMaxLen || digitsOnly(p.BankAccountNo) != p.BankAccountNo {
			return &ValidationError{Field: "bankAccountNo", Message: fmt.Sprintf("bank account number must be %d to %d digits", bankAccountMinLen, bankAccountMaxLen)}
		}
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && value
}

func stringField(p *store.Profile, field string) (*string, bool) {
	fields := map[string]*string{
		"name":                 &p.Name,
		"email":                &p.Email,
		"dob":                  &p.DOB,
		"phone":                &p.Phone,
		"guardianName":         &p.GuardianName,
		"residence":            &p.Residence,
		"area":                 &p.Area,
		"landmark":             &p.Landmark,
		"address":              &p.Address,
		"examCityPref1":        &p.ExamCityPref1,
		"examCityPref2":        &p.ExamCityPref2,
		"priorExperience":      &p.PriorExperience,
		"experienceYears":      &p.ExperienceYears,
		"experienceRole":       &p.ExperienceRole,
		"photoUrl":             &p.PhotoURL,
		"signatureUrl":         &p.SignatureURL,
		"thumbprintUrl":        &p.ThumbprintURL,
		"fever":                &p.Fever,
		"cough":                &p.Cough,
		"breathlessness":       &p.Breathlessness,
		"soreThroat":           &p.SoreThroat,
		"otherSymptoms":        &p.OtherSymptoms,
		"otherSymptomsDetails": &p.OtherSymptomsDetails,
		"closeContact":         &p.CloseContact,
		"accountHolder":        &p.AccountHolder,
		"bankName":             &p.BankName,
		"ifsc":                 &p.IFSC,
		"branch":               &p.Branch,
	}
	target, ok := fields[field]
	return target, ok
}
