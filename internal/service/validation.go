package service

import (
	"regexp"
	"strings"
	"time"

	"taskwell/internal/apperrors"
)

const (
	dateLayout     = "2006-01-02"
	minimumAge     = 10
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt input limit in bytes
	passwordSymbol = "@$!%*?&"
	maxTitleLen    = 200
	maxCategoryLen = 50
)

var namePattern = regexp.MustCompile(`^[A-Za-z\s\-]{2,50}$`)

var genders = map[string]struct{}{
	"Male":              {},
	"Female":            {},
	"Prefer not to say": {},
}

// ProfileInput carries the profile attributes collected at account creation.
type ProfileInput struct {
	Name   string
	Gender string
	DOB    string
}

// ValidName reports whether name is 2-50 letters, spaces or hyphens.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// ValidPassword reports whether password satisfies the password policy:
// 8 to 72 characters drawn only from ASCII letters, digits and @$!%*?&, with
// at least one of each class.
func ValidPassword(password string) bool {
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbol, r):
			symbol = true
		default:
			return false
		}
	}
	return lower && upper && digit && symbol
}

// ValidGender reports whether gender is one of the accepted values.
func ValidGender(gender string) bool {
	_, ok := genders[gender]
	return ok
}

// ValidDOB reports whether dob is a YYYY-MM-DD date not after today and at
// least ten years before it.
func ValidDOB(dob string, now time.Time) bool {
	born, err := time.Parse(dateLayout, dob)
	if err != nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if born.After(today) {
		return false
	}
	age := today.Year() - born.Year()
	if today.Month() < born.Month() || (today.Month() == born.Month() && today.Day() < born.Day()) {
		age--
	}
	return age >= minimumAge
}

// ValidDate reports whether value parses as YYYY-MM-DD.
func ValidDate(value string) bool {
	_, err := time.Parse(dateLayout, value)
	return err == nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateProfile checks name, gender and dob in that order and reports the
// first failure.
func validateProfile(p ProfileInput, now time.Time, nameMsg, dobMsg string) error {
	if !ValidName(p.Name) {
		return apperrors.Validation(nameMsg)
	}
	if !ValidGender(p.Gender) {
		return apperrors.Validation("Invalid gender")
	}
	if !ValidDOB(p.DOB, now) {
		return apperrors.Validation(dobMsg)
	}
	return nil
}

// validateNewPassword checks confirmation before policy.
func validateNewPassword(password, confirm, weakMsg string) error {
	if password != confirm {
		return apperrors.Validation("Passwords do not match")
	}
	if !ValidPassword(password) {
		return apperrors.Validation(weakMsg)
	}
	return nil
}
