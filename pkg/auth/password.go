package auth

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLen = 8
	MaxPasswordLen = 128

	// Symbols that satisfy the special character rule
	PasswordSymbols = `!@#$%^&*(),.?":{}|<>`

	maxPasswordScore = 10
)

// PasswordStrength is the coarse band derived from the score
type PasswordStrength int

const (
	StrengthWeak PasswordStrength = iota
	StrengthMedium
	StrengthStrong
)

func (s PasswordStrength) String() string {
	switch s {
	case StrengthMedium:
		return "medium"
	case StrengthStrong:
		return "strong"
	default:
		return "weak"
	}
}

// MarshalText renders the band as its name in JSON
func (s PasswordStrength) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PasswordValidation is the structured result of a policy check.
// Validation failures are reported here, never as an error.
type PasswordValidation struct {
	IsValid  bool             `json:"is_valid"`
	Errors   []string         `json:"errors"`
	Strength PasswordStrength `json:"strength"`
	Score    int              `json:"score"`
}

// PasswordPolicy holds the composition rules applied when a credential is created or rotated
type PasswordPolicy struct {
	MinLength   int
	MaxLength   int
	Symbols     string
	DenyList    []string
	MediumScore int
	StrongScore int
}

// Substrings that make a password too common, matched case-insensitively
var commonPasswords = []string{
	"password",
	"password123",
	"12345678",
	"qwerty123",
	"admin123",
	"letmein",
	"welcome",
	"monkey",
	"master",
}

// DefaultPasswordPolicy returns the standard staff password rules
func DefaultPasswordPolicy() PasswordPolicy {
	denyList := make([]string, len(commonPasswords))
	copy(denyList, commonPasswords)

	return PasswordPolicy{
		MinLength:   MinPasswordLen,
		MaxLength:   MaxPasswordLen,
		Symbols:     PasswordSymbols,
		DenyList:    denyList,
		MediumScore: 5,
		StrongScore: 7,
	}
}

// ValidatePassword checks a password against the default policy
func ValidatePassword(password string) PasswordValidation {
	return DefaultPasswordPolicy().Validate(password)
}

// Validate scores the password and lists every rule it breaks
func (p PasswordPolicy) Validate(password string) PasswordValidation {
	errors := make([]string, 0)
	score := 0

	// Length is counted in characters, not bytes
	length := utf8.RuneCountInString(password)
	if length < p.MinLength {
		errors = append(errors, fmt.Sprintf("must be at least %d characters", p.MinLength))
	} else {
		score++
		if length >= 12 {
			score++
		}
		if length >= 16 {
			score++
		}
	}
	if p.MaxLength > 0 && length > p.MaxLength {
		errors = append(errors, fmt.Sprintf("must be at most %d characters", p.MaxLength))
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSymbol := false

	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(p.Symbols, r):
			hasSymbol = true
		}
	}

	if hasUpper {
		score++
	} else {
		errors = append(errors, "must contain at least one uppercase letter (A-Z)")
	}
	if hasLower {
		score++
	} else {
		errors = append(errors, "must contain at least one lowercase letter (a-z)")
	}
	if hasDigit {
		score++
	} else {
		errors = append(errors, "must contain at least one digit (0-9)")
	}
	if hasSymbol {
		score++
	} else {
		errors = append(errors, fmt.Sprintf("must contain at least one special character (%s)", p.Symbols))
	}

	// Deny list hits are errors but leave the score alone
	lower := strings.ToLower(password)
	for _, common := range p.DenyList {
		if strings.Contains(lower, strings.ToLower(common)) {
			errors = append(errors, "is too common, please choose a more unique password")
			break
		}
	}

	strength := StrengthWeak
	if score >= p.MediumScore {
		strength = StrengthMedium
	}
	if score >= p.StrongScore && len(errors) == 0 {
		strength = StrengthStrong
	}

	if score > maxPasswordScore {
		score = maxPasswordScore
	}

	return PasswordValidation{
		IsValid:  len(errors) == 0,
		Errors:   errors,
		Strength: strength,
		Score:    score,
	}
}
