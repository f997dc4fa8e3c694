package service

import (
	"strings"
	"unicode"

	"github.com/noah-isme/roster-console/internal/models"
)

const passwordSymbols = `!@#$%^&*(),.?":{}|<>`

// EvaluatePasswordStrength scores a password against the five registration
// criteria. An empty password has no label.
func EvaluatePasswordStrength(password string) models.PasswordStrength {
	criteria := models.PasswordCriteria{
		MinLength:    len(password) >= 8,
		HasNumber:    strings.IndexFunc(password, isASCIIDigit) >= 0,
		HasUppercase: strings.IndexFunc(password, isASCIIUpper) >= 0,
		HasLowercase: strings.IndexFunc(password, isASCIILower) >= 0,
		HasSymbol:    strings.ContainsAny(password, passwordSymbols),
	}

	out := models.PasswordStrength{Criteria: criteria}
	if password == "" {
		return out
	}
	switch met := criteria.Met(); {
	case met <= 2:
		out.Label, out.Class = "Very Weak", "very-weak"
	case met == 3:
		out.Label, out.Class = "Weak", "weak"
	case met == 4:
		out.Label, out.Class = "Medium", "medium"
	default:
		out.Label, out.Class = "Strong", "strong"
	}
	return out
}

func isASCIIDigit(r rune) bool { return r <= unicode.MaxASCII && unicode.IsDigit(r) }
func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }
