// Package validation provides input validation utilities
package validation

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

//go:embed common_passwords.txt
var commonPasswordList string

var commonPasswords = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(commonPasswordList, "\n") {
		if p := strings.TrimSpace(line); p != "" {
			set[strings.ToLower(p)] = struct{}{}
		}
	}
	return set
}()

// maxPasswordBytes is bcrypt's input limit; longer inputs are silently truncated.
const maxPasswordBytes = 72

// UserAttributes are the account values a password must not resemble.
type UserAttributes struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// PasswordPolicy checks a candidate password and returns every violation.
type PasswordPolicy interface {
	Check(password string, attrs UserAttributes) []string
}

// DefaultPolicy enforces a minimum length, rejects entirely numeric and common
// passwords, and rejects passwords too similar to the user's own attributes.
type DefaultPolicy struct {
	MinLength           int
	MaxSimilarity       float64
	CheckAgainstCommons bool
}

// NewDefaultPolicy returns the policy used for signup and password change.
func NewDefaultPolicy() DefaultPolicy {
	return DefaultPolicy{MinLength: 8, MaxSimilarity: 0.7, CheckAgainstCommons: true}
}

func (p DefaultPolicy) Check(password string, attrs UserAttributes) []string {
	var problems []string

	if msg := similarityProblem(password, attrs, p.MaxSimilarity); msg != "" {
		problems = append(problems, msg)
	}
	if len([]rune(password)) < p.MinLength {
		problems = append(problems, fmt.Sprintf("This password is too short. It must contain at least %d characters.", p.MinLength))
	}
	if len(password) > maxPasswordBytes {
		problems = append(problems, fmt.Sprintf("This password must not exceed %d bytes.", maxPasswordBytes))
	}
	if p.CheckAgainstCommons {
		if _, ok := commonPasswords[strings.ToLower(strings.TrimSpace(password))]; ok {
			problems = append(problems, "This password is too common.")
		}
	}
	if password != "" && isAllDigits(password) {
		problems = append(problems, "This password is entirely numeric.")
	}

	return problems
}

// StrictPolicy applies ValidatePassword's composition rules.
type StrictPolicy struct{}

func (StrictPolicy) Check(password string, _ UserAttributes) []string {
	if err := ValidatePassword(password); err != nil {
		return []string{err.Error()}
	}
	return nil
}

// ValidatePassword checks if a password meets the strict composition requirements
func ValidatePassword(password string) error {
	if len(password) < 12 {
		return fmt.Errorf("password must be at least 12 characters long")
	}

	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordBytes)
	}

	var hasUpper, hasLower bool
	for _, r := range password {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if unicode.IsLower(r) {
			hasLower = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}

	if !digitRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}

	if !specialRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one special character (!@#$%%^&*)")
	}

	return nil
}

var (
	digitRegex   = regexp.MustCompile(`[0-9]`)
	specialRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
	wordSplit    = regexp.MustCompile(`\W+`)
)

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func similarityProblem(password string, attrs UserAttributes, maxSimilarity float64) string {
	if maxSimilarity <= 0 {
		return ""
	}
	lowered := strings.ToLower(password)
	candidates := []struct {
		label string
		value string
	}{
		{"username", attrs.Username},
		{"email address", attrs.Email},
		{"first name", attrs.FirstName},
		{"last name", attrs.LastName},
	}
	for _, c := range candidates {
		value := strings.ToLower(c.value)
		if value == "" {
			continue
		}
		parts := append([]string{value}, wordSplit.Split(value, -1)...)
		for _, part := range parts {
			if len(part) < 3 {
				continue
			}
			if similarity(lowered, part) >= maxSimilarity {
				return fmt.Sprintf("The password is too similar to the %s.", c.label)
			}
		}
	}
	return ""
}

// similarity returns 2*LCS/(len(a)+len(b)) in [0, 1], where LCS is the
// longest common subsequence of the two strings.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 1
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			switch {
			case ra[i-1] == rb[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return 2 * float64(prev[len(rb)]) / float64(len(ra)+len(rb))
}
