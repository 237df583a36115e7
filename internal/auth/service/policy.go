package service

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Form field names checked by CredentialPolicy.
const (
	FieldUsername = "username"
	FieldPassword = "password"
)

// ValidationErrors maps a form field to every complaint about its value.
type ValidationErrors map[string][]string

func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e ValidationErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Validator returns a complaint about value, or "" if it is acceptable.
type Validator func(value string) string

// CredentialPolicy holds the validators run against each credential field.
// Every validator runs; failures are collected rather than stopping at the
// first one.
type CredentialPolicy struct {
	validators map[string][]Validator
}

// NewCredentialPolicy builds the default username and password rules.
func NewCredentialPolicy(minUsername, minPassword int) *CredentialPolicy {
	return &CredentialPolicy{validators: map[string][]Validator{
		FieldUsername: {
			minLength("username", minUsername),
			usernameCharset,
		},
		FieldPassword: {
			minLength("password", minPassword),
			noWhitespace,
		},
	}}
}

// Validate checks fields against the policy. It returns nil when nothing
// is wrong.
func (p *CredentialPolicy) Validate(fields map[string]string) ValidationErrors {
	errs := ValidationErrors{}
	for field, value := range fields {
		for _, v := range p.validators[field] {
			if msg := v(value); msg != "" {
				errs.add(field, msg)
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func minLength(field string, n int) Validator {
	return func(value string) string {
		if len([]rune(value)) < n {
			return fmt.Sprintf("Required minimum %s length is %d.", field, n)
		}
		return ""
	}
}

// Usernames end up inside the dot-separated token subject, so dots are out.
func usernameCharset(value string) string {
	for _, r := range value {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-') {
			return "Username may contain only letters, digits, '_' and '-'."
		}
	}
	return ""
}

func noWhitespace(value string) string {
	if strings.IndexFunc(value, unicode.IsSpace) >= 0 {
		return "Whitespace characters are not allowed in password."
	}
	return ""
}
