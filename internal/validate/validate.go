// Package validate holds the registration form rules. The same rules are
// enforced again by CHECK constraints in the database schema, so a row can
// only exist if both layers agreed on it.
package validate

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	// MaxEmailLength caps the normalized email address.
	MaxEmailLength = 254
	// MaxURLLength caps LinkedIn URLs and resume paths.
	MaxURLLength = 500
	// MinNameLength and MaxNameLength bound the trimmed full name, in runes.
	MinNameLength = 2
	MaxNameLength = 100
	// MinPhoneLength and MaxPhoneLength bound the WhatsApp number including
	// an optional leading plus.
	MinPhoneLength = 7
	MaxPhoneLength = 20
)

var (
	emailPattern      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9]+$`)
	resumePathPattern = regexp.MustCompile(`^[A-Za-z0-9._/\-]+$`)
	phoneSeparators   = regexp.MustCompile(`[\s\-().]+`)
)

// RegistrationInput is the sanitized form submission coming into validation.
type RegistrationInput struct {
	FullName       string
	Email          string
	WhatsappNumber string
	LinkedinURL    string
	ResumePath     string
}

// FieldErrors maps field names to human-readable validation messages.
type FieldErrors map[string]string

// Error joins all field messages in field order.
func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// Sanitize trims whitespace and strips markup-significant and control
// characters from free-text input.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '<' || r == '>' || r == '&' || r == '"':
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeWhatsapp strips common separators so "+254 712-345 678"
// validates the same as "+254712345678".
func NormalizeWhatsapp(s string) string {
	return phoneSeparators.ReplaceAllString(strings.TrimSpace(s), "")
}

// NormalizeLinkedIn coerces a profile URL to https and verifies it points at
// a linkedin.com host. Returns the normalized URL.
func NormalizeLinkedIn(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", errInvalidLinkedIn
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errInvalidLinkedIn
	}
	if u.User != nil {
		return "", errInvalidLinkedIn
	}
	host := strings.ToLower(u.Hostname())
	if host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return "", errInvalidLinkedIn
	}
	u.Scheme = "https"
	u.Host = host
	// tracking query strings add nothing to a profile reference
	u.RawQuery = ""
	u.Fragment = ""
	normalized := u.String()
	if len(normalized) > MaxURLLength {
		return "", errLinkedInTooLong
	}
	return normalized, nil
}

type validationError string

func (e validationError) Error() string { return string(e) }

const (
	errNameRequired    = validationError("full name is required")
	errNameLength      = validationError("full name must be between 2 and 100 characters")
	errNameCharset     = validationError("full name may only contain letters, spaces, apostrophes and hyphens")
	errEmailRequired   = validationError("email is required")
	errEmailTooLong    = validationError("email must be 254 characters or fewer")
	errEmailInvalid    = validationError("enter a valid email address")
	errPhoneLength     = validationError("WhatsApp number must be between 7 and 20 digits")
	errPhoneCharset    = validationError("WhatsApp number may only contain digits and an optional leading +")
	errInvalidLinkedIn = validationError("enter a valid LinkedIn profile URL")
	errLinkedInTooLong = validationError("LinkedIn URL must be 500 characters or fewer")
	errResumePath      = validationError("resume path is invalid")
	errAnchorRequired  = validationError("provide a LinkedIn profile or upload a resume")
)

// FullName validates a sanitized, trimmed full name.
func FullName(s string) error {
	if s == "" {
		return errNameRequired
	}
	runes := []rune(s)
	if len(runes) < MinNameLength || len(runes) > MaxNameLength {
		return errNameLength
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) && r != ' ' && r != '\'' && r != '-' {
			return errNameCharset
		}
	}
	return nil
}

// Email validates a normalized email address.
func Email(s string) error {
	if s == "" {
		return errEmailRequired
	}
	if len(s) > MaxEmailLength {
		return errEmailTooLong
	}
	if !emailPattern.MatchString(s) {
		return errEmailInvalid
	}
	return nil
}

// Whatsapp validates a normalized WhatsApp number. Empty is allowed; the
// field is optional.
func Whatsapp(s string) error {
	if s == "" {
		return nil
	}
	if len(s) < MinPhoneLength || len(s) > MaxPhoneLength {
		return errPhoneLength
	}
	if !phonePattern.MatchString(s) {
		return errPhoneCharset
	}
	return nil
}

// ResumePath validates a storage path produced by the upload flow: safe
// charset, .pdf suffix, no parent-directory segments. Empty is allowed.
func ResumePath(s string) error {
	if s == "" {
		return nil
	}
	if len(s) > MaxURLLength {
		return errResumePath
	}
	if !strings.HasSuffix(strings.ToLower(s), ".pdf") {
		return errResumePath
	}
	if !resumePathPattern.MatchString(s) {
		return errResumePath
	}
	if strings.Contains(s, "..") {
		return errResumePath
	}
	return nil
}

// Registration sanitizes, normalizes and validates a full submission.
// It returns the normalized input alongside any field errors; the returned
// input is only meaningful when the error map is empty.
func Registration(in RegistrationInput) (RegistrationInput, FieldErrors) {
	errs := FieldErrors{}

	in.FullName = Sanitize(in.FullName)
	if err := FullName(in.FullName); err != nil {
		errs["full_name"] = err.Error()
	}

	in.Email = NormalizeEmail(Sanitize(in.Email))
	if err := Email(in.Email); err != nil {
		errs["email"] = err.Error()
	}

	in.WhatsappNumber = NormalizeWhatsapp(Sanitize(in.WhatsappNumber))
	if err := Whatsapp(in.WhatsappNumber); err != nil {
		errs["whatsapp_number"] = err.Error()
	}

	normalized, err := NormalizeLinkedIn(Sanitize(in.LinkedinURL))
	if err != nil {
		errs["linkedin_url"] = err.Error()
	} else {
		in.LinkedinURL = normalized
	}

	in.ResumePath = strings.TrimSpace(in.ResumePath)
	if err := ResumePath(in.ResumePath); err != nil {
		errs["resume_path"] = err.Error()
	}

	if in.LinkedinURL == "" && in.ResumePath == "" {
		if _, seen := errs["linkedin_url"]; !seen {
			errs["linkedin_url"] = errAnchorRequired.Error()
		}
	}

	if len(errs) == 0 {
		return in, nil
	}
	return in, errs
}
