package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/lherron/schoolmig/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern  = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	phoneStrip    = regexp.MustCompile(`[^\d+]`)
	whitespace    = regexp.MustCompile(`\s+`)
	multipleAt    = regexp.MustCompile(`@@+`)
	bareDomain    = regexp.MustCompile(`@([^.]+)$`)
	domainRepairs = []struct {
		pattern *regexp.Regexp
		repl    string
	}{
		{regexp.MustCompile(`@gmail\.co$`), "@gmail.com"},
		{regexp.MustCompile(`@yahoo\.co$`), "@yahoo.com"},
	}
)

var (
	femaleIndicators = []string{"mary", "jane", "grace", "faith", "mercy", "joy", "ann", "lucy"}
	maleIndicators   = []string{"john", "peter", "paul", "david", "james", "michael", "samuel"}
)

// Options configures a Fields validator.
type Options struct {
	// CallingCode is the country calling code used to rewrite local phone
	// numbers, without the leading plus.
	CallingCode string
	// StudentAssumedAge is used to estimate missing dates of birth.
	StudentAssumedAge int
	// PasswordCost is the bcrypt cost for hashing plaintext passwords.
	PasswordCost int
	Now          func() time.Time
}

// Fields holds the field-level validators and repairs applied by the record
// builders. All methods are pure given the configured clock.
type Fields struct {
	callingCode  string
	studentAge   int
	passwordCost int
	now          func() time.Time
}

// NewFields returns a field validator. Zero options take the defaults
// (calling code 254, student age 12, bcrypt default cost, time.Now).
func NewFields(opts Options) *Fields {
	f := &Fields{
		callingCode:  strings.TrimPrefix(strings.TrimSpace(opts.CallingCode), "+"),
		studentAge:   opts.StudentAssumedAge,
		passwordCost: opts.PasswordCost,
		now:          opts.Now,
	}
	if f.callingCode == "" {
		f.callingCode = "254"
	}
	if f.studentAge <= 0 {
		f.studentAge = 12
	}
	if f.passwordCost == 0 {
		f.passwordCost = bcrypt.DefaultCost
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Email validates and repairs an email address. It returns the usable
// address, or "" when the value was empty or could not be repaired, plus any
// warning produced.
func (f *Fields) Email(raw string) (string, []string) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", nil
	}
	if emailPattern.MatchString(email) {
		return strings.ToLower(email), nil
	}
	if repaired, ok := RepairEmail(email); ok {
		return repaired, []string{fmt.Sprintf("Corrected email from %s to %s", raw, repaired)}
	}
	return "", []string{fmt.Sprintf("Invalid email format: %s", raw)}
}

// RepairEmail applies the ordered repairs: lowercase, remove whitespace,
// collapse repeated "@", append ".com" to a bare domain and fix known domain
// typos. ok is false when the result is still not a valid address.
func RepairEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", false
	}
	email = whitespace.ReplaceAllString(email, "")
	email = multipleAt.ReplaceAllString(email, "@")
	email = bareDomain.ReplaceAllString(email, "@$1.com")
	for _, r := range domainRepairs {
		email = r.pattern.ReplaceAllString(email, r.repl)
	}
	if !emailPattern.MatchString(email) {
		return "", false
	}
	return email, true
}

// Phone normalizes a phone number to international form. Local numbers with
// a leading zero are rewritten to the configured calling code. It returns ""
// plus a warning when the number cannot be used.
func (f *Fields) Phone(raw string) (string, []string) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	if phone, ok := f.NormalizePhone(raw); ok {
		return phone, nil
	}
	return "", []string{fmt.Sprintf("Invalid phone number: %s", raw)}
}

// NormalizePhone is the repair behind Phone.
func (f *Fields) NormalizePhone(raw string) (string, bool) {
	cleaned := phoneStrip.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return "", false
	}
	cc := f.callingCode
	switch {
	case strings.HasPrefix(cleaned, "0") && len(cleaned) == 10:
		return "+" + cc + cleaned[1:], true
	case strings.HasPrefix(cleaned, cc) && len(cleaned) == len(cc)+9:
		return "+" + cleaned, true
	case strings.HasPrefix(cleaned, "+"+cc) && len(cleaned) == len(cc)+10:
		return cleaned, true
	}
	if phonePattern.MatchString(cleaned) {
		return cleaned, true
	}
	return "", false
}

// Gender returns the V2 gender for a person. Recognized source values are
// used directly; anything else is inferred from the first name and always
// produces a warning.
func Gender(source, firstName string) (domain.Gender, string) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "male", "m":
		return domain.GenderMale, ""
	case "female", "f":
		return domain.GenderFemale, ""
	}
	g := InferGender(firstName)
	return g, fmt.Sprintf("Estimated gender as %s based on name", g)
}

// InferGender guesses a gender from name indicators, defaulting to MALE.
func InferGender(firstName string) domain.Gender {
	name := strings.ToLower(firstName)
	if name == "" {
		return domain.GenderMale
	}
	for _, ind := range femaleIndicators {
		if strings.Contains(name, ind) {
			return domain.GenderFemale
		}
	}
	for _, ind := range maleIndicators {
		if strings.Contains(name, ind) {
			return domain.GenderMale
		}
	}
	return domain.GenderMale
}

// GovernmentCode synthesizes a code from the first three letters of the
// first three words of name followed by the month and day of now.
func GovernmentCode(name string, now time.Time) string {
	words := strings.Fields(strings.ToUpper(name))
	if len(words) == 0 {
		words = []string{"SCHOOL"}
	}
	if len(words) > 3 {
		words = words[:3]
	}
	var b strings.Builder
	for _, w := range words {
		r := []rune(w)
		if len(r) > 3 {
			r = r[:3]
		}
		b.WriteString(string(r))
	}
	b.WriteString(now.Format("0102"))
	return b.String()
}

// GovernmentCode returns the code to use for a school and whether it was
// synthesized.
func (f *Fields) GovernmentCode(code, schoolName string) (string, bool) {
	if c := strings.TrimSpace(code); c != "" {
		return c, false
	}
	return GovernmentCode(schoolName, f.now()), true
}

// EstimateDateOfBirth returns Jan 1 of the current year minus the assumed
// student age.
func (f *Fields) EstimateDateOfBirth() time.Time {
	return time.Date(f.now().Year()-f.studentAge, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// HashPassword returns a bcrypt hash for a plaintext password. Values that
// are already bcrypt hashes are returned unchanged. An empty password returns
// "" with set false.
func (f *Fields) HashPassword(password string) (hash string, set bool, err error) {
	if password == "" {
		return "", false, nil
	}
	if IsBcryptHash(password) {
		return password, true, nil
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), f.passwordCost)
	if err != nil {
		return "", false, fmt.Errorf("hash password: %w", err)
	}
	return string(b), true, nil
}

// IsBcryptHash reports whether s looks like a bcrypt hash.
func IsBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}

// ClassLevel is one canonical V2 class level.
type ClassLevel struct {
	Name   string `json:"name" yaml:"name"`
	MinAge int    `json:"min_age" yaml:"min_age"`
	MaxAge int    `json:"max_age" yaml:"max_age"`
}

// ClassLevels is the canonical class-level table.
var ClassLevels = []ClassLevel{
	{Name: "NURSERY", MinAge: 3, MaxAge: 5},
	{Name: "PRE PRIMARY", MinAge: 5, MaxAge: 7},
	{Name: "PRIMARY", MinAge: 6, MaxAge: 14},
	{Name: "JUNIOR SECONDARY", MinAge: 14, MaxAge: 17},
	{Name: "SENIOR SECONDARY", MinAge: 17, MaxAge: 19},
}

// levelKeywords maps lower-case keywords to a canonical level name.
var levelKeywords = map[string]string{
	"nursery":          "NURSERY",
	"kindergarten":     "NURSERY",
	"preschool":        "NURSERY",
	"pre-school":       "NURSERY",
	"kg":               "NURSERY",
	"ecde":             "NURSERY",
	"ecd":              "NURSERY",
	"pre primary":      "PRE PRIMARY",
	"pre-primary":      "PRE PRIMARY",
	"preprimary":       "PRE PRIMARY",
	"pp":               "PRE PRIMARY",
	"primary":          "PRIMARY",
	"pri":              "PRIMARY",
	"junior secondary": "JUNIOR SECONDARY",
	"junior":           "JUNIOR SECONDARY",
	"jss":              "JUNIOR SECONDARY",
	"senior secondary": "SENIOR SECONDARY",
	"secondary":        "SENIOR SECONDARY",
	"high school":      "SENIOR SECONDARY",
	"high":             "SENIOR SECONDARY",
}

// keywordsByLength is levelKeywords' keys, longest first, ties alphabetical.
var keywordsByLength = func() []string {
	keys := make([]string, 0, len(levelKeywords))
	for k := range levelKeywords {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// MatchClassLevel maps a free-text school level to a canonical class level
// name. It tries an exact keyword match, then keywords contained in the
// value (longest first), then the value contained in a keyword (shortest
// first, value of at least three characters). Keywords of three characters
// or fewer only match whole words.
func MatchClassLevel(value string) (string, bool) {
	v := strings.Join(strings.Fields(strings.ToLower(value)), " ")
	if v == "" {
		return "", false
	}
	if name, ok := levelKeywords[v]; ok {
		return name, true
	}

	tokens := strings.FieldsFunc(v, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, kw := range keywordsByLength {
		if len(kw) <= 3 {
			for _, tok := range tokens {
				if tok == kw {
					return levelKeywords[kw], true
				}
			}
			continue
		}
		if strings.Contains(v, kw) {
			return levelKeywords[kw], true
		}
	}

	if len(v) < 3 {
		return "", false
	}
	for i := len(keywordsByLength) - 1; i >= 0; i-- {
		kw := keywordsByLength[i]
		if strings.Contains(kw, v) {
			return levelKeywords[kw], true
		}
	}
	return "", false
}
