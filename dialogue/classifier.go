package dialogue

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"inmobot/models"
)

// IntentKind is the class of an inbound message.
type IntentKind int

const (
	FreeText IntentKind = iota
	MenuCommand
	MenuOption       // 1..4
	NumericSelection // any other integer
	ReferenceLookup
	VisitRequest // "visita <ref>"
	DateTimeInput
)

func (k IntentKind) String() string {
	switch k {
	case MenuCommand:
		return "MenuCommand"
	case MenuOption:
		return "MenuOption"
	case NumericSelection:
		return "NumericSelection"
	case ReferenceLookup:
		return "ReferenceLookup"
	case VisitRequest:
		return "VisitRequest"
	case DateTimeInput:
		return "DateTimeInput"
	default:
		return "FreeText"
	}
}

// Intent is a classified message. Raw keeps the trimmed body for payload steps.
type Intent struct {
	Kind      IntentKind
	Raw       string
	Text      string // normalized
	Number    int
	Reference string
}

// DefaultReferencePattern matches the references the importer generates (REF-123)
// and the agency's own codes with the same prefix.
const DefaultReferencePattern = `ref-[a-z0-9][a-z0-9_./-]*`

const (
	menuOptions = 4
	maxNumber   = 1000000
)

var menuCommands = map[string]bool{
	"menu":     true,
	"menú":     true,
	"hola":     true,
	"inicio":   true,
	"cancelar": true,
}

var (
	numberRe   = regexp.MustCompile(`^\d+$`)
	dateTimeRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})\s+(\d{1,2}):(\d{2})$`)
	visitRe    = regexp.MustCompile(`^visita\s+(\S+)$`)
)

// Classifier turns message bodies into intents.
type Classifier struct {
	reference *regexp.Regexp
}

// NewClassifier compiles the reference pattern (case-insensitive, whole token).
// An empty pattern uses DefaultReferencePattern.
func NewClassifier(pattern string) (*Classifier, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultReferencePattern
	}
	re, err := regexp.Compile(`(?i)^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("reference pattern %q: %w", pattern, err)
	}
	return &Classifier{reference: re}, nil
}

var defaultClassifier, _ = NewClassifier(DefaultReferencePattern)

// Classify uses the default reference pattern.
func Classify(body string) Intent {
	return defaultClassifier.Classify(body)
}

func (c *Classifier) Classify(body string) Intent {
	raw := strings.TrimSpace(body)
	text := normalize(raw)
	in := Intent{Kind: FreeText, Raw: raw, Text: text}

	switch {
	case menuCommands[text]:
		in.Kind = MenuCommand
	case numberRe.MatchString(text):
		n, err := strconv.Atoi(text)
		if err != nil || n > maxNumber {
			return in
		}
		in.Number = n
		if n >= 1 && n <= menuOptions {
			in.Kind = MenuOption
		} else {
			in.Kind = NumericSelection
		}
	case c.reference.MatchString(text):
		in.Kind = ReferenceLookup
		in.Reference = strings.ToUpper(text)
	case dateTimeRe.MatchString(text):
		in.Kind = DateTimeInput
	default:
		if m := visitRe.FindStringSubmatch(text); m != nil && c.reference.MatchString(m[1]) {
			in.Kind = VisitRequest
			in.Reference = strings.ToUpper(m[1])
		}
	}
	return in
}

// normalize lowercases, collapses whitespace and drops surrounding punctuation
// ("¡Hola!" -> "hola").
func normalize(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.Trim(s, "!¡?¿.,;: ")
}

// ParseDateTime reads "DD/MM/YYYY HH:MM" in loc. Out-of-range fields (31/02, 25:00)
// are rejected rather than normalized.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	m := dateTimeRe.FindStringSubmatch(normalize(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: expected DD/MM/YYYY HH:MM, got %q", models.ErrInvalidInput, s)
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year || t.Hour() != hour || t.Minute() != minute {
		return time.Time{}, fmt.Errorf("%w: no such date %q", models.ErrInvalidInput, s)
	}
	return t, nil
}
