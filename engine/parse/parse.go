// Package parse extracts scheduling signals from one pt-BR chat utterance.
// Every function is pure: unrecognized input yields a zero value, never an
// error, so the orchestrator's missing-field logic stays declarative.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Action is the high-level scheduling verb carried by an utterance.
type Action string

const (
	ActionNone       Action = ""
	ActionSchedule   Action = "schedule"
	ActionReschedule Action = "reschedule"
	ActionCancel     Action = "cancel"
)

// Signals is the aggregate parser output for one utterance. Empty string /
// zero fields mean "not found in this message".
type Signals struct {
	Action  Action
	Date    string // YYYY-MM-DD
	Time    string // HH:MM, zero-padded 24h
	Person  string
	Service string
	Confirm bool
	Deny    bool
	Ordinal int // 1-based pick from a previously shown list, 0 if absent
}

// Pre-compiled patterns. Matching happens on accent-folded lowercase text,
// so the alternations stay plain ASCII.
var (
	reschedulePattern = regexp.MustCompile(`\b(remarcar|remarca|reagendar|reagenda|mudar|mude|alterar|altera|trocar|troca|transferir|adiar)\b`)
	cancelPattern     = regexp.MustCompile(`\b(cancelar|cancela|cancelamento|desmarcar|desmarca)\b`)
	schedulePattern   = regexp.MustCompile(`\b(agendar|agenda|agendamento|marcar|marca|reservar|reserva)\b`)

	slashDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	dayOfMonthPat    = regexp.MustCompile(`\bdia (\d{1,2})\b`)
	todayPattern     = regexp.MustCompile(`\bhoje\b`)
	tomorrowPattern  = regexp.MustCompile(`\bamanha\b`)

	colonTimePattern = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	hourTimePattern  = regexp.MustCompile(`\b(\d{1,2})h(\d{2})?\b`)

	personPattern = regexp.MustCompile(`(?i)\b(?:com|para)\s+(?:o\s+|a\s+)?([\p{L}]+(?:\s+[\p{L}]+)?)`)

	confirmPattern = regexp.MustCompile(`\b(sim|pode|confirmo|confirmar|confirmado|claro|ok|beleza|perfeito|isso|fechado|combinado|certeza)\b`)
	denyPattern    = regexp.MustCompile(`\b(nao|negativo|esquece|deixa)\b`)

	ordinalDigitPattern = regexp.MustCompile(`^(?:o |a |opcao |numero )?(\d{1,2})$`)

	servicePattern = regexp.MustCompile(`\b(consulta|avaliacao|retorno|sessao|exame|limpeza|corte|escova|massagem|manicure|manutencao)\b`)

	ordinalWords = map[string]int{
		"primeiro": 1, "primeira": 1,
		"segundo": 2, "segunda": 2,
		"terceiro": 3, "terceira": 3,
		"quarto": 4, "quarta": 4,
		"quinto": 5, "quinta": 5,
	}

	accentFolder = strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
		"é", "e", "ê", "e", "è", "e",
		"í", "i", "î", "i",
		"ó", "o", "ô", "o", "õ", "o", "ö", "o",
		"ú", "u", "û", "u", "ü", "u",
		"ç", "c",
	)

	personStopTokens = map[string]bool{
		"dia": true, "as": true, "a": true, "o": true, "no": true, "na": true,
		"de": true, "do": true, "da": true, "em": true, "e": true, "pra": true,
		"para": true, "com": true, "hoje": true, "amanha": true, "hora": true,
		"horas": true, "que": true, "um": true, "uma": true,
	}
)

// Extract runs every parser against the utterance. referenceDate anchors
// relative date phrasing and must already be in the tenant's time zone.
func Extract(text string, referenceDate time.Time) Signals {
	return Signals{
		Action:  DetectAction(text),
		Date:    ParseDateParts(text, referenceDate),
		Time:    ParseTime(text),
		Person:  FindPersonHint(text),
		Service: FindServiceHint(text),
		Confirm: IsConfirm(text),
		Deny:    IsDeny(text),
		Ordinal: ParseOrdinal(text),
	}
}

// DetectAction returns the first unambiguous scheduling verb. Reschedule and
// cancel verbs are checked before schedule ones so that "remarcar" and
// "desmarcar" never fall through to their "marcar" substring.
func DetectAction(text string) Action {
	folded := fold(text)
	switch {
	case reschedulePattern.MatchString(folded):
		return ActionReschedule
	case cancelPattern.MatchString(folded):
		return ActionCancel
	case schedulePattern.MatchString(folded):
		return ActionSchedule
	default:
		return ActionNone
	}
}

// ParseDateParts finds a calendar date in the utterance and returns it as
// YYYY-MM-DD. Supported forms, in precedence order: DD/MM[/YYYY], "dia N"
// relative to referenceDate, "hoje" and "amanhã". Bare numbers without a
// separator are left unparsed.
func ParseDateParts(text string, referenceDate time.Time) string {
	folded := fold(text)
	loc := referenceDate.Location()
	refDay := time.Date(referenceDate.Year(), referenceDate.Month(), referenceDate.Day(), 0, 0, 0, 0, loc)

	if m := slashDatePattern.FindStringSubmatch(folded); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if day < 1 || day > 31 || month < 1 || month > 12 {
			return ""
		}
		year := refDay.Year()
		explicitYear := false
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
			explicitYear = true
		}
		date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
		if !explicitYear && date.Before(refDay) {
			date = date.AddDate(1, 0, 0)
		}
		return date.Format("2006-01-02")
	}

	if m := dayOfMonthPat.FindStringSubmatch(folded); m != nil {
		day, _ := strconv.Atoi(m[1])
		if day < 1 || day > 31 {
			return ""
		}
		date := time.Date(refDay.Year(), refDay.Month(), day, 0, 0, 0, 0, loc)
		if day <= refDay.Day() {
			// Rolls forward to next month's occurrence.
			date = time.Date(refDay.Year(), refDay.Month()+1, day, 0, 0, 0, 0, loc)
		}
		return date.Format("2006-01-02")
	}

	if todayPattern.MatchString(folded) {
		return refDay.Format("2006-01-02")
	}
	if tomorrowPattern.MatchString(folded) {
		return refDay.AddDate(0, 0, 1).Format("2006-01-02")
	}

	return ""
}

// ParseTime finds a clock time and returns it zero-padded as HH:MM. Accepted
// forms: "H:MM", "Hh", "HhMM". A number without an explicit marker is not a
// time.
func ParseTime(text string) string {
	folded := fold(text)

	if m := colonTimePattern.FindStringSubmatch(folded); m != nil {
		if t := formatClock(m[1], m[2]); t != "" {
			return t
		}
	}
	if m := hourTimePattern.FindStringSubmatch(folded); m != nil {
		minutes := m[2]
		if minutes == "" {
			minutes = "00"
		}
		if t := formatClock(m[1], minutes); t != "" {
			return t
		}
	}
	return ""
}

func formatClock(hourStr, minuteStr string) string {
	hour, _ := strconv.Atoi(hourStr)
	minute, _ := strconv.Atoi(minuteStr)
	if hour > 23 || minute > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// FindPersonHint captures the name fragment after a "com/para" construction,
// preserving case. Trailing stop words and anything containing digits are
// trimmed off the capture.
func FindPersonHint(text string) string {
	m := personPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	tokens := strings.Fields(m[1])
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if personStopTokens[fold(tok)] || strings.ContainsAny(tok, "0123456789") {
			break
		}
		kept = append(kept, tok)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// FindServiceHint matches known service-indicative nouns.
func FindServiceHint(text string) string {
	m := servicePattern.FindStringSubmatch(fold(text))
	if m == nil {
		return ""
	}
	return m[1]
}

// IsConfirm reports an affirmative reply. Mutually exclusive with IsDeny;
// an utterance matching both keyword sets counts as neither.
func IsConfirm(text string) bool {
	folded := fold(text)
	return confirmPattern.MatchString(folded) && !denyPattern.MatchString(folded)
}

// IsDeny reports a negative reply.
func IsDeny(text string) bool {
	folded := fold(text)
	return denyPattern.MatchString(folded) && !confirmPattern.MatchString(folded)
}

// ParseOrdinal reads a standalone list pick ("2", "opção 2", "segundo").
// Returns 0 when the utterance is not an ordinal selection.
func ParseOrdinal(text string) int {
	folded := strings.TrimSpace(fold(text))
	folded = strings.TrimSuffix(folded, ".")
	if m := ordinalDigitPattern.FindStringSubmatch(folded); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	for word, n := range ordinalWords {
		if folded == word || folded == "o "+word || folded == "a "+word {
			return n
		}
	}
	return 0
}

func fold(text string) string {
	return accentFolder.Replace(strings.ToLower(strings.TrimSpace(text)))
}
