package services

import (
	"regexp"
)

// Reason codes produced by the comment scanner. The first group blocks the
// submission outright, the second is kept visible to moderators only.
const (
	ReasonEmail          = "email"
	ReasonPhone          = "phone"
	ReasonSocialHandle   = "social_handle"
	ReasonUnitIdentifier = "unit_identifier"
	ReasonCrimeAccusal   = "serious_crime_accusation"
	ReasonNIF            = "nif"
	ReasonCitizenCard    = "citizen_card"
	ReasonIBAN           = "iban"

	ReasonHarassment       = "harassment"
	ReasonURL              = "url"
	ReasonPossibleFullName = "possible_full_name"
)

// ScanResult is what a scan of a free-text comment yields. Reasons keeps the
// evaluation order and never repeats a code.
type ScanResult struct {
	Flagged bool
	Reasons []string
	Blocked bool
}

// CommentScanner classifies review comments. A single method so alternative
// detectors can be swapped in without touching the review pipeline.
type CommentScanner interface {
	Scan(text string) ScanResult
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// Any run of 8+ digits with optional separators, plus the Portuguese
	// mobile shape (9x xxx xxx, optionally prefixed with +351).
	phonePattern   = regexp.MustCompile(`(\+?\d{1,3}[\s.-]?)?(\d[\s.-]?){8,}`)
	ptPhonePattern = regexp.MustCompile(`(\+?351[\s.-]?)?\b9\d[\s.-]?\d{3}[\s.-]?\d{3}\b`)

	// @handle not glued to a word (so emails don't double-report).
	handlePattern = regexp.MustCompile(`(^|[^0-9A-Za-z_])@[A-Za-z0-9_.]{2,}`)

	// Unit/apartment/floor markers in English and Portuguese.
	unitPattern = regexp.MustCompile(`(?i)\b(apt|apartment|unit|door|floor|andar|fra[cç][aã]o|esq|dir)\b|\d+º|\d+[A-Za-z]\b`)

	crimePattern = regexp.MustCompile(`(?i)\b(murder(er|ed)?|rap(e|ist|ed)|p[ae]dophile|ped[oó]filo|drug dealer|traficante|assassin[oa]?|homic[ií]dio|violador|viola[cç][aã]o|agress[aã]o sexual|sexual (assault|abuse))\b`)

	harassmentPattern = regexp.MustCompile(`(?i)\b(idiot|idiota|stupid|est[uú]pid[oa]|moron|imbecil|asshole|scum|cretin[oa]?|burro|nojent[oa]|vadia|loser)\b`)

	// Portuguese NIF: nine digits, first 1-9.
	nifPattern = regexp.MustCompile(`\b[1-9]\d{8}\b`)

	// Cartão de Cidadão: 8 digits + check digit + 2 letters + 1 digit.
	citizenCardPattern = regexp.MustCompile(`(?i)\b\d{8}\s*\d\s*[A-Z]{2}\d\b`)

	ibanPattern = regexp.MustCompile(`\b[A-Z]{2}\d{2}\s?\d{4}\s?\d{4}\s?\d{4}\s?\d{4}\s?\d{0,4}\b`)

	urlPattern = regexp.MustCompile(`(?i)https?://[^\s<>"']+|www\.[^\s<>"']+`)

	// Three or more capitalized words in a row. High false-positive rate, so
	// flag-only.
	fullNamePattern = regexp.MustCompile(`[A-ZÀ-Ü][a-zà-ü]{2,}(\s+[A-ZÀ-Ü][a-zà-ü]{2,}){2,}`)
)

var blockingReasons = map[string]bool{
	ReasonEmail:          true,
	ReasonPhone:          true,
	ReasonSocialHandle:   true,
	ReasonUnitIdentifier: true,
	ReasonCrimeAccusal:   true,
	ReasonNIF:            true,
	ReasonCitizenCard:    true,
	ReasonIBAN:           true,
}

var blockingHintText = map[string]string{
	ReasonEmail:          "email addresses",
	ReasonPhone:          "phone numbers",
	ReasonSocialHandle:   "social media handles",
	ReasonUnitIdentifier: "unit or floor identifiers",
	ReasonCrimeAccusal:   "accusations of serious crimes",
	ReasonNIF:            "tax identification numbers (NIF)",
	ReasonCitizenCard:    "citizen card numbers",
	ReasonIBAN:           "bank account numbers (IBAN)",
}

func blockingHints(reasons []string) []string {
	hints := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if h, ok := blockingHintText[r]; ok {
			hints = append(hints, h)
		} else {
			hints = append(hints, r)
		}
	}
	return hints
}

// KeywordScanner is the fixed regex/keyword classifier. Every rule is
// evaluated independently against the whole text.
type KeywordScanner struct{}

func NewKeywordScanner() *KeywordScanner {
	return &KeywordScanner{}
}

func (s *KeywordScanner) Scan(text string) ScanResult {
	if text == "" {
		return ScanResult{Reasons: []string{}}
	}

	reasons := make([]string, 0, 4)
	add := func(reason string) {
		for _, r := range reasons {
			if r == reason {
				return
			}
		}
		reasons = append(reasons, reason)
	}

	if emailPattern.MatchString(text) {
		add(ReasonEmail)
	}
	if phonePattern.MatchString(text) || ptPhonePattern.MatchString(text) {
		add(ReasonPhone)
	}
	if handlePattern.MatchString(text) {
		add(ReasonSocialHandle)
	}
	if unitPattern.MatchString(text) {
		add(ReasonUnitIdentifier)
	}
	if crimePattern.MatchString(text) {
		add(ReasonCrimeAccusal)
	}
	if harassmentPattern.MatchString(text) {
		add(ReasonHarassment)
	}
	if nifPattern.MatchString(text) {
		add(ReasonNIF)
	}
	if citizenCardPattern.MatchString(text) {
		add(ReasonCitizenCard)
	}
	if ibanPattern.MatchString(text) {
		add(ReasonIBAN)
	}
	if urlPattern.MatchString(text) {
		add(ReasonURL)
	}
	if fullNamePattern.MatchString(text) {
		add(ReasonPossibleFullName)
	}

	blocked := false
	for _, r := range reasons {
		if blockingReasons[r] {
			blocked = true
			break
		}
	}

	return ScanResult{
		Flagged: len(reasons) > 0,
		Reasons: reasons,
		Blocked: blocked,
	}
}

// BlockedOnly filters a result's reasons down to the blocking codes, for use
// in user-facing errors.
func (r ScanResult) BlockedOnly() []string {
	out := make([]string, 0, len(r.Reasons))
	for _, reason := range r.Reasons {
		if blockingReasons[reason] {
			out = append(out, reason)
		}
	}
	return out
}
