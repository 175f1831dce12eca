// Package survey turns an instrument outline into a typed question sequence
// and projects it into the export shapes the polling workflow consumes.
package survey

import (
	"fmt"
	"regexp"
	"strings"
)

// Type is the closed question taxonomy. The two Head to Head types are never
// assigned by the classifier; they are arity promotions of the ballot types.
type Type string

const (
	TypeScreen             Type = "Screen"
	TypeSecondChoice       Type = "2nd Choice"
	TypeImage              Type = "Image"
	TypeVoteMethod         Type = "Vote Method"
	TypeInformedBallot     Type = "Informed Ballot"
	TypeBallot             Type = "Ballot"
	TypeSRH                Type = "SRH"
	TypeSRHMethod          Type = "SRH Method"
	TypeSRHImpact          Type = "SRH Impact"
	TypeJobApproval        Type = "Job Approval"
	TypeParty              Type = "Party"
	TypeAge                Type = "Age"
	TypeIdeology           Type = "Ideology"
	TypeGender             Type = "Gender"
	TypeEducation          Type = "Education"
	TypeRace               Type = "Race"
	TypeABTest             Type = "AB Test"
	TypeMessage            Type = "Message"
	TypeGeneric            Type = "Generic"
	TypeHeadToHead         Type = "Head to Head"
	TypeInformedHeadToHead Type = "Informed Head to Head"
)

// classifierTable maps question text to a Type. Order is the tie-break rule:
// the first matching pattern wins, so narrower patterns must precede the
// broader ones they overlap (2nd Choice before Ballot, Informed Ballot
// before Ballot).
var classifierTable = []struct {
	pattern *regexp.Regexp
	kind    Type
}{
	{regexp.MustCompile(`(?i)(^do you (plan|intend) to vote)|(\. do you (plan|intend) to vote)`), TypeScreen},
	{regexp.MustCompile(`(?i)who would you vote for your (second|2nd) choice`), TypeSecondChoice},
	{regexp.MustCompile(`(?i)what is your opinion of`), TypeImage},
	{regexp.MustCompile(`(?i)how do you (plan|intend) to vote`), TypeVoteMethod},
	{regexp.MustCompile(`(?i)knowing what you know now`), TypeInformedBallot},
	{regexp.MustCompile(`(?i)who would you vote for`), TypeBallot},
	{regexp.MustCompile(`(?i)have you recently seen, read(|,) or heard`), TypeSRH},
	{regexp.MustCompile(`(?i)see, read(|,) or hear`), TypeSRHMethod},
	{regexp.MustCompile(`(?i)if you have recently seen, read(|,) or heard`), TypeSRHImpact},
	{regexp.MustCompile(`(?i)is doing (his|her) job`), TypeJobApproval},
	{regexp.MustCompile(`(?i)(which|what) party do you most align with`), TypeParty},
	{regexp.MustCompile(`(?i)what is your age`), TypeAge},
	{regexp.MustCompile(`(?i)(what|which) ideology is most in line with your views`), TypeIdeology},
	{regexp.MustCompile(`(?i)are you male or female`), TypeGender},
	{regexp.MustCompile(`(?i)what is the highest level of education you have (completed|attained) so far`), TypeEducation},
	{regexp.MustCompile(`(?i)what is your race`), TypeRace},
	{regexp.MustCompile(`(?i)which of the following candidates would you be more likely to vote for`), TypeABTest},
	{regexp.MustCompile(`(?i)does knowing this`), TypeMessage},
}

// ClassifyText returns the question type for a level-0 outline paragraph.
// Text that matches no pattern is Generic.
func ClassifyText(text string) Type {
	for _, row := range classifierTable {
		if row.pattern.MatchString(text) {
			return row.kind
		}
	}
	return TypeGeneric
}

// singletonTypes get their type name as the question index; everything else
// is numbered.
var singletonTypes = map[Type]bool{
	TypeScreen:    true,
	TypeIdeology:  true,
	TypeGender:    true,
	TypeEducation: true,
	TypeAge:       true,
	TypeParty:     true,
	TypeRace:      true,
}

// ParseError reports a paragraph the survey parser could not make sense of,
// with the classification it was attempting when it failed.
type ParseError struct {
	Paragraph string
	Kind      Type
	Reason    string
}

func (e ParseError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("parse %s question %q: %s", e.Kind, e.Paragraph, e.Reason)
	}
	return fmt.Sprintf("parse %q: %s", e.Paragraph, e.Reason)
}

var (
	ballotSubject = regexp.MustCompile(`(?i)^if the (.+) were held today`)
	imageSubject  = regexp.MustCompile(`(?i)what is your opinion of (.+?)\??$`)
	abCandidate   = regexp.MustCompile(`(?i)^candidate [ab][.:]?\s*(.+)$`)
)

// Question is one classified instrument question. SubType disambiguates the
// types whose semantics depend on a subject (which contest, which candidate
// pair); it is empty for everything else.
type Question struct {
	Text    string   `json:"question"`
	Type    Type     `json:"question_type"`
	SubType string   `json:"sub_type,omitempty"`
	Answers []string `json:"answers"`
	Index   string   `json:"index"`
}

// New builds a question from its classified text and collected answers. A
// Ballot or Informed Ballot with exactly three answers is promoted to its
// Head to Head variant. Sub-type extraction failures return a ParseError
// rather than a half-built question.
func New(text string, kind Type, answers []string, index string) (Question, error) {
	if kind == TypeBallot && len(answers) == 3 {
		kind = TypeHeadToHead
	} else if kind == TypeInformedBallot && len(answers) == 3 {
		kind = TypeInformedHeadToHead
	}
	q := Question{Text: text, Type: kind, Answers: answers, Index: index}
	sub, err := extractSubType(q)
	if err != nil {
		return Question{}, err
	}
	q.SubType = sub
	return q, nil
}

func extractSubType(q Question) (string, error) {
	switch q.Type {
	case TypeBallot, TypeHeadToHead:
		m := ballotSubject.FindStringSubmatch(q.Text)
		if m == nil {
			return "", ParseError{Paragraph: q.Text, Kind: q.Type, Reason: "cannot extract contest name"}
		}
		// "the election for Governor" and "the Governor election" both
		// name the Governor contest.
		return strings.TrimPrefix(m[1], "election for "), nil
	case TypeImage:
		m := imageSubject.FindStringSubmatch(q.Text)
		if m == nil {
			return "", ParseError{Paragraph: q.Text, Kind: q.Type, Reason: "cannot extract subject name"}
		}
		return m[1], nil
	case TypeABTest:
		if len(q.Answers) < 2 {
			return "", ParseError{Paragraph: q.Text, Kind: q.Type, Reason: "need two candidate descriptions"}
		}
		a := abCandidate.FindStringSubmatch(q.Answers[0])
		b := abCandidate.FindStringSubmatch(q.Answers[1])
		if a == nil || b == nil {
			return "", ParseError{Paragraph: q.Text, Kind: q.Type, Reason: "answers are not candidate descriptions"}
		}
		return a[1] + " vs " + b[1], nil
	default:
		return "", nil
	}
}

var nonWord = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func textKey(s string) string {
	return nonWord.ReplaceAllString(strings.ToLower(s), "")
}

// Equal reports whether two questions are the same question for matching
// purposes: identical text up to case and punctuation, or an identical
// (type, sub-type) pair.
func (q Question) Equal(other Question) bool {
	if textKey(q.Text) == textKey(other.Text) {
		return true
	}
	return q.Type == other.Type && q.SubType == other.SubType
}
