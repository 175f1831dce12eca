package survey

import (
	"regexp"
	"strconv"
	"strings"

	"pollcore/internal/docx"
)

// Survey is the parsed instrument: an ordered question sequence plus header
// fields. Title, date and sample size are not extracted from the document;
// they stay placeholder constants until the instrument format carries them.
type Survey struct {
	Title     string
	Date      string
	N         string
	Questions []Question
}

const (
	placeholderTitle = "TITLE"
	placeholderDate  = "DATE"
	placeholderN     = "N"
)

var (
	dashRun       = regexp.MustCompile(" – ")
	screenOutside = regexp.MustCompile(`(?i)do you (plan|intend) to vote`)
)

// normalize folds typographic punctuation to ASCII and strips stray
// newlines so the classifier patterns see uniform text.
func normalize(text string) string {
	text = dashRun.ReplaceAllString(text, "-")
	text = strings.ReplaceAll(text, "’", "'")
	text = strings.ReplaceAll(text, "“", `"`)
	text = strings.ReplaceAll(text, "”", `"`)
	return strings.ReplaceAll(text, "\n", "")
}

// pending is a question being accumulated: classified at its level-0
// paragraph, finalized once its answer run ends so the arity promotion sees
// the full answer list.
type pending struct {
	text    string
	kind    Type
	index   string
	answers []string
}

// Parse runs the linear outline scan. Level-0 list items open a new
// question, level-1 items append answers to the open one, and a free-text
// paragraph matching the vote-intent screener becomes a standalone Screen
// question. A level-1 item with no open question is a ParseError.
func Parse(paragraphs []docx.Paragraph) (*Survey, error) {
	var (
		questions []Question
		open      *pending
	)
	finalize := func() error {
		if open == nil {
			return nil
		}
		q, err := New(open.text, open.kind, open.answers, open.index)
		if err != nil {
			return err
		}
		questions = append(questions, q)
		open = nil
		return nil
	}

	for _, para := range paragraphs {
		text := normalize(para.Text)
		switch {
		case para.Listed && para.Level == 0:
			if err := finalize(); err != nil {
				return nil, err
			}
			kind := ClassifyText(text)
			index := string(kind)
			if !singletonTypes[kind] {
				index = "Q" + strconv.Itoa(len(questions))
			}
			open = &pending{text: text, kind: kind, index: index, answers: []string{}}
		case para.Listed && para.Level == 1:
			if open == nil {
				return nil, ParseError{Paragraph: text, Reason: "answer without a preceding question"}
			}
			open.answers = append(open.answers, text)
		case !para.Listed && screenOutside.MatchString(text):
			if err := finalize(); err != nil {
				return nil, err
			}
			q, err := New(text, TypeScreen, []string{}, string(TypeScreen))
			if err != nil {
				return nil, err
			}
			questions = append(questions, q)
		}
	}
	if err := finalize(); err != nil {
		return nil, err
	}
	return &Survey{
		Title:     placeholderTitle,
		Date:      placeholderDate,
		N:         placeholderN,
		Questions: questions,
	}, nil
}

// FromDocx extracts the outline from a .docx payload and parses it.
func FromDocx(payload []byte) (*Survey, error) {
	paragraphs, err := docx.Extract(payload)
	if err != nil {
		return nil, err
	}
	return Parse(paragraphs)
}

// Match collects every pair of equal questions across two surveys. The
// relation is many-to-many: several questions sharing a (type, sub-type)
// pair all match each other, and callers must tolerate duplicates.
func (s *Survey) Match(other *Survey) [][2]Question {
	var pairs [][2]Question
	for _, q := range s.Questions {
		for _, oq := range other.Questions {
			if q.Equal(oq) {
				pairs = append(pairs, [2]Question{q, oq})
			}
		}
	}
	return pairs
}
