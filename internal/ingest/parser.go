// Package ingest turns the quiz book text format into catalog quizzes.
//
// The format is line oriented:
//
//	## **第一部：初級編**
//	### **セット1：Title**
//	問題1
//	Question text
//	A. choice
//	B. choice
//	答え：B. choice
//	解説：explanation
//
// A line mentioning 引用文献 (the bibliography) ends the document.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"oshiquiz/internal/domain"
)

var (
	setHeader      = regexp.MustCompile(`^###\s*\*\*セット\d+[：:]\s*(.*?)\s*\*\*\s*$`)
	questionMarker = regexp.MustCompile(`^問題\d+\s*$`)
	choiceLine     = regexp.MustCompile(`^([A-D])\.\s*(.*)$`)
	answerLetter   = regexp.MustCompile(`([A-D])\.`)
	explanation    = regexp.MustCompile(`^解説\s*[：:]?\s*`)
)

var parts = []struct {
	marker     string
	difficulty domain.Difficulty
}{
	{"初級編", domain.DifficultyBeginner},
	{"中級編", domain.DifficultyIntermediate},
	{"上級編", domain.DifficultyMania},
}

type draftQuestion struct {
	text        []string
	choices     []string
	answer      string
	explanation string
}

type parser struct {
	difficulty domain.Difficulty
	quizzes    []domain.Quiz
	current    *domain.Quiz
	question   *draftQuestion
	dropped    int
}

// Result is the outcome of parsing a document.
type Result struct {
	Quizzes []domain.Quiz
	// Dropped counts questions without text or with fewer than two choices.
	Dropped int
}

// Parse reads a quiz book. Quizzes carry title, difficulty and ordered
// questions; tag and creator are left for the caller.
func Parse(r io.Reader) (Result, error) {
	p := &parser{difficulty: domain.DifficultyBeginner}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if !p.line(strings.TrimSpace(sc.Text())) {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return Result{}, fmt.Errorf("read quiz book: %w", err)
	}
	p.flushSet()
	return Result{Quizzes: p.quizzes, Dropped: p.dropped}, nil
}

// line consumes one trimmed line and reports whether parsing continues.
func (p *parser) line(line string) bool {
	switch {
	case strings.Contains(line, "引用文献"):
		return false
	case strings.HasPrefix(line, "## **第"):
		p.flushSet()
		for _, part := range parts {
			if strings.Contains(line, part.marker) {
				p.difficulty = part.difficulty
			}
		}
	case setHeader.MatchString(line):
		p.flushSet()
		title := setHeader.FindStringSubmatch(line)[1]
		p.current = &domain.Quiz{Title: title, Difficulty: p.difficulty, IsPublic: true}
	case questionMarker.MatchString(line):
		p.flushQuestion()
		p.question = &draftQuestion{}
	case p.question == nil || line == "":
	case choiceLine.MatchString(line):
		m := choiceLine.FindStringSubmatch(line)
		p.question.choices = append(p.question.choices, strings.TrimSpace(m[2]))
	case strings.HasPrefix(line, "答え"):
		if m := answerLetter.FindStringSubmatch(line); m != nil {
			p.question.answer = m[1]
		}
	case strings.HasPrefix(line, "解説"):
		p.question.explanation = strings.TrimSpace(explanation.ReplaceAllString(line, ""))
	case len(p.question.choices) == 0 && p.question.answer == "":
		p.question.text = append(p.question.text, line)
	}
	return true
}

func (p *parser) flushQuestion() {
	q := p.question
	p.question = nil
	if q == nil || p.current == nil {
		return
	}
	text := strings.Join(q.text, " ")
	if text == "" || len(q.choices) < 2 {
		p.dropped++
		return
	}

	question := domain.Question{
		Text:        text,
		Type:        domain.QuestionMultipleChoice,
		OrderIndex:  len(p.current.Questions) + 1,
		Explanation: q.explanation,
		Choices:     make([]domain.Choice, 0, len(q.choices)),
	}
	if len(q.choices) == 2 {
		question.Type = domain.QuestionTrueFalse
	}
	for i, c := range q.choices {
		question.Choices = append(question.Choices, domain.Choice{
			Text:       c,
			IsCorrect:  q.answer != "" && int(q.answer[0]-'A') == i,
			OrderIndex: i + 1,
		})
	}
	p.current.Questions = append(p.current.Questions, question)
}

func (p *parser) flushSet() {
	p.flushQuestion()
	if p.current != nil && len(p.current.Questions) > 0 {
		p.quizzes = append(p.quizzes, *p.current)
	}
	p.current = nil
}
