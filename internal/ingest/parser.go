// Package ingest parses ENEM question dumps extracted from official exam
// PDFs and loads them into the question bank.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

// Official exam text is messy: numbering, alternative markers, and answer
// keys appear in several formats, so the patterns are deliberately loose.
var (
	questionNumberRe = regexp.MustCompile(`(?im)^\s*(?:QUEST[ÃA]O|Quest\.|Q\.?)?\s*(\d{1,3})\s*[\.\-\)]?`)
	alternativeRe    = regexp.MustCompile(`(?i)^[\(\[]?([A-E])[\)\]\.\-:\s]+(.+)$`)
	answerKeyRe      = regexp.MustCompile(`(?i)(?:Gabarito|GAB|Resposta|Correta)[\s:]*([A-E])`)
	skipSectionRe    = regexp.MustCompile(`(?i)^(INSTRUÇÕES|ATENÇÃO|RASCUNHO|FOLHA DE RESPOSTAS|PROVA DE|CADERNO DE)`)
	yearRe           = regexp.MustCompile(`20[0-2][0-9]`)

	controlRe    = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
	blankLinesRe = regexp.MustCompile(`\n\s*\n\s*\n+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// minBlockLen filters out numbered fragments that cannot be real questions.
const minBlockLen = 50

// Metadata carries per-file context applied to every parsed question.
type Metadata struct {
	Discipline string
	Year       int
}

// Parse extracts questions from PDF-extracted text. Blocks that do not
// yield a prompt plus exactly five alternatives are dropped.
func Parse(text string, meta Metadata) []model.Question {
	text = cleanText(text)

	var questions []model.Question
	for _, block := range splitBlocks(text) {
		q, ok := parseBlock(block)
		if !ok {
			continue
		}
		q.Discipline = meta.Discipline
		if q.Discipline == "" {
			q.Discipline = "geral"
		}
		q.Year = meta.Year
		q.Hash = contentHash(q.Prompt)
		questions = append(questions, q)
	}
	return questions
}

func cleanText(text string) string {
	text = controlRe.ReplaceAllString(text, "")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return text
}

// splitBlocks cuts the text at question-number lines. Each block runs from
// one number to the next; when no numbering is found the whole text is one
// block.
func splitBlocks(text string) []string {
	matches := questionNumberRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}

	var blocks []string
	for i, m := range matches {
		start := m[0]
		end := len(text)
		if i < len(matches)-1 {
			end = matches[i+1][0]
		}
		block := strings.TrimSpace(text[start:end])
		if len(block) >= minBlockLen {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func parseBlock(block string) (model.Question, bool) {
	var q model.Question
	if skipSectionRe.MatchString(block) {
		return q, false
	}

	var promptLines []string
	options := make(map[string]string)
	inAlternatives := false
	lastLetter := ""
	numberSeen := false
	correct := -1

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !numberSeen {
			if m := questionNumberRe.FindStringSubmatch(line); m != nil {
				if _, err := strconv.Atoi(m[1]); err == nil {
					numberSeen = true
					continue
				}
			}
		}

		if m := answerKeyRe.FindStringSubmatch(line); m != nil {
			correct = int(strings.ToUpper(m[1])[0] - 'A')
			continue
		}

		if m := alternativeRe.FindStringSubmatch(line); m != nil {
			letter := strings.ToUpper(m[1])
			options[letter] = strings.TrimSpace(m[2])
			lastLetter = letter
			inAlternatives = true
			continue
		}

		if inAlternatives && lastLetter != "" {
			// Continuation of the previous alternative.
			if len(options) >= model.OptionCount {
				continue
			}
			options[lastLetter] += " " + line
		} else {
			promptLines = append(promptLines, line)
		}
	}

	q.Prompt = strings.TrimSpace(strings.Join(promptLines, " "))
	if q.Prompt == "" || len(options) != model.OptionCount {
		return q, false
	}

	q.Options = make([]string, model.OptionCount)
	for i := 0; i < model.OptionCount; i++ {
		letter := string(rune('A' + i))
		q.Options[i] = whitespaceRe.ReplaceAllString(strings.TrimSpace(options[letter]), " ")
	}

	// Answer keys often live in a separate gabarito file; default to A
	// so the question is still usable and correctable later.
	if correct < 0 || correct >= model.OptionCount {
		correct = 0
	}
	q.Correct = correct
	return q, true
}

// contentHash keys dedup on the normalized prompt text.
func contentHash(prompt string) string {
	normalized := strings.ToLower(whitespaceRe.ReplaceAllString(prompt, " "))
	sum := sha256.Sum256([]byte(strings.TrimSpace(normalized)))
	return hex.EncodeToString(sum[:])
}

// YearFromFilename extracts an exam year (2009-2024) from a filename.
func YearFromFilename(filename string) int {
	for _, m := range yearRe.FindAllString(filename, -1) {
		year, _ := strconv.Atoi(m)
		if year >= 2009 && year <= 2024 {
			return year
		}
	}
	return 0
}

var disciplineKeywords = map[string][]string{
	"matematica": {"matematica", "algebra", "geometria", "calculo"},
	"fisica":     {"fisica", "energia", "movimento", "força"},
	"quimica":    {"quimica", "molecula", "reacao", "elemento"},
	"biologia":   {"biologia", "celula", "dna", "genetica", "organismo"},
	"historia":   {"historia", "século", "guerra", "revolucao"},
	"geografia":  {"geografia", "clima", "territorio", "populacao"},
	"portugues":  {"portugues", "texto", "interpretacao", "gramatica"},
	"literatura": {"literatura", "poema", "romance", "autor"},
}

// disciplineOrder keeps inference deterministic across runs.
var disciplineOrder = []string{
	"matematica", "fisica", "quimica", "biologia",
	"historia", "geografia", "portugues", "literatura",
}

// InferDiscipline guesses the discipline from the filename, then from the
// first 500 characters of text. Falls back to "geral".
func InferDiscipline(filename, text string) string {
	filename = strings.ToLower(filename)
	if len(text) > 500 {
		text = text[:500]
	}
	text = strings.ToLower(text)

	for _, source := range []string{filename, text} {
		for _, discipline := range disciplineOrder {
			for _, keyword := range disciplineKeywords[discipline] {
				if strings.Contains(source, keyword) {
					return discipline
				}
			}
		}
	}
	return "geral"
}
