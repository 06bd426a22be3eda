package tailor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/artem13815/cv-tailor/pkg/llm"
)

// ParsedJD — выжимка из описания вакансии: краткое резюме роли и термины,
// по которым поднимаются совпавшие навыки.
type ParsedJD struct {
	RoleSummary    string   `json:"roleSummary"`
	RequiredSkills []string `json:"requiredSkills"`
	Keywords       []string `json:"keywords"`
	Seniority      string   `json:"seniority"`
}

// JDParser извлекает структуру вакансии через LLM.
type JDParser struct {
	llm      llm.ChatModel
	maxChars int
}

func NewJDParser(model llm.ChatModel) *JDParser {
	return &JDParser{llm: model, maxChars: 12000}
}

const jdSystemPrompt = "You are a job description analyst. Return STRICTLY one JSON object, no markdown, no code fences, no commentary. Empty lists must be [], never null."

func (p *JDParser) Parse(ctx context.Context, jobDescription string) (ParsedJD, error) {
	text := strings.TrimSpace(jobDescription)
	if text == "" {
		return ParsedJD{}, fmt.Errorf("empty job description")
	}
	if len(text) > p.maxChars {
		text = text[:p.maxChars]
	}

	user := fmt.Sprintf(
		"Job description:\n<<<\n%s\n>>>\n\nReturn one JSON object with this exact schema:\n{\n  \"roleSummary\": string,\n  \"requiredSkills\": [string],\n  \"keywords\": [string],\n  \"seniority\": \"intern|junior|mid|senior|lead|unknown\"\n}\n\nRules:\n- requiredSkills are concrete tools, languages and methods the posting asks for.\n- keywords are the remaining domain terms worth matching against a candidate profile.\n- roleSummary is 1-2 sentences, no fluff.\n",
		text,
	)

	raw, err := p.llm.Ask(ctx, jdSystemPrompt, user)
	if err != nil {
		return ParsedJD{}, err
	}
	raw = strings.TrimSpace(raw)

	var parsed ParsedJD
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// попытка извлечь JSON из текста
		i := strings.Index(raw, "{")
		j := strings.LastIndex(raw, "}")
		if i < 0 || j <= i {
			return ParsedJD{}, fmt.Errorf("model returned no JSON object")
		}
		if err := json.Unmarshal([]byte(raw[i:j+1]), &parsed); err != nil {
			return ParsedJD{}, fmt.Errorf("parse model JSON: %w", err)
		}
	}
	return parsed, nil
}

// Terms — все термины вакансии одним списком для сопоставления навыков.
func (p ParsedJD) Terms() []string {
	out := make([]string, 0, len(p.RequiredSkills)+len(p.Keywords))
	out = append(out, p.RequiredSkills...)
	out = append(out, p.Keywords...)
	return out
}
