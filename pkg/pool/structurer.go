package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/artem13815/cv-tailor/pkg/llm"
)

// ParsedCV — результат структурирования текста CV моделью: кандидаты в
// записи пула с уверенностями извлечения.
type ParsedCV struct {
	IsCV            bool               `json:"isCv"`
	RejectionReason string             `json:"rejectionReason"`
	Experiences     []ParsedExperience `json:"experiences"`
	Education       []ParsedEducation  `json:"education"`
	Projects        []ParsedProject    `json:"projects"`
	Activities      []ParsedActivity   `json:"activities"`
	Skills          []ParsedSkill      `json:"skills"`
}

type ParsedExperience struct {
	Company           string          `json:"company"`
	RoleTitle         string          `json:"roleTitle"`
	Location          string          `json:"location"`
	DateStart         string          `json:"dateStart"` // YYYY-MM-DD or ""
	DateEnd           string          `json:"dateEnd"`
	IsCurrent         bool            `json:"isCurrent"`
	CompanyConfidence float32         `json:"companyConfidence"`
	DatesConfidence   float32         `json:"datesConfidence"`
	Bullets           json.RawMessage `json:"bullets"`
	DomainTags        []string        `json:"domainTags"`
	SkillTags         []string        `json:"skillTags"`
}

type ParsedActivity struct {
	Organization           string          `json:"organization"`
	RoleTitle              string          `json:"roleTitle"`
	Location               string          `json:"location"`
	DateStart              string          `json:"dateStart"`
	DateEnd                string          `json:"dateEnd"`
	IsCurrent              bool            `json:"isCurrent"`
	OrganizationConfidence float32         `json:"organizationConfidence"`
	DatesConfidence        float32         `json:"datesConfidence"`
	Bullets                json.RawMessage `json:"bullets"`
	DomainTags             []string        `json:"domainTags"`
	SkillTags              []string        `json:"skillTags"`
}

type ParsedProject struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	DateStart   string          `json:"dateStart"`
	DateEnd     string          `json:"dateEnd"`
	Bullets     json.RawMessage `json:"bullets"`
	DomainTags  []string        `json:"domainTags"`
	SkillTags   []string        `json:"skillTags"`
}

type ParsedEducation struct {
	Institution           string   `json:"institution"`
	Degree                string   `json:"degree"`
	Grade                 string   `json:"grade"`
	Location              string   `json:"location"`
	DateStart             string   `json:"dateStart"`
	DateEnd               string   `json:"dateEnd"`
	Achievements          []string `json:"achievements"`
	Modules               []string `json:"modules"`
	InstitutionConfidence float32  `json:"institutionConfidence"`
}

type ParsedSkill struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Proficiency string `json:"proficiency"`
}

// Structurer извлекает структуру CV из сырого текста через LLM.
type Structurer struct {
	llm      llm.ChatModel
	maxChars int
}

func NewStructurer(model llm.ChatModel) *Structurer {
	return &Structurer{llm: model, maxChars: 16000}
}

const structureSystemPrompt = "You are a CV parsing assistant. Return STRICTLY one JSON object, no markdown, no code fences, no commentary. Empty lists must be [], never null. Confidence values are floats in [0,1] reflecting how certain the extraction is. Never invent facts."

func (s *Structurer) Structure(ctx context.Context, rawText string) (ParsedCV, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return ParsedCV{}, fmt.Errorf("empty CV text")
	}
	if len(text) > s.maxChars {
		text = text[:s.maxChars]
	}

	user := fmt.Sprintf(
		"CV text:\n<<<\n%s\n>>>\n\nReturn one JSON object with this exact schema:\n{\n  \"isCv\": bool,\n  \"rejectionReason\": string,\n  \"experiences\": [{\"company\":string,\"roleTitle\":string,\"location\":string,\"dateStart\":\"YYYY-MM-DD or empty\",\"dateEnd\":\"YYYY-MM-DD or empty\",\"isCurrent\":bool,\"companyConfidence\":float,\"datesConfidence\":float,\"bullets\":[string],\"domainTags\":[string],\"skillTags\":[string]}],\n  \"education\": [{\"institution\":string,\"degree\":string,\"grade\":string,\"location\":string,\"dateStart\":string,\"dateEnd\":string,\"achievements\":[string],\"modules\":[string],\"institutionConfidence\":float}],\n  \"projects\": [{\"name\":string,\"description\":string,\"url\":string,\"dateStart\":string,\"dateEnd\":string,\"bullets\":[string],\"domainTags\":[string],\"skillTags\":[string]}],\n  \"activities\": [{\"organization\":string,\"roleTitle\":string,\"location\":string,\"dateStart\":string,\"dateEnd\":string,\"isCurrent\":bool,\"organizationConfidence\":float,\"datesConfidence\":float,\"bullets\":[string],\"domainTags\":[string],\"skillTags\":[string]}],\n  \"skills\": [{\"name\":string,\"category\":\"technical|language|tool|soft|other|certification|framework|interest\",\"proficiency\":string}]\n}\n\nRules:\n- Work experience = paid employment; clubs, volunteering and societies go to activities.\n- If the text is not a CV/resume, set isCv=false and explain in rejectionReason.\n- No extra fields, no markdown.\n",
		text,
	)

	raw, err := s.llm.Ask(ctx, structureSystemPrompt, user)
	if err != nil {
		return ParsedCV{}, err
	}
	raw = strings.TrimSpace(raw)

	var parsed ParsedCV
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// попытка извлечь JSON из текста
		i := strings.Index(raw, "{")
		j := strings.LastIndex(raw, "}")
		if i < 0 || j <= i {
			return ParsedCV{}, fmt.Errorf("model returned no JSON object")
		}
		if err := json.Unmarshal([]byte(raw[i:j+1]), &parsed); err != nil {
			return ParsedCV{}, fmt.Errorf("parse model JSON: %w", err)
		}
	}
	return parsed, nil
}

// ParseDate разбирает дату из структурированного ответа; пустая строка и
// мусор дают nil, а не ошибку — даты в CV ненадёжны по определению.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
