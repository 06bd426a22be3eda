package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Go", "go"},
		{"C++ / CI-CD", "c ci cd"},
		{"  REST   API  ", "rest api"},
		{"Node.js", "node js"},
		{"Анализ данных", "анализ данных"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("rest api rest")
	assert.Len(t, got, 2)
	assert.Contains(t, got, "rest")
	assert.Contains(t, got, "api")
	assert.Empty(t, Tokens(""))
}

func TestContainsPhrase(t *testing.T) {
	text := Normalize("Built a REST API gateway in Go")
	assert.True(t, ContainsPhrase(text, "rest api"))
	assert.True(t, ContainsPhrase(text, "go"))
	assert.False(t, ContainsPhrase(text, "gateway in rust"))
	// только целые слова
	assert.False(t, ContainsPhrase(Normalize("rest apis"), "rest api"))
	assert.False(t, ContainsPhrase(text, ""))
}

func TestSkillVariantsAliases(t *testing.T) {
	assert.ElementsMatch(t, []string{"golang", "go"}, SkillVariants("Golang"))
	assert.ElementsMatch(t, []string{"k8s", "kubernetes"}, SkillVariants("K8s"))
	assert.ElementsMatch(t, []string{"postgresql", "postgres"}, SkillVariants("PostgreSQL"))
	assert.Equal(t, []string{"excel"}, SkillVariants("Excel"))
	assert.Empty(t, SkillVariants("   "))
}
