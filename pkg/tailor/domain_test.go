package tailor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDomain(t *testing.T) {
	cases := []struct {
		name string
		text string
		want Domain
	}{
		{"software role", "Senior Software Engineer", DomainTech},
		{"data role", "Data Analyst at a retail company", DomainTech},
		{"fintech", "Backend developer, FinTech startup", DomainTech},
		{"consulting", "Management Consulting Associate", DomainConsultingFinance},
		{"strategy", "Corporate Strategy Manager", DomainConsultingFinance},
		{"banking", "Investment Banking Analyst", DomainConsultingFinance},
		{"finance suffix", "Head of Financial Planning", DomainConsultingFinance},
		{"both sets hit, tech wins", "Quantitative Trading Strategy Consultant", DomainTech},
		{"case insensitive", "SOFTWARE ENGINEER", DomainTech},
		{"unrelated", "Kindergarten teacher", DomainOther},
		{"empty", "", DomainOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyDomain(tc.text))
		})
	}
}
