package tailor

import "strings"

// Domain — архетип целевой роли, определяет веса разделов при отборе.
type Domain string

const (
	DomainTech              Domain = "tech"
	DomainConsultingFinance Domain = "consulting_or_finance"
	DomainOther             Domain = "other"
)

// Порядок проверки важен: tech-ключи смотрятся первыми, поэтому строка,
// задевшая оба набора ("Quantitative Trading Strategy Consultant"),
// классифицируется как tech.
var (
	techKeywords       = []string{"tech", "software", "engineer", "data", "quant", "trading", "fintech"}
	consultingKeywords = []string{"consult", "strategy", "advisory", "financ", "bank", "investment", "equity", "asset"}
)

// ClassifyDomain — чистая функция: подстрочное совпадение по нижнему
// регистру. Пустой или нераспознанный текст домена — это не ошибка
// (доменная строка свободная и ненадёжная), просто DomainOther.
func ClassifyDomain(domainText string) Domain {
	text := strings.ToLower(domainText)
	for _, kw := range techKeywords {
		if strings.Contains(text, kw) {
			return DomainTech
		}
	}
	for _, kw := range consultingKeywords {
		if strings.Contains(text, kw) {
			return DomainConsultingFinance
		}
	}
	return DomainOther
}
