package knowledge

import "strings"

// DefaultCategory is used when no keyword matches.
const DefaultCategory = "geral"

// categoryKeywords is checked in order; the first category with a keyword
// contained in the lowercased text wins.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"saudação", []string{"olá", "oi", "bom dia", "boa tarde", "boa noite", "e aí", "como vai"}},
	{"informação_pessoal", []string{"seu nome", "quem é você", "você é", "sua idade", "onde você"}},
	{"tecnologia", []string{"computador", "programação", "software", "hardware", "código", "python", "java"}},
	{"cotidiano", []string{"tempo", "clima", "horário", "data", "dia", "mês", "ano"}},
	{"ciência", []string{"física", "química", "biologia", "matemática", "ciência", "científico"}},
	{"entretenimento", []string{"filme", "música", "jogo", "série", "arte", "livro", "tv"}},
	{"saúde", []string{"doença", "remédio", "médico", "saúde", "sintoma", "tratamento"}},
}

// Categorize assigns a category from the keyword table.
func Categorize(text string) string {
	lower := strings.ToLower(text)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.category
			}
		}
	}
	return DefaultCategory
}
