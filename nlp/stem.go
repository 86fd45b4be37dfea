package nlp

import "strings"

// Stemmer reduces a token to its stem.
type Stemmer interface {
	Stem(token string) string
}

// StemmerFunc adapts a plain function to Stemmer.
type StemmerFunc func(string) string

func (f StemmerFunc) Stem(token string) string { return f(token) }

// Identity leaves tokens untouched. It stands in when no stemmer is wired.
var Identity Stemmer = StemmerFunc(func(s string) string { return s })

// StemAll stems every token with s, falling back to Identity when s is nil.
func StemAll(s Stemmer, tokens []string) []string {
	if s == nil {
		s = Identity
	}
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = s.Stem(t)
	}
	return out
}

type rslpRule struct {
	suffix      string
	minStem     int
	replacement string
	exceptions  []string
}

func (r rslpRule) apply(word string) (string, bool) {
	if !strings.HasSuffix(word, r.suffix) {
		return word, false
	}
	if len([]rune(word)) < len([]rune(r.suffix))+r.minStem {
		return word, false
	}
	for _, e := range r.exceptions {
		if word == e {
			return word, false
		}
	}
	return strings.TrimSuffix(word, r.suffix) + r.replacement, true
}

func applyStep(word string, rules []rslpRule) string {
	for _, r := range rules {
		if out, ok := r.apply(word); ok {
			return out
		}
	}
	return word
}

// RSLP is the Orengo/Huyck Portuguese suffix stripper. Rules are written
// without accents because tokens reach it already folded.
type RSLP struct{}

// Stem runs plural, feminine, augmentative, adverb, noun and verb reduction,
// then vowel removal when neither the noun nor verb step changed the word.
func (RSLP) Stem(token string) string {
	word := strings.ToLower(token)
	if word == "" {
		return word
	}
	if strings.HasSuffix(word, "s") {
		word = applyStep(word, pluralRules)
	}
	if strings.HasSuffix(word, "a") {
		word = applyStep(word, feminineRules)
	}
	word = applyStep(word, augmentativeRules)
	word = applyStep(word, adverbRules)
	before := word
	word = applyStep(word, nounRules)
	if word == before {
		word = applyStep(word, verbRules)
		if word == before {
			word = applyStep(word, vowelRules)
		}
	}
	return word
}

var pluralRules = []rslpRule{
	{"ns", 1, "m", nil},
	{"oes", 3, "ao", nil},
	{"aes", 1, "ao", []string{"maes"}},
	{"ais", 1, "al", []string{"cais", "mais"}},
	{"eis", 2, "el", nil},
	{"ois", 2, "ol", nil},
	{"is", 2, "il", []string{"lapis", "cais", "mais", "crucis", "biquinis", "pois", "depois", "dois", "leis"}},
	{"les", 3, "l", nil},
	{"res", 3, "r", []string{"arvores"}},
	{"s", 2, "", []string{"alias", "pires", "lapis", "cais", "mais", "mas", "menos", "ferias", "fezes",
		"pesames", "crucis", "gas", "atras", "moises", "atraves", "conves", "ves", "pais", "apos", "ambas",
		"ambos", "messias", "depois"}},
}

var feminineRules = []rslpRule{
	{"ona", 3, "ao", []string{"abandona", "lona", "iona", "cortisona", "monotona", "maratona", "acetona",
		"detona", "carona"}},
	{"ora", 3, "or", nil},
	{"na", 4, "no", []string{"carona", "abandona", "lona", "iona", "cortisona", "monotona", "maratona",
		"acetona", "detona", "guiana", "campana", "grana", "caravana", "banana", "paisana"}},
	{"inha", 3, "inho", []string{"rainha", "linha", "minha"}},
	{"esa", 3, "es", []string{"mesa", "obesa", "princesa", "turquesa", "ilesa", "pesa", "presa"}},
	{"osa", 3, "oso", []string{"mucosa", "prosa"}},
	{"iaca", 3, "iaco", nil},
	{"ica", 3, "ico", []string{"dica"}},
	{"ada", 2, "ado", []string{"pitada"}},
	{"ida", 3, "ido", []string{"vida", "duvida"}},
	{"ima", 3, "imo", []string{"vitima"}},
	{"iva", 3, "ivo", []string{"saliva", "oliva"}},
	{"eira", 3, "eiro", []string{"beira", "cadeira", "frigideira", "bandeira", "feira", "capoeira",
		"barreira", "fronteira", "besteira", "poeira"}},
}

var augmentativeRules = []rslpRule{
	{"dissimo", 5, "", nil},
	{"abilissimo", 5, "", nil},
	{"issimo", 3, "", nil},
	{"esimo", 3, "", nil},
	{"errimo", 4, "", nil},
	{"zinho", 2, "", nil},
	{"quinho", 4, "c", nil},
	{"uinho", 4, "", nil},
	{"adinho", 3, "", nil},
	{"inho", 3, "", []string{"caminho", "cominho"}},
	{"alhao", 4, "", nil},
	{"uca", 4, "", nil},
	{"aco", 4, "", []string{"antebraco"}},
	{"adao", 4, "", nil},
	{"idao", 4, "", nil},
	{"azio", 3, "", []string{"topazio"}},
	{"arraz", 4, "", nil},
	{"zarrao", 3, "", nil},
	{"arrao", 4, "", nil},
	{"zao", 2, "", []string{"coalizao"}},
	{"ao", 3, "", []string{"camarao", "chimarrao", "canelao", "barao", "cordao", "questao", "informacao",
		"classificacao", "sensacao", "razao", "feijao", "paixao", "nacao", "coracao", "cao", "mao", "ano",
		"irmao", "sertao", "botao", "balao", "limao", "portao", "leao", "pao", "chao", "verao", "patrao",
		"violao", "selecao", "relacao"}},
}

var adverbRules = []rslpRule{
	{"mente", 4, "", []string{"experimente"}},
}

var nounRules = []rslpRule{
	{"encialista", 4, "", nil},
	{"alista", 5, "", nil},
	{"agem", 3, "", []string{"coragem", "chantagem", "vantagem", "carruagem"}},
	{"iamento", 4, "", nil},
	{"amento", 3, "", []string{"firmamento", "fundamento", "departamento"}},
	{"imento", 3, "", nil},
	{"mento", 6, "", []string{"elemento", "complemento", "instrumento", "departamento"}},
	{"alizado", 4, "", nil},
	{"atizado", 4, "", nil},
	{"tizado", 4, "", []string{"alfabetizado"}},
	{"izado", 5, "", []string{"organizado", "pulverizado"}},
	{"ativo", 4, "", []string{"pejorativo", "relativo"}},
	{"tivo", 4, "", []string{"relativo"}},
	{"ivo", 4, "", []string{"passivo", "possessivo", "pejorativo", "positivo"}},
	{"ado", 2, "", []string{"grado"}},
	{"ido", 3, "", []string{"candido", "consolido", "rapido", "decido", "timido", "duvido", "marido"}},
	{"ador", 3, "", nil},
	{"edor", 3, "", nil},
	{"idor", 4, "", []string{"ouvidor"}},
	{"dor", 4, "", []string{"ouvidor"}},
	{"sor", 4, "", []string{"assessor"}},
	{"atoria", 5, "", nil},
	{"tor", 3, "", []string{"benfeitor", "leitor", "editor", "pastor", "produtor", "promotor", "consultor"}},
	{"ario", 3, "", []string{"voluntario", "salario", "aniversario", "diario", "lionario", "armario"}},
	{"abilidade", 5, "", nil},
	{"icionista", 4, "", nil},
	{"cionista", 5, "", nil},
	{"ionista", 5, "", nil},
	{"ionar", 5, "", nil},
	{"ional", 4, "", nil},
	{"encia", 3, "", nil},
	{"ancia", 4, "", []string{"ambulancia"}},
	{"edouro", 3, "", nil},
	{"queiro", 3, "c", nil},
	{"adeiro", 4, "", []string{"desfiladeiro"}},
	{"eiro", 3, "", []string{"desfiladeiro", "pioneiro", "mosteiro"}},
	{"uoso", 3, "", nil},
	{"oso", 3, "", []string{"precioso"}},
	{"alizac", 5, "", nil},
	{"atizac", 5, "", nil},
	{"tizac", 5, "", nil},
	{"izac", 5, "", []string{"organizac"}},
	{"ac", 3, "", []string{"equac", "relac"}},
	{"ic", 3, "", []string{"eleic"}},
	{"avel", 2, "", []string{"agradavel"}},
	{"ivel", 3, "", []string{"possivel"}},
	{"ista", 4, "", []string{"vista", "lista", "pista", "artista", "conquista"}},
	{"idade", 4, "", []string{"autoridade", "comunidade"}},
	{"dade", 2, "", nil},
	{"ante", 2, "", []string{"gigante", "elefante", "adiante", "possante", "instante", "restaurante"}},
	{"ismo", 3, "", []string{"cinismo"}},
	{"ico", 4, "", []string{"tico", "publico", "explico"}},
	{"ite", 3, "", nil},
	{"ez", 4, "", nil},
	{"eza", 3, "", nil},
	{"az", 4, "", []string{"tocantins", "rapaz"}},
	{"al", 4, "", []string{"afinal", "animal", "estrangeiral", "doral", "sinal"}},
	{"ia", 3, "", []string{"bacteria", "prolongaria"}},
	{"io", 3, "", nil},
	{"es", 4, "", nil},
}

var verbRules = []rslpRule{
	{"ariamo", 2, "", nil},
	{"assemo", 2, "", nil},
	{"eriamo", 2, "", nil},
	{"essemo", 2, "", nil},
	{"iriamo", 3, "", nil},
	{"issemo", 3, "", nil},
	{"aramo", 2, "", nil},
	{"arei", 2, "", nil},
	{"aremo", 2, "", nil},
	{"ariam", 2, "", nil},
	{"ariei", 2, "", nil},
	{"assei", 2, "", nil},
	{"assem", 2, "", nil},
	{"avamo", 2, "", nil},
	{"eramo", 3, "", nil},
	{"eremo", 3, "", nil},
	{"eriam", 3, "", nil},
	{"eriei", 3, "", nil},
	{"essei", 3, "", nil},
	{"essem", 3, "", nil},
	{"iramo", 3, "", nil},
	{"iremo", 3, "", nil},
	{"iriam", 3, "", nil},
	{"iriei", 3, "", nil},
	{"issei", 3, "", nil},
	{"issem", 3, "", nil},
	{"ando", 2, "", nil},
	{"endo", 3, "", nil},
	{"indo", 3, "", nil},
	{"ondo", 3, "", nil},
	{"aram", 2, "", nil},
	{"arao", 2, "", nil},
	{"arde", 2, "", nil},
	{"arem", 2, "", nil},
	{"aria", 2, "", nil},
	{"armo", 2, "", nil},
	{"asse", 2, "", nil},
	{"aste", 2, "", nil},
	{"avam", 2, "", []string{"agravam"}},
	{"avei", 2, "", nil},
	{"eram", 3, "", nil},
	{"erao", 3, "", nil},
	{"erde", 3, "", nil},
	{"erei", 3, "", nil},
	{"erem", 3, "", nil},
	{"eria", 3, "", nil},
	{"ermo", 3, "", nil},
	{"esse", 3, "", nil},
	{"este", 3, "", []string{"faroeste", "agreste"}},
	{"iamo", 3, "", nil},
	{"iram", 3, "", nil},
	{"irao", 2, "", nil},
	{"irde", 2, "", nil},
	{"irei", 3, "", []string{"admirei"}},
	{"irem", 3, "", []string{"adquirem"}},
	{"iria", 3, "", nil},
	{"irmo", 3, "", nil},
	{"isse", 3, "", nil},
	{"iste", 4, "", nil},
	{"iava", 4, "", []string{"ampliava"}},
	{"amo", 2, "", nil},
	{"iona", 3, "", nil},
	{"ara", 2, "", []string{"arara", "prepara"}},
	{"are", 2, "", []string{"prepare"}},
	{"ava", 2, "", []string{"agrava"}},
	{"emo", 2, "", nil},
	{"era", 3, "", []string{"acelera", "espera"}},
	{"ere", 3, "", []string{"espere"}},
	{"iam", 3, "", []string{"enfiam", "ampliam", "elogiam", "ensaiam"}},
	{"iei", 3, "", nil},
	{"imo", 3, "", []string{"reprimo", "intimo", "nimo", "queimo", "ximo"}},
	{"ira", 3, "", []string{"fronteira", "satira"}},
	{"tizar", 4, "", []string{"alfabetizar"}},
	{"izar", 5, "", []string{"organizar"}},
	{"itar", 5, "", []string{"acreditar", "explicitar", "estreitar"}},
	{"ire", 3, "", []string{"adquire"}},
	{"omos", 2, "", nil},
	{"ai", 2, "", nil},
	{"am", 2, "", nil},
	{"ear", 4, "", []string{"alardear", "nuclear"}},
	{"ar", 2, "", []string{"azar", "bazaar", "patamar"}},
	{"uei", 3, "", nil},
	{"uia", 5, "u", nil},
	{"ei", 3, "", nil},
	{"guem", 3, "g", nil},
	{"em", 2, "", []string{"alem", "virgem"}},
	{"er", 2, "", []string{"eter", "pier"}},
	{"eu", 3, "", []string{"chapeu"}},
	{"ia", 3, "", []string{"estoria", "fatia", "acia", "praia", "elogia", "mania", "labia", "aprecia",
		"policia", "arredia", "cheia", "asia"}},
	{"ir", 3, "", []string{"freir"}},
	{"iu", 3, "", nil},
	{"eou", 5, "", nil},
	{"ou", 3, "", nil},
	{"i", 3, "", nil},
}

var vowelRules = []rslpRule{
	{"bil", 2, "vel", nil},
	{"gue", 2, "g", []string{"gangue", "jegue"}},
	{"a", 3, "", []string{"asia"}},
	{"e", 3, "", []string{"bebe"}},
	{"o", 3, "", nil},
}
