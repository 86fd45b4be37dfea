package nlp

// portugueseStopwords is the NLTK Portuguese list. Entries are folded at init
// so lookups work on normalized text.
var portugueseStopwords = []string{
	"a", "à", "ao", "aos", "aquela", "aquelas", "aquele", "aqueles", "aquilo", "as", "às", "até",
	"com", "como", "da", "das", "de", "dela", "delas", "dele", "deles", "depois", "do", "dos",
	"e", "é", "ela", "elas", "ele", "eles", "em", "entre", "era", "eram", "éramos", "essa",
	"essas", "esse", "esses", "esta", "está", "estamos", "estão", "estar", "estas", "estava",
	"estavam", "estávamos", "este", "esteja", "estejam", "estejamos", "estes", "esteve", "estive",
	"estivemos", "estiver", "estivera", "estiveram", "estivéramos", "estiverem", "estivermos",
	"estivesse", "estivessem", "estivéssemos", "estou", "eu", "foi", "fomos", "for", "fora",
	"foram", "fôramos", "forem", "formos", "fosse", "fossem", "fôssemos", "fui", "há", "haja",
	"hajam", "hajamos", "hão", "havemos", "haver", "hei", "houve", "houvemos", "houver",
	"houvera", "houverá", "houveram", "houvéramos", "houverão", "houverei", "houverem",
	"houveremos", "houveria", "houveriam", "houveríamos", "houvermos", "houvesse", "houvessem",
	"houvéssemos", "isso", "isto", "já", "lhe", "lhes", "mais", "mas", "me", "mesmo", "meu",
	"meus", "minha", "minhas", "muito", "na", "não", "nas", "nem", "no", "nos", "nós", "nossa",
	"nossas", "nosso", "nossos", "num", "numa", "o", "os", "ou", "para", "pela", "pelas", "pelo",
	"pelos", "por", "qual", "quando", "que", "quem", "são", "se", "seja", "sejam", "sejamos",
	"sem", "ser", "será", "serão", "serei", "seremos", "seria", "seriam", "seríamos", "seu",
	"seus", "só", "somos", "sou", "sua", "suas", "também", "te", "tem", "tém", "temos", "tenha",
	"tenham", "tenhamos", "tenho", "terá", "terão", "terei", "teremos", "teria", "teriam",
	"teríamos", "teu", "teus", "teve", "tinha", "tinham", "tínhamos", "tive", "tivemos", "tiver",
	"tivera", "tiveram", "tivéramos", "tiverem", "tivermos", "tivesse", "tivessem", "tivéssemos",
	"tu", "tua", "tuas", "um", "uma", "você", "vocês", "vos",
}

var stopwordSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(portugueseStopwords)*2)
	for _, w := range portugueseStopwords {
		set[w] = struct{}{}
		set[FoldAccents(w)] = struct{}{}
	}
	return set
}()

// IsStopword reports whether the lowercased word is a Portuguese stopword,
// with or without accents.
func IsStopword(word string) bool {
	_, ok := stopwordSet[word]
	return ok
}

// Stopwords returns the folded stopword list.
func Stopwords() []string {
	out := make([]string, 0, len(portugueseStopwords))
	seen := map[string]struct{}{}
	for _, w := range portugueseStopwords {
		f := FoldAccents(w)
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
