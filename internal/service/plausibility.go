package service

import (
	"strings"
)

// minPlausibleLength is the shortest trimmed text considered at all.
const minPlausibleLength = 3

// ingredientVocabulary holds folded (lowercase, unaccented) Portuguese
// ingredient names. Matching is by substring, so stems cover plurals.
var ingredientVocabulary = []string{
	// hortaliças e legumes
	"abobora", "abobrinha", "acelga", "agriao", "aipim", "aipo", "alcachofra", "alface", "alho", "alho-poro",
	"almeirao", "aspargo", "azeitona", "batata", "berinjela", "beterraba", "brocolis", "broto", "cebola",
	"cebolinha", "cenoura", "chuchu", "coentro", "couve", "couve-flor", "endivia", "erva-doce", "ervilha",
	"escarola", "espinafre", "gengibre", "inhame", "jilo", "mandioca", "mandioquinha", "maxixe", "milho",
	"mostarda", "nabo", "palmito", "pepino", "pimentao", "pimenta", "quiabo", "rabanete", "repolho",
	"rucula", "salsa", "salsinha", "salsao", "tomate", "vagem", "cogumelo", "champignon", "shimeji", "shitake",
	"macaxeira", "taioba", "ora-pro-nobis", "manjericao", "alecrim", "tomilho", "oregano", "hortela",
	"louro", "salvia", "cebolete", "cheiro-verde", "jambu",
	// frutas
	"abacate", "abacaxi", "acai", "acerola", "ameixa", "amora", "banana", "caju", "caqui", "carambola",
	"cereja", "coco", "damasco", "figo", "framboesa", "goiaba", "graviola", "groselha", "jabuticaba", "jaca",
	"kiwi", "laranja", "limao", "maca", "mamao", "manga", "maracuja", "melancia", "melao", "mexerica",
	"morango", "nectarina", "pessego", "pitanga", "pitaya", "tamara", "tangerina", "uva",
	"uva-passa", "cupuacu", "bacuri", "caja", "seriguela", "umbu", "mirtilo", "blueberry",
	// carnes, aves e peixes
	"carne", "bife", "alcatra", "acem", "contrafile", "costela", "cupim", "fraldinha", "file", "lagarto",
	"maminha", "musculo", "patinho", "picanha", "coxao", "cordeiro", "carneiro", "cabrito", "porco", "lombo",
	"pernil", "bisteca", "toucinho", "bacon", "linguica", "salsicha", "calabresa", "presunto", "salame",
	"mortadela", "peito de peru", "frango", "galinha", "coxa", "sobrecoxa", "asa de frango", "peru", "pato",
	"figado", "moela", "coracao", "bucho", "rabada", "charque", "carne seca", "carne moida", "hamburguer",
	"almondega", "peixe", "tilapia", "salmao", "atum", "sardinha", "bacalhau", "merluza", "pescada", "robalo",
	"tambaqui", "pirarucu", "truta", "camarao", "lula", "polvo", "mexilhao", "marisco", "siri", "caranguejo",
	"lagosta", "ostra", "kani",
	// ovos e laticínios
	"ovo", "gema", "clara de ovo", "leite", "creme de leite", "leite condensado", "manteiga", "margarina",
	"queijo", "mussarela", "muçarela", "parmesao", "requeijao", "ricota", "cottage", "catupiry", "provolone",
	"gorgonzola", "iogurte", "nata", "coalhada", "cream cheese", "chantilly",
	// grãos, massas e farinhas
	"arroz", "feijao", "lentilha", "grao-de-bico", "grao de bico", "soja", "quinoa", "aveia", "cevada",
	"trigo", "farinha", "fuba", "polvilho", "tapioca", "amido", "maisena", "macarrao", "espaguete",
	"talharim", "lasanha", "penne", "parafuso", "nhoque", "cuscuz", "pao", "torrada", "biscoito", "bolacha",
	"granola", "farofa", "canjica", "pipoca", "sagu", "semolina", "massa", "tortilha", "wrap",
	// oleaginosas e sementes
	"amendoim", "castanha", "nozes", "amendoa", "avela", "pistache", "gergelim", "linhaca", "chia",
	"girassol", "semente",
	// temperos, molhos e condimentos
	"sal", "acucar", "mel ", "melado", "rapadura", "vinagre", "azeite", "oleo", "shoyu", "molho", "ketchup",
	"maionese", "catchup", "extrato de tomate", "massa de tomate", "colorau", "paprica", "cominho",
	"curry", "acafrao", "noz-moscada", "canela", "cravo", "baunilha", "fermento", "bicarbonato", "caldo",
	"tempero", "chimichurri", "pesto", "tahine", "missô", "misso", "wasabi", "dende", "leite de coco",
	// doces e outros
	"chocolate", "cacau", "achocolatado", "doce de leite", "goiabada", "geleia", "gelatina", "coco ralado",
	"tofu", "cafe", "cha verde", "cha preto", "vinho", "cerveja", "suco", "agua de coco",
}

// IsIngredientList reports whether text plausibly names food: at least
// minPlausibleLength characters after trimming and at least one vocabulary
// entry, ignoring case and accents.
func IsIngredientList(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < minPlausibleLength {
		return false
	}
	// pad so entries with a trailing space also match at the end
	folded := foldKey(trimmed) + " "
	for _, word := range foldedVocabulary {
		if strings.Contains(folded, word) {
			return true
		}
	}
	return false
}

var foldedVocabulary = func() []string {
	out := make([]string, len(ingredientVocabulary))
	for i, w := range ingredientVocabulary {
		out[i] = foldKey(w)
		if strings.HasSuffix(w, " ") {
			out[i] += " "
		}
	}
	return out
}()
