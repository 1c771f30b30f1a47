package search

import (
	"strconv"
	"strings"
	"unicode"

	"inmobot/models"
	"inmobot/store"
)

// kindSynonyms maps words people type to the kind values the catalog uses.
var kindSynonyms = map[string][]string{
	"apartment":    {"apartment", "apartamento", "piso", "departamento"},
	"apartments":   {"apartment", "apartamento", "piso", "departamento"},
	"apartamento":  {"apartment", "apartamento", "piso", "departamento"},
	"apartamentos": {"apartment", "apartamento", "piso", "departamento"},
	"apto":         {"apartment", "apartamento", "piso", "departamento"},
	"piso":         {"apartment", "apartamento", "piso", "departamento"},
	"pisos":        {"apartment", "apartamento", "piso", "departamento"},
	"flat":         {"apartment", "apartamento", "piso", "departamento"},
	"house":        {"house", "casa", "chalet"},
	"houses":       {"house", "casa", "chalet"},
	"casa":         {"house", "casa", "chalet"},
	"casas":        {"house", "casa", "chalet"},
	"chalet":       {"house", "casa", "chalet"},
	"local":        {"commercial", "local", "local comercial"},
	"locales":      {"commercial", "local", "local comercial"},
	"commercial":   {"commercial", "local", "local comercial"},
	"oficina":      {"office", "oficina"},
	"office":       {"office", "oficina"},
	"terreno":      {"land", "terreno", "solar"},
	"terrenos":     {"land", "terreno", "solar"},
	"land":         {"land", "terreno", "solar"},
}

var operationWords = map[string]string{
	"venta":    models.LISTING_OPERATION_SALE,
	"vender":   models.LISTING_OPERATION_SALE,
	"comprar":  models.LISTING_OPERATION_SALE,
	"compra":   models.LISTING_OPERATION_SALE,
	"sale":     models.LISTING_OPERATION_SALE,
	"buy":      models.LISTING_OPERATION_SALE,
	"alquiler": models.LISTING_OPERATION_RENT,
	"alquilar": models.LISTING_OPERATION_RENT,
	"renta":    models.LISTING_OPERATION_RENT,
	"rent":     models.LISTING_OPERATION_RENT,
	"rental":   models.LISTING_OPERATION_RENT,
}

var maxPriceWords = map[string]bool{"hasta": true, "max": true, "maximo": true, "máximo": true, "under": true, "menos": true, "below": true}
var minPriceWords = map[string]bool{"desde": true, "min": true, "minimo": true, "mínimo": true, "over": true, "from": true, "mas": true, "más": true}
var cityWords = map[string]bool{"en": true, "in": true, "city": true, "ciudad": true}
var bedroomWords = map[string]bool{
	"habitacion": true, "habitación": true, "habitaciones": true, "hab": true,
	"dormitorio": true, "dormitorios": true, "dorm": true,
	"bedroom": true, "bedrooms": true, "rooms": true, "room": true,
}

var stopwords = map[string]bool{
	"a": true, "al": true, "de": true, "del": true, "la": true, "el": true, "los": true, "las": true,
	"un": true, "una": true, "y": true, "o": true, "con": true, "para": true, "por": true, "que": true,
	"busco": true, "quiero": true, "necesito": true, "me": true, "interesa": true, "hay": true,
	"the": true, "an": true, "of": true, "with": true, "for": true, "and": true, "or": true, "i": true,
	"want": true, "looking": true, "need": true, "euros": true, "eur": true, "€": true,
	"usd": true, "u$s": true, "dolares": true, "dólares": true, "precio": true, "price": true,
}

// ParseQuery lifts recognisable hints out of free text into a structured filter and
// keeps the remaining meaningful tokens as keywords.
func ParseQuery(text string) store.Filter {
	var f store.Filter
	tokens := tokenize(text)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		next := ""
		if i+1 < len(tokens) {
			next = tokens[i+1]
		}

		if kinds, ok := kindSynonyms[tok]; ok {
			f.Kinds = kinds
			continue
		}
		if op, ok := operationWords[tok]; ok {
			f.Operation = op
			continue
		}
		if maxPriceWords[tok] {
			if n, ok := parseAmount(next); ok {
				f.PriceMax = n
				i++
			}
			continue
		}
		if minPriceWords[tok] {
			if n, ok := parseAmount(next); ok {
				f.PriceMin = n
				i++
			}
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil && bedroomWords[next] {
			f.MinBedrooms = n
			i++
			continue
		}
		if cityWords[tok] {
			if next != "" && !stopwords[next] && kindSynonyms[next] == nil && operationWords[next] == "" && !isNumber(next) {
				f.City = next
				i++
			}
			continue
		}
		if bedroomWords[tok] || stopwords[tok] || isNumber(tok) || len([]rune(tok)) < 2 {
			continue
		}
		f.Keywords = append(f.Keywords, tok)
	}
	return f
}

// IsEmpty reports whether the filter carries no constraint at all.
func IsEmpty(f store.Filter) bool {
	return len(f.Kinds) == 0 && f.Operation == "" && f.PriceMin == 0 && f.PriceMax == 0 &&
		f.MinBedrooms == 0 && f.City == "" && len(f.Keywords) == 0
}

func tokenize(text string) []string {
	text = strings.ToLower(strings.TrimSpace(text))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(";:!?¿¡()\"'", r)
	})
	out := fields[:0]
	for _, f := range fields {
		// vírgula/ponto só contam dentro de números (1,5k / 300.000)
		if f = strings.Trim(f, ",."); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseAmount reads prices like 300000, 300.000, 250k or 1,5m.
func parseAmount(tok string) (float64, bool) {
	tok = strings.Trim(tok, "€$.")
	if tok == "" {
		return 0, false
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(tok, "k"):
		mult, tok = 1000, strings.TrimSuffix(tok, "k")
	case strings.HasSuffix(tok, "m"):
		mult, tok = 1000000, strings.TrimSuffix(tok, "m")
	}
	if mult == 1 {
		// separadores de milhar: 300.000 / 300,000
		tok = strings.NewReplacer(".", "", ",", "").Replace(tok)
	} else {
		tok = strings.Replace(tok, ",", ".", 1)
	}
	n, err := strconv.ParseFloat(tok, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n * mult, true
}

func isNumber(tok string) bool {
	_, err := strconv.Atoi(tok)
	return err == nil
}
