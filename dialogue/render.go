package dialogue

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"inmobot/models"
)

/************************************************
/**** MARK: FIXED REPLIES ****/
/************************************************/
const (
	msgSearchPrompt = "🔍 *BÚSQUEDA DE PROPIEDADES*\n\n" +
		"Dime qué buscas, por ejemplo:\n" +
		"• piso en Valencia hasta 200000\n" +
		"• casa 3 habitaciones alquiler\n" +
		"• local comercial en el centro"
	msgNoResults        = "😔 No encontré propiedades que coincidan. Intenta con otros criterios o escribe \"menu\"."
	msgReferencePrompt  = "Escribe la referencia de la propiedad (por ejemplo REF-123)."
	msgSelectFirst      = "Primero elige una propiedad: busca con \"1\" y responde con su número, o escribe su referencia."
	msgNotFound         = "❌ Propiedad no encontrada. Verifica la referencia."
	msgNoLongerListed   = "❌ Esa propiedad ya no está disponible. Escribe \"menu\" para buscar otra."
	msgNothingToSelect  = "No tengo resultados para elegir. Escribe \"1\" para buscar propiedades."
	msgNamePrompt       = "Perfecto! 📅 ¿Cuál es tu nombre completo?"
	msgNameEmpty        = "Necesito tu nombre completo para agendar la visita."
	msgDateFormat       = "❌ Formato no válido. Escribe la fecha y hora así: DD/MM/AAAA HH:MM (por ejemplo 15/03/2026 10:30)."
	msgDatePast         = "❌ La fecha no puede ser en el pasado. Indica otra fecha y hora (DD/MM/AAAA HH:MM)."
	msgApology          = "Disculpa, tuve un problema. ¿Podrías reformular tu pregunta o escribir \"menu\"?"
	msgGenericError     = "❌ Hubo un error. Escribe \"menu\" para reintentar."
	msgMenuHint         = "Escribe \"menu\" para ver las opciones."
	maxClientNameLength = 120
)

func renderMenu(agency string, available int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "¡Hola! 👋 Bienvenido a %s\n\n", agency)
	if available > 0 {
		fmt.Fprintf(&b, "Tenemos %d propiedades disponibles.\n\n", available)
	}
	b.WriteString("🏠 *OPCIONES:*\n\n" +
		"1️⃣ Buscar propiedades\n" +
		"2️⃣ Ver propiedad por referencia\n" +
		"3️⃣ Agendar visita\n" +
		"4️⃣ Contacto y mis visitas\n\n" +
		"💬 O pregúntame directamente lo que buscas.")
	return b.String()
}

func renderList(ls []models.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Encontré %d %s:\n\n", len(ls), plural(len(ls), "propiedad", "propiedades"))
	for i, l := range ls {
		fmt.Fprintf(&b, "%d. *%s* - %s\n", i+1, l.Reference, kindLabel(l))
		fmt.Fprintf(&b, "   💰 %s", formatPrice(l.Price))
		if loc := location(l); loc != "" {
			fmt.Fprintf(&b, " | 📍 %s", loc)
		}
		b.WriteString("\n")
		if l.Bedrooms != nil {
			fmt.Fprintf(&b, "   🛏️ %d hab.", *l.Bedrooms)
			if l.Area != nil {
				fmt.Fprintf(&b, " | 📐 %sm²", formatNumber(*l.Area))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Responde con el número para ver el detalle.\n")
	b.WriteString("O escribe \"visita REF-XXX\" para agendar.")
	return b.String()
}

func renderDetail(l models.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏠 *%s - %s*\n\n", strings.ToUpper(kindLabel(l)), l.Reference)
	fmt.Fprintf(&b, "💰 *Precio:* %s\n", formatPrice(l.Price))
	if op := operationLabel(l.Operation); op != "" {
		fmt.Fprintf(&b, "🏷️ *Operación:* %s\n", op)
	}
	if loc := fullAddress(l); loc != "" {
		fmt.Fprintf(&b, "📍 *Ubicación:* %s\n", loc)
	}
	if l.Area != nil {
		fmt.Fprintf(&b, "📐 *Superficie:* %sm²\n", formatNumber(*l.Area))
	}
	if l.Bedrooms != nil {
		fmt.Fprintf(&b, "🛏️ *Habitaciones:* %d\n", *l.Bedrooms)
	}
	if l.Bathrooms != nil {
		fmt.Fprintf(&b, "🚿 *Baños:* %d\n", *l.Bathrooms)
	}
	if l.Garages > 0 {
		fmt.Fprintf(&b, "🚗 *Garajes:* %d\n", l.Garages)
	}
	if l.CommonExpenses > 0 {
		fmt.Fprintf(&b, "🧾 *Gastos comunes:* %s\n", formatPrice(l.CommonExpenses))
	}
	if d := strings.TrimSpace(l.Description); d != "" {
		fmt.Fprintf(&b, "\n📝 *Descripción:*\n%s\n", d)
	}
	if tags := l.Tags(); len(tags) > 0 {
		b.WriteString("\n✨ *Características:*\n")
		for _, t := range tags {
			fmt.Fprintf(&b, "• %s\n", t)
		}
	}
	if l.Agent != "" {
		fmt.Fprintf(&b, "\n👤 *Agente:* %s\n", l.Agent)
	}
	fmt.Fprintf(&b, "\n📞 Para agendar visita responde \"3\" o escribe: \"visita %s\"", l.Reference)
	return b.String()
}

func renderDatePrompt(name string) string {
	return fmt.Sprintf("Gracias %s! 📅\n\n"+
		"Indícame la fecha y hora preferida:\n"+
		"Formato: DD/MM/AAAA HH:MM\n"+
		"Ejemplo: 15/03/2026 10:30", name)
}

func renderConfirmation(id int64, ref, name string, when time.Time, l *models.Listing) string {
	var b strings.Builder
	b.WriteString("✅ *¡VISITA AGENDADA!*\n\n")
	fmt.Fprintf(&b, "🏠 Propiedad: %s\n", ref)
	fmt.Fprintf(&b, "👤 Cliente: %s\n", name)
	fmt.Fprintf(&b, "📅 Fecha: %s\n", when.Format("02/01/2006"))
	fmt.Fprintf(&b, "🕐 Hora: %s\n", when.Format("15:04"))
	if l != nil {
		if loc := fullAddress(*l); loc != "" {
			fmt.Fprintf(&b, "📍 %s\n", loc)
		}
	}
	fmt.Fprintf(&b, "\nNº de solicitud: %d. Un agente te confirmará la visita.\n", id)
	b.WriteString(msgMenuHint)
	return b.String()
}

func renderContact(contact string, upcoming []models.Visit, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("📞 *CONTACTO*\n\n")
	b.WriteString(contact)
	if len(upcoming) > 0 {
		b.WriteString("\n\n📅 *Tus próximas visitas:*\n")
		for _, v := range upcoming {
			fmt.Fprintf(&b, "• %s - %s (%s)\n", v.ListingReference, v.ScheduledAt.In(loc).Format("02/01/2006 15:04"), statusLabel(v.Status))
		}
	}
	b.WriteString("\n\n" + msgMenuHint)
	return b.String()
}

func renderOutOfRange(n, max int) string {
	return fmt.Sprintf("❌ No hay resultado %d. Elige un número entre 1 y %d, o escribe \"menu\".", n, max)
}

/************************************************
/**** MARK: FORMATTING ****/
/************************************************/

// formatPrice renders 150000 as "150.000 €"; zero means the price is on request.
func formatPrice(p float64) string {
	if p <= 0 {
		return "Consultar"
	}
	return formatNumber(p) + " €"
}

// formatNumber groups thousands with dots and keeps up to two decimals with a comma.
func formatNumber(v float64) string {
	whole := math.Trunc(v)
	cents := int64(math.Round((v - whole) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}
	digits := strconv.FormatInt(int64(whole), 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if cents > 0 {
		fmt.Fprintf(&b, ",%02d", cents)
	}
	return b.String()
}

func kindLabel(l models.Listing) string {
	if l.Kind == "" {
		return "Propiedad"
	}
	return l.Kind
}

func operationLabel(op string) string {
	switch op {
	case models.LISTING_OPERATION_SALE:
		return "Venta"
	case models.LISTING_OPERATION_RENT:
		return "Alquiler"
	case models.LISTING_OPERATION_BOTH:
		return "Venta / Alquiler"
	}
	return ""
}

func statusLabel(s string) string {
	switch s {
	case models.VISIT_STATUS_CONFIRMED:
		return "confirmada"
	case models.VISIT_STATUS_CANCELLED:
		return "cancelada"
	}
	return "pendiente"
}

func location(l models.Listing) string {
	return joinNonEmpty(", ", l.Zone, l.City)
}

func fullAddress(l models.Listing) string {
	return joinNonEmpty(", ", l.Address, l.Zone, l.City)
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
