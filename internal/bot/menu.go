package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"omnix.dev/omnix-bot/internal/market"
)

// Callback data sent by the /menu keyboard.
const (
	callbackPortfolio = "portfolio"
	callbackBitcoin   = "bitcoin"
	callbackEthereum  = "ethereum"
	callbackSolana    = "solana"
	callbackPrices    = "prices"
	callbackHelpVoice = "help_voice"
)

const welcomeText = `🚀 ¡Bienvenido a OMNIX Bot!

🤖 Tu asistente crypto
🎯 IA Híbrida: Gemini + ChatGPT
💰 Portfolio virtual: $10,000 USD
🔊 Respuestas por VOZ automáticas

✅ Análisis de Bitcoin, Ethereum, Solana
✅ Consejos de trading
✅ Consultas generales

💬 Escribe cualquier pregunta
🎤 Envía mensajes de voz
📊 Usa /menu para opciones
💲 Usa /price btc para un precio
💼 Usa /portfolio para tu balance`

const helpVoiceText = `🎤 GUÍA MICRÓFONO TELEGRAM

📱 UBICACIÓN:
• Android: [📎] [___Texto___] [🎤] ← AQUÍ
• iPhone: [___Mensaje___] [🎤] ← AQUÍ

❌ ¿NO LO VES?
1. Borra cualquier texto del campo
2. El 🎤 aparece automáticamente
3. Actualiza Telegram si no aparece

📱 CÓMO USAR:
• Mantén presionado el 🎤
• Di tu pregunta sobre crypto
• Suelta cuando termines
• Recibes respuesta por texto + audio`

const unsupportedText = "Envía mensajes de texto o voz para recibir respuestas con audio automático."

func menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("💼 Mi Portfolio", callbackPortfolio)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("₿ Bitcoin", callbackBitcoin)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⟠ Ethereum", callbackEthereum)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◎ Solana", callbackSolana)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📊 Precios Crypto", callbackPrices)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🎤 Ayuda Micrófono", callbackHelpVoice)),
	)
}

type analysis struct {
	icon, trend, advice, note string
}

var analyses = map[string]analysis{
	"bitcoin":  {"₿", "Alcista", "HOLD/BUY", "Bitcoin sigue siendo el oro digital"},
	"ethereum": {"⟠", "Estable", "BUY", "Ethereum y DeFi sólidos"},
	"solana":   {"◎", "Positiva", "BUY", "Blockchain rápida y eficiente"},
	"cardano":  {"₳", "Lateral", "HOLD", "Desarrollo académico y constante"},
	"xrp":      {"◊", "Volátil", "HOLD", "Enfocado en pagos internacionales"},
}

func priceLine(q market.Quote) string {
	if !q.Available {
		return "no disponible en este momento"
	}
	return q.Display() + " USD"
}

func analysisText(q market.Quote) string {
	a, ok := analyses[q.Symbol]
	if !ok {
		return fmt.Sprintf("💰 %s: %s", strings.ToUpper(q.Symbol), priceLine(q))
	}
	return fmt.Sprintf("%s %s ANALYSIS\n\n💰 Precio: %s\n📈 Tendencia: %s\n🎯 Recomendación: %s\n💡 %s",
		a.icon, strings.ToUpper(q.Symbol), priceLine(q), a.trend, a.advice, a.note)
}

func pricesText(quotes []market.Quote) string {
	var b strings.Builder
	b.WriteString("📊 PRECIOS CRYPTO\n\n")
	for _, q := range quotes {
		icon := "•"
		if a, ok := analyses[q.Symbol]; ok {
			icon = a.icon
		}
		name := q.Symbol
		if asset, err := market.Lookup(q.Symbol); err == nil {
			name = asset.Name
		}
		fmt.Fprintf(&b, "%s %s: %s\n", icon, name, priceLine(q))
	}
	if len(quotes) > 0 && quotes[0].Source == market.SourceLive {
		b.WriteString("\n🔄 Precios en vivo")
	} else {
		b.WriteString("\n📌 Precios de referencia")
	}
	return b.String()
}
