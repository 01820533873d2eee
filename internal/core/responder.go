package core

import (
	"fmt"

	"omnix.dev/omnix-bot/internal/utils"
)

// Category names the offline template chosen for a question.
type Category string

const (
	CategoryBitcoin   Category = "bitcoin"
	CategoryEthereum  Category = "ethereum"
	CategorySolana    Category = "solana"
	CategoryTrading   Category = "trading"
	CategoryPortfolio Category = "portfolio"
	CategoryGreeting  Category = "greeting"
	CategoryGeneric   Category = "generic"
)

type rule struct {
	category Category
	keywords map[string]struct{}
	template string // one %s: display name
}

func keywords(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// rules are checked top to bottom; the first rule with a keyword among the
// question's tokens wins.
var rules = []rule{
	{
		category: CategoryBitcoin,
		keywords: keywords("bitcoin", "btc", "xbt", "satoshi", "satoshis"),
		template: "¡Hola %s! Bitcoin está en $102,000 con tendencia alcista. Ethereum $2,650 y Solana $154. " +
			"Para inversión recomiendo diversificar: 40%% BTC, 30%% ETH, 20%% SOL. ¿Qué capital manejas?",
	},
	{
		category: CategoryEthereum,
		keywords: keywords("ethereum", "eth", "ether", "vitalik"),
		template: "%s, Ethereum cotiza cerca de $2,650 con tendencia estable. Su ecosistema DeFi y los contratos " +
			"inteligentes lo mantienen sólido. Es una buena pieza para el 30%% de un portfolio diversificado.",
	},
	{
		category: CategorySolana,
		keywords: keywords("solana", "sol"),
		template: "%s, Solana está alrededor de $154 con tendencia positiva. Es una blockchain rápida y de bajas " +
			"comisiones, aunque más volátil. Considera hasta un 20%% de tu portfolio crypto.",
	},
	{
		category: CategoryTrading,
		keywords: keywords("trading", "trade", "invertir", "inversión", "inversion", "comprar", "vender",
			"buy", "sell", "invest", "stop"),
		template: "Para trading exitoso %s: 1) Diversifica tu portfolio, 2) Usa stop-loss, 3) No inviertas más de " +
			"lo que puedes perder. Bitcoin $102K es buen punto de entrada a largo plazo.",
	},
	{
		category: CategoryPortfolio,
		keywords: keywords("portfolio", "portafolio", "cartera", "balance", "saldo"),
		template: "%s, tu portfolio virtual OMNIX empieza con $10,000 USD para practicar sin riesgo. Usa /portfolio " +
			"para ver tu balance y /menu para consultar precios.",
	},
	{
		category: CategoryGreeting,
		keywords: keywords("hola", "hi", "hello", "hey", "buenos", "buenas", "precio", "precios", "price",
			"prices", "mercado", "market", "cripto", "criptos", "crypto", "cryptos"),
		template: "¡Hola %s! Soy OMNIX, tu asistente crypto. Bitcoin $102K, Ethereum $2.6K, Solana $154. " +
			"¿Quieres análisis de mercado o consejos de inversión?",
	},
}

const genericTemplate = "Entiendo tu consulta %s. Como experto crypto, te comento que el mercado está positivo: " +
	"Bitcoin $102K, Ethereum $2.6K, Solana $154. Puedo ayudarte con Bitcoin, Ethereum, Solana, Cardano y XRP. " +
	"¿Te interesa análisis específico de alguna crypto?"

// Responder is the offline tier. It performs no I/O and always answers.
type Responder struct{}

// Category reports which template a question maps to.
func (Responder) Category(question string) Category {
	return match(question).category
}

func (Responder) Respond(question, displayName string) string {
	return fmt.Sprintf(match(question).template, displayNameOrDefault(displayName))
}

func match(question string) rule {
	tokens := utils.Tokens(question)
	for _, r := range rules {
		for _, tok := range tokens {
			if _, ok := r.keywords[tok]; ok {
				return r
			}
		}
	}
	return rule{category: CategoryGeneric, template: genericTemplate}
}
