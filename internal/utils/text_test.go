package utils

import (
	"reflect"
	"strings"
	"testing"
)

func TestTruncateIsRuneSafe(t *testing.T) {
	if got := Truncate("¿Cuál?", 3); got != "¿Cu" {
		t.Errorf("expected %q, got %q", "¿Cu", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("expected untouched string, got %q", got)
	}
	if got := Truncate("anything", 0); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestCleanForSpeechStripsMarkup(t *testing.T) {
	in := "**BITCOIN**\n\n_Precio_: `102000`   USD"
	want := "BITCOIN Precio: 102000 USD"
	if got := CleanForSpeech(in, 200); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCleanForSpeechKeepsThreeSentences(t *testing.T) {
	in := strings.Repeat("Una frase corta de prueba. ", 10) + "cola"
	got := CleanForSpeech(in, 200)

	want := "Una frase corta de prueba. Una frase corta de prueba. Una frase corta de prueba."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCleanForSpeechBoundsTextWithoutPeriods(t *testing.T) {
	in := strings.Repeat("¿Quieres análisis de mercado o consejos de inversión? ", 15)
	got := CleanForSpeech(in, 200)

	if n := RuneLen(got); n > 200 {
		t.Errorf("expected at most 200 runes, got %d", n)
	}
	if n := strings.Count(got, "?"); n != 3 {
		t.Errorf("expected three questions, got %d in %q", n, got)
	}

	long := strings.Repeat("sin puntuacion ", 60)
	if n := RuneLen(CleanForSpeech(long, 200)); n > 200 {
		t.Errorf("unpunctuated text must be capped, got %d runes", n)
	}
}

func TestCleanForSpeechKeepsDecimalPrices(t *testing.T) {
	in := "XRP cotiza en $2.30 hoy. Cardano en $0.57 y Ethereum $2.6K. " +
		strings.Repeat("Relleno para superar el limite de voz. ", 6)
	got := CleanForSpeech(in, 200)

	for _, price := range []string{"$2.30", "$0.57", "$2.6K"} {
		if !strings.Contains(got, price) {
			t.Errorf("expected %s intact in %q", price, got)
		}
	}
	if strings.Contains(got, ". 30") || strings.Contains(got, ". 6K") {
		t.Errorf("decimal split in %q", got)
	}
}

func TestSentences(t *testing.T) {
	got := Sentences("¡Hola Ana! Bitcoin está en $102,000.00 hoy. ¿Algo más? fin")
	want := []string{"¡Hola Ana!", "Bitcoin está en $102,000.00 hoy.", "¿Algo más?", "fin"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("¿Cuál es el precio de BITCOIN?")
	want := []string{"cuál", "es", "el", "precio", "de", "bitcoin"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
