package usage

import (
	"math"
	"strings"
	"unicode"
)

// weights are per-token-class costs fitted against the vendor tokenizer.
type weights struct {
	Word       float64
	Number     float64
	CJK        float64
	Symbol     float64
	MathSymbol float64
	URLDelim   float64
	AtSign     float64
	Emoji      float64
	Newline    float64
	Space      float64
}

var defaultWeights = weights{Word: 1.02, Number: 1.55, CJK: 0.85, Symbol: 0.4, MathSymbol: 2.68, URLDelim: 1.0, AtSign: 2.0, Emoji: 2.12, Newline: 0.5, Space: 0.42}

// EstimateTokens approximates the token count of text without a tokenizer.
func EstimateTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return estimate(defaultWeights, text)
}

func estimate(w weights, text string) int {
	var count float64

	type runKind int
	const (
		none runKind = iota
		letters
		digits
	)
	cur := none

	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			cur = none
			if r == '\n' || r == '\t' {
				count += w.Newline
			} else {
				count += w.Space
			}
		case isCJK(r):
			cur = none
			count += w.CJK
		case isEmoji(r):
			cur = none
			count += w.Emoji
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			kind := letters
			if unicode.IsNumber(r) {
				kind = digits
			}
			if cur != kind {
				if kind == digits {
					count += w.Number
				} else {
					count += w.Word
				}
				cur = kind
			}
		default:
			cur = none
			switch {
			case isMathSymbol(r):
				count += w.MathSymbol
			case r == '@':
				count += w.AtSign
			case isURLDelim(r):
				count += w.URLDelim
			default:
				count += w.Symbol
			}
		}
	}
	return int(math.Ceil(count))
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		(r >= 0x3040 && r <= 0x30FF) ||
		(r >= 0xAC00 && r <= 0xD7A3)
}

func isEmoji(r rune) bool {
	return (r >= 0x1F300 && r <= 0x1F9FF) ||
		(r >= 0x2600 && r <= 0x26FF) ||
		(r >= 0x2700 && r <= 0x27BF) ||
		(r >= 0x1FA00 && r <= 0x1FAFF)
}

func isMathSymbol(r rune) bool {
	if r >= 0x2200 && r <= 0x22FF {
		return true
	}
	if r >= 0x2A00 && r <= 0x2AFF {
		return true
	}
	switch r {
	case '±', '×', '÷':
		return true
	default:
		return false
	}
}

func isURLDelim(r rune) bool {
	switch r {
	case '/', ':', '?', '&', '=', ';', '#', '%':
		return true
	default:
		return false
	}
}
