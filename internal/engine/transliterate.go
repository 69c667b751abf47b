package engine

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"turansuraetu/internal/patch"
)

// Transliterator renders Japanese kana as Hepburn romaji. Kanji and other
// characters pass through unchanged.
type Transliterator struct{}

// NewTransliterator creates a Transliterator.
func NewTransliterator() *Transliterator { return &Transliterator{} }

// Name returns "transliterate".
func (t *Transliterator) Name() string { return "transliterate" }

// Field returns the Transliteration slot.
func (t *Transliterator) Field() patch.Field { return patch.FieldTransliteration }

// Translate romanizes text when the source language is Japanese and returns
// an empty string otherwise.
func (t *Transliterator) Translate(_ context.Context, from, _ Language, text string) (string, error) {
	if from != Japanese {
		return "", nil
	}
	return ToRomaji(text), nil
}

var romaji = map[string]string{
	"あ": "a", "い": "i", "う": "u", "え": "e", "お": "o",
	"か": "ka", "き": "ki", "く": "ku", "け": "ke", "こ": "ko",
	"さ": "sa", "し": "shi", "す": "su", "せ": "se", "そ": "so",
	"た": "ta", "ち": "chi", "つ": "tsu", "て": "te", "と": "to",
	"な": "na", "に": "ni", "ぬ": "nu", "ね": "ne", "の": "no",
	"は": "ha", "ひ": "hi", "ふ": "fu", "へ": "he", "ほ": "ho",
	"ま": "ma", "み": "mi", "む": "mu", "め": "me", "も": "mo",
	"や": "ya", "ゆ": "yu", "よ": "yo",
	"ら": "ra", "り": "ri", "る": "ru", "れ": "re", "ろ": "ro",
	"わ": "wa", "ゐ": "wi", "ゑ": "we", "を": "wo", "ん": "n",
	"が": "ga", "ぎ": "gi", "ぐ": "gu", "げ": "ge", "ご": "go",
	"ざ": "za", "じ": "ji", "ず": "zu", "ぜ": "ze", "ぞ": "zo",
	"だ": "da", "ぢ": "ji", "づ": "zu", "で": "de", "ど": "do",
	"ば": "ba", "び": "bi", "ぶ": "bu", "べ": "be", "ぼ": "bo",
	"ぱ": "pa", "ぴ": "pi", "ぷ": "pu", "ぺ": "pe", "ぽ": "po",
	"ゔ": "vu",
	"ぁ": "a", "ぃ": "i", "ぅ": "u", "ぇ": "e", "ぉ": "o",
	"ゃ": "ya", "ゅ": "yu", "ょ": "yo", "ゎ": "wa", "ゕ": "ka", "ゖ": "ke",

	"きゃ": "kya", "きゅ": "kyu", "きょ": "kyo",
	"しゃ": "sha", "しゅ": "shu", "しょ": "sho", "しぇ": "she",
	"ちゃ": "cha", "ちゅ": "chu", "ちょ": "cho", "ちぇ": "che",
	"にゃ": "nya", "にゅ": "nyu", "にょ": "nyo",
	"ひゃ": "hya", "ひゅ": "hyu", "ひょ": "hyo",
	"みゃ": "mya", "みゅ": "myu", "みょ": "myo",
	"りゃ": "rya", "りゅ": "ryu", "りょ": "ryo",
	"ぎゃ": "gya", "ぎゅ": "gyu", "ぎょ": "gyo",
	"じゃ": "ja", "じゅ": "ju", "じょ": "jo", "じぇ": "je",
	"びゃ": "bya", "びゅ": "byu", "びょ": "byo",
	"ぴゃ": "pya", "ぴゅ": "pyu", "ぴょ": "pyo",
	"ふぁ": "fa", "ふぃ": "fi", "ふぇ": "fe", "ふぉ": "fo",
	"てぃ": "ti", "でぃ": "di", "とぅ": "tu", "どぅ": "du",
	"うぃ": "wi", "うぇ": "we", "うぉ": "wo",
	"ゔぁ": "va", "ゔぃ": "vi", "ゔぇ": "ve", "ゔぉ": "vo",
	"ヷ": "va", "ヸ": "vi", "ヹ": "ve", "ヺ": "vo",

	"。": ".", "、": ",", "！": "!", "？": "?", "「": "\"", "」": "\"",
	"『": "\"", "』": "\"", "（": "(", "）": ")", "・": " ", "　": " ",
	"～": "~", "…": "...",
}

// toHiragana folds katakana onto hiragana so one table serves both.
func toHiragana(r rune) rune {
	if r >= 'ァ' && r <= 'ヶ' {
		return r - 0x60
	}
	return r
}

// foldKana widens half-width katakana and composes their detached voicing
// marks, so ｶﾞ reads as ガ.
func foldKana(s string) string {
	var sb strings.Builder
	folded := false
	for _, r := range s {
		if r >= '\uFF61' && r <= '\uFF9F' {
			if w := width.LookupRune(r).Wide(); w != 0 {
				r = w
			}
			switch r {
			case '゛':
				r = '\u3099'
			case '゜':
				r = '\u309A'
			}
			folded = true
		}
		sb.WriteRune(r)
	}
	if !folded {
		return s
	}
	return norm.NFC.String(sb.String())
}

// syllabicN reports whether ん must be written n' before next.
func syllabicN(next string) bool {
	return next != "" && strings.IndexByte("aeiouy", next[0]) >= 0
}

// ToRomaji converts kana in s to romaji.
func ToRomaji(s string) string {
	runes := []rune(foldKana(s))
	for i, r := range runes {
		runes[i] = toHiragana(r)
	}

	var sb strings.Builder
	geminate := false
	last := ""

	emit := func(out string) {
		if last == "n" && syllabicN(out) {
			sb.WriteByte('\'')
		}
		if geminate {
			if strings.HasPrefix(out, "ch") {
				sb.WriteByte('t')
			} else if out != "" && strings.IndexByte("aeioun", out[0]) < 0 {
				sb.WriteByte(out[0])
			}
			geminate = false
		}
		sb.WriteString(out)
		last = out
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == 'っ' {
			geminate = true
			continue
		}

		if r == 'ー' {
			if n := len(last); n > 0 && strings.IndexByte("aeiou", last[n-1]) >= 0 {
				sb.WriteByte(last[n-1])
			}
			continue
		}

		if i+1 < len(runes) {
			if out, ok := romaji[string(runes[i:i+2])]; ok {
				emit(out)
				i++
				continue
			}
		}

		if out, ok := romaji[string(r)]; ok {
			emit(out)
			continue
		}

		if geminate {
			sb.WriteByte('t')
			geminate = false
		}
		sb.WriteRune(r)
		last = ""
	}

	if geminate {
		sb.WriteByte('t')
	}

	return sb.String()
}
