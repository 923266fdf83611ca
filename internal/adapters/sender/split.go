package sender

import (
	"strings"
	"unicode/utf16"
)

// TextWidth возвращает длину текста в кодовых единицах UTF-16.
// Так лимиты длины считает Telegram: эмодзи вне BMP занимают две единицы.
func TextWidth(text string) int {
	n := 0
	for _, r := range text {
		n += runeWidth(r)
	}
	return n
}

func runeWidth(r rune) int {
	if w := len(utf16.Encode([]rune{r})); w > 0 {
		return w
	}
	return 1
}

// SplitMessage разбивает текст на части шириной не больше limit единиц UTF-16,
// предпочитая границы строк, чтобы не рвать абзацы.
func SplitMessage(text string, limit int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if limit <= 0 || TextWidth(trimmed) <= limit {
		return []string{trimmed}
	}

	runes := []rune(trimmed)
	var parts []string
	for start := 0; start < len(runes); {
		end, width := start, 0
		for end < len(runes) && width+runeWidth(runes[end]) <= limit {
			width += runeWidth(runes[end])
			end++
		}
		if end == start {
			end++
		}
		if end >= len(runes) {
			if chunk := strings.Trim(string(runes[start:]), "\n"); chunk != "" {
				parts = append(parts, chunk)
			}
			break
		}

		split := end
		for i := end; i > start; i-- {
			if runes[i-1] == '\n' {
				split = i
				break
			}
		}

		if chunk := strings.Trim(string(runes[start:split]), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
		start = split
		for start < len(runes) && runes[start] == '\n' {
			start++
		}
	}
	return parts
}
