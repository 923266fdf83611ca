package domain

import (
	"sort"
	"strings"
)

// Platform описывает каноничный код мессенджера.
type Platform string

const (
	PlatformTelegram Platform = "tg"
	PlatformVK       Platform = "vk"
)

// PlatformAny означает отсутствие фильтра по платформе.
const PlatformAny = "any"

// AllPlatforms возвращает все поддерживаемые платформы.
func AllPlatforms() []Platform {
	return []Platform{PlatformTelegram, PlatformVK}
}

var platformSynonyms = map[string]Platform{
	"tg":          PlatformTelegram,
	"telegram":    PlatformTelegram,
	"t.me":        PlatformTelegram,
	"telegram.me": PlatformTelegram,
	"тг":          PlatformTelegram,
	"телеграм":    PlatformTelegram,
	"телеграмм":   PlatformTelegram,
	"vk":          PlatformVK,
	"vkontakte":   PlatformVK,
	"vk.com":      PlatformVK,
	"вк":          PlatformVK,
	"вконтакте":   PlatformVK,
}

var platformPrefixes = []struct {
	prefix   string
	platform Platform
}{
	{"t.me/", PlatformTelegram},
	{"telegram.me/", PlatformTelegram},
	{"telegram", PlatformTelegram},
	{"vk.com/", PlatformVK},
	{"vk.me/", PlatformVK},
	{"vkontakte", PlatformVK},
}

// NormalizePlatform приводит произвольное обозначение платформы к каноничному коду.
// Второе значение false, если значение не распознано.
func NormalizePlatform(raw string) (Platform, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", false
	}
	for _, scheme := range []string{"https://", "http://"} {
		value = strings.TrimPrefix(value, scheme)
	}
	value = strings.TrimPrefix(value, "www.")
	if p, ok := platformSynonyms[value]; ok {
		return p, true
	}
	for _, candidate := range platformPrefixes {
		if strings.HasPrefix(value, candidate.prefix) {
			return candidate.platform, true
		}
	}
	return "", false
}

// NormalizePlatforms нормализует список платформ, отбрасывая нераспознанные значения и дубликаты.
func NormalizePlatforms(raw []string) []Platform {
	seen := make(map[Platform]struct{}, len(raw))
	out := make([]Platform, 0, len(raw))
	for _, value := range raw {
		p, ok := NormalizePlatform(value)
		if !ok {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// VariantsFor возвращает все строковые варианты, под которыми платформа могла быть сохранена в БД.
func VariantsFor(p Platform) []string {
	variants := []string{string(p)}
	for synonym, platform := range platformSynonyms {
		if platform == p && synonym != string(p) {
			variants = append(variants, synonym)
		}
	}
	sort.Strings(variants[1:])
	return variants
}

// FoldText приводит строку к виду для регистронезависимого поиска: нижний регистр, ё→е,
// схлопнутые пробелы.
func FoldText(s string) string {
	lowered := strings.ToLower(s)
	lowered = strings.ReplaceAll(lowered, "ё", "е")
	return strings.Join(strings.Fields(lowered), " ")
}
