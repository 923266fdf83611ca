package domain

import "testing"

func TestNormalizePlatform(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Platform
		ok    bool
	}{
		{name: "canonical tg", input: "tg", want: PlatformTelegram, ok: true},
		{name: "upper tg", input: "TG", want: PlatformTelegram, ok: true},
		{name: "telegram word", input: "Telegram", want: PlatformTelegram, ok: true},
		{name: "t.me link", input: "t.me/shop_bot", want: PlatformTelegram, ok: true},
		{name: "t.me with scheme", input: "https://t.me/shop_bot", want: PlatformTelegram, ok: true},
		{name: "cyrillic tg", input: " ТГ ", want: PlatformTelegram, ok: true},
		{name: "vk", input: "vk", want: PlatformVK, ok: true},
		{name: "vkontakte", input: "VKontakte", want: PlatformVK, ok: true},
		{name: "cyrillic vk", input: "ВК", want: PlatformVK, ok: true},
		{name: "vk.com link", input: "https://vk.com/club1", want: PlatformVK, ok: true},
		{name: "unknown", input: "whatsapp", ok: false},
		{name: "empty", input: "  ", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePlatform(tt.input)
			if ok != tt.ok {
				t.Fatalf("NormalizePlatform(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("NormalizePlatform(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePlatformsDropsUnknownAndDuplicates(t *testing.T) {
	got := NormalizePlatforms([]string{"Telegram", "tg", "icq", "вк", "VK"})
	if len(got) != 2 {
		t.Fatalf("ожидали 2 платформы, получили %v", got)
	}
	if got[0] != PlatformTelegram || got[1] != PlatformVK {
		t.Fatalf("неожиданный порядок: %v", got)
	}
	if len(NormalizePlatforms([]string{"icq", ""})) != 0 {
		t.Fatalf("ожидали пустой список для нераспознанных значений")
	}
}

func TestVariantsForCoversSynonyms(t *testing.T) {
	for _, p := range AllPlatforms() {
		variants := VariantsFor(p)
		if len(variants) == 0 || variants[0] != string(p) {
			t.Fatalf("первым вариантом должен быть канонический код, получили %v", variants)
		}
		for _, v := range variants {
			got, ok := NormalizePlatform(v)
			if !ok || got != p {
				t.Fatalf("вариант %q нормализуется в %q, ожидали %q", v, got, p)
			}
		}
	}
	tg := VariantsFor(PlatformTelegram)
	found := false
	for _, v := range tg {
		if v == "telegram" {
			found = true
		}
	}
	if !found {
		t.Fatalf("ожидали вариант telegram среди %v", tg)
	}
}

func TestFoldText(t *testing.T) {
	if got := FoldText("  Ёлка   ПИЦЦА "); got != "елка пицца" {
		t.Fatalf("FoldText = %q", got)
	}
}

func TestParseBroadcastMode(t *testing.T) {
	cases := map[string]BroadcastMode{
		"":         BroadcastModeAll,
		"ALL":      BroadcastModeAll,
		"limit":    BroadcastModeLimit,
		"selected": BroadcastModeSelected,
	}
	for input, want := range cases {
		got, ok := ParseBroadcastMode(input)
		if !ok || got != want {
			t.Fatalf("ParseBroadcastMode(%q) = %q, %v", input, got, ok)
		}
	}
	if _, ok := ParseBroadcastMode("random"); ok {
		t.Fatal("ожидали ошибку для неизвестного режима")
	}
}

func TestPlainText(t *testing.T) {
	p := BroadcastPayload{Title: " Акция ", Text: "Скидка 10%"}
	if got := p.PlainText(); got != "Акция\n\nСкидка 10%" {
		t.Fatalf("PlainText = %q", got)
	}
	if got := (BroadcastPayload{Text: "только текст"}).PlainText(); got != "только текст" {
		t.Fatalf("PlainText = %q", got)
	}
}
