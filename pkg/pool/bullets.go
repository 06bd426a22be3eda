package pool

import (
	"encoding/json"
	"strings"
)

// NormalizeBullets приводит сырое JSON-представление пунктов к единой форме.
// Источники присылают пункты двумя способами: просто строкой либо объектом
// {"text": ..., "domainTags": [...]}. Дальше по коду существует только Bullet.
func NormalizeBullets(raw json.RawMessage) []Bullet {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]Bullet, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if strings.TrimSpace(s) == "" {
				continue
			}
			out = append(out, Bullet{Text: s})
			continue
		}
		var b Bullet
		if err := json.Unmarshal(item, &b); err == nil && strings.TrimSpace(b.Text) != "" {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// BulletTexts возвращает только тексты пунктов (для текста эмбеддинга).
func BulletTexts(bullets []Bullet) []string {
	if len(bullets) == 0 {
		return nil
	}
	out := make([]string, 0, len(bullets))
	for _, b := range bullets {
		if b.Text != "" {
			out = append(out, b.Text)
		}
	}
	return out
}
