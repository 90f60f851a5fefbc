package document

import (
	"github.com/annel0/tilemap-editor/internal/tilemap"
)

// Record сохраняемая форма документа. Экземпляры не сохраняются никогда.
type Record struct {
	ID              string              `json:"id"`
	Width           int                 `json:"width"`
	TileSize        float64             `json:"tile_size"`
	DefaultTemplate tilemap.TemplateRef `json:"default_template"`
	Catalog         string              `json:"catalog"`
	Entries         []tilemap.Record    `json:"entries"`
}

// settings скалярные поля документа (объектный снимок)
type settings struct {
	TileSize        float64             `json:"tile_size"`
	DefaultTemplate tilemap.TemplateRef `json:"default_template"`
	Catalog         string              `json:"catalog"`
}

// rekey переводит ключи записи из кодека ширины from в кодек to
func rekey(entries []tilemap.Record, from, to tilemap.Codec) []tilemap.Record {
	if from.Width() == to.Width() {
		return entries
	}
	out := make([]tilemap.Record, 0, len(entries))
	for _, r := range entries {
		x, y, z := from.Decode(r.Key)
		if !to.Contains(x, y, z) {
			continue
		}
		r.Key = to.Encode(x, y, z)
		out = append(out, r)
	}
	return out
}
