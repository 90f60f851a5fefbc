package eventbus

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Типы событий документа карты тайлов
const (
	TypeRegionChanged   = "tiles.region"
	TypeTilesCleared    = "tiles.cleared"
	TypeTilesRebuilt    = "tiles.rebuilt"
	TypeTileSizeChanged = "tiles.tile_size"
	TypeDocumentRestore = "tiles.restored"
	TypeSettingsChanged = "tiles.settings"
)

// TileChange полезная нагрузка событий изменения тайлов
type TileChange struct {
	DocumentID  string  `json:"document_id"`
	Op          string  `json:"op"`
	Min         *[3]int `json:"min,omitempty"`
	Size        *[3]int `json:"size,omitempty"`
	Template    string  `json:"template,omitempty"`
	Orientation int     `json:"orientation"`
	Placed      int     `json:"placed"`
	Removed     int     `json:"removed"`
	TileSize    float64 `json:"tile_size,omitempty"`
}

// NewEnvelope упаковывает полезную нагрузку в конверт с новым UUID
func NewEnvelope(source, eventType string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  1,
		Payload:   data,
	}, nil
}

// DecodeTileChange разбирает полезную нагрузку события изменения тайлов
func DecodeTileChange(ev *Envelope) (TileChange, error) {
	var tc TileChange
	err := json.Unmarshal(ev.Payload, &tc)
	return tc, err
}
