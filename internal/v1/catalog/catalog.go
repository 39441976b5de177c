// Package catalog holds the static room list the server is started with.
// The catalog is embedded at build time; rooms are never created or removed
// while the server runs.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/parlor-chat/parlor/internal/v1/room"
)

//go:embed rooms.json
var roomsJSON []byte

// Load parses the embedded room catalog, preserving file order.
func Load() ([]room.Metadata, error) {
	var metas []room.Metadata
	if err := json.Unmarshal(roomsJSON, &metas); err != nil {
		return nil, fmt.Errorf("catalog: parsing embedded room list: %w", err)
	}
	if len(metas) == 0 {
		return nil, fmt.Errorf("catalog: embedded room list is empty")
	}
	for i, meta := range metas {
		if meta.Name == "" {
			return nil, fmt.Errorf("catalog: room at index %d has no name", i)
		}
	}
	return metas, nil
}
