package ninjanight

import (
	_ "embed"
)

// Embed the seed card catalog
//
//go:embed static/deck-settings.yaml
var DeckSettingsYAML []byte
