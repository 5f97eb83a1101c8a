// Package state holds the canonical broadcast snapshot and the pure reducer
// that folds validated commands onto it. Snapshots are immutable: every
// accepted transition produces a new value, so consumers can compare
// pointers to detect no-ops.
package state

import "github.com/Noirsys/aflr-viewbox/internal/protocol"

// Status is the connection sub-state.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// ConnectionState mirrors the connection manager's lifecycle for consumers.
type ConnectionState struct {
	Status           Status `json:"status"`
	ReconnectAttempt int    `json:"reconnectAttempt"`
	LastError        string `json:"lastError,omitempty"`
}

// BackdropLayer is the background media layer (layer1 on the wire).
type BackdropLayer struct {
	Materials   string             `json:"materials"`
	MediaType   protocol.MediaType `json:"mediaType"`
	AudioSource string             `json:"audioSrc"`
}

// NarrationLayer is the narration control layer (layer2 on the wire).
type NarrationLayer struct {
	Source  string `json:"narrationSrc"`
	Playing bool   `json:"playing"`
}

// OverlayLayer is the overlay layer (layer3 on the wire).
type OverlayLayer struct {
	Source  string `json:"overlaySrc"`
	Visible bool   `json:"visible"`
}

// InfoLayer is the textual/metadata layer (layer4 on the wire).
type InfoLayer struct {
	Headline    string  `json:"headline"`
	Subtext     string  `json:"subtext"`
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
	Location    string  `json:"location"`
}

// BroadcastState is the canonical presentation snapshot. It is always fully
// defined; there is no partial state at any point in the fold.
type BroadcastState struct {
	Connection    ConnectionState `json:"connection"`
	Backdrop      BackdropLayer   `json:"layer1"`
	Narration     NarrationLayer  `json:"layer2"`
	Overlay       OverlayLayer    `json:"layer3"`
	Info          InfoLayer       `json:"layer4"`
	LastTimestamp int64           `json:"lastTimestamp"`
}

// Initial returns the engine's starting snapshot: disconnected, empty layers.
func Initial() *BroadcastState {
	return &BroadcastState{
		Connection: ConnectionState{Status: StatusDisconnected},
	}
}

// Patch renders the full snapshot as a stateSync payload, used to answer a
// peer's requestState or to seed the relay cache.
func (s *BroadcastState) Patch() protocol.StatePatch {
	materials := s.Backdrop.Materials
	mediaType := s.Backdrop.MediaType
	audio := s.Backdrop.AudioSource
	narrationSrc := s.Narration.Source
	playing := s.Narration.Playing
	overlaySrc := s.Overlay.Source
	visible := s.Overlay.Visible
	headline := s.Info.Headline
	subtext := s.Info.Subtext
	temperature := s.Info.Temperature
	condition := s.Info.Condition
	location := s.Info.Location

	return protocol.StatePatch{
		Backdrop: &protocol.BackdropPatch{
			Materials:   &materials,
			MediaType:   &mediaType,
			AudioSource: &audio,
		},
		Narration: &protocol.NarrationPatch{
			Source:  &narrationSrc,
			Playing: &playing,
		},
		Overlay: &protocol.OverlayPatch{
			Source:  &overlaySrc,
			Visible: &visible,
		},
		Info: &protocol.InfoPatch{
			Headline:    &headline,
			Subtext:     &subtext,
			Temperature: &temperature,
			Condition:   &condition,
			Location:    &location,
		},
	}
}
