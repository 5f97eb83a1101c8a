package protocol

import "encoding/json"

// Envelope is the wire unit, identical for inbound and outbound traffic.
type Envelope struct {
	Kind      Kind  `json:"kind"`
	Timestamp int64 `json:"timestamp"`
	Payload   any   `json:"payload"`
}

// Encode renders the envelope as wire JSON.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// NewRequestState builds the bootstrap control envelope with an empty payload.
func NewRequestState(timestampMillis int64) Envelope {
	return Envelope{
		Kind:      KindRequestState,
		Timestamp: timestampMillis,
		Payload:   struct{}{},
	}
}

// NewStateSync builds a stateSync envelope from a snapshot patch.
func NewStateSync(timestampMillis int64, patch StatePatch) Envelope {
	return Envelope{
		Kind:      KindStateSync,
		Timestamp: timestampMillis,
		Payload:   patch,
	}
}

// StatePatch is the stateSync payload: each layer and each field inside a
// layer is optional, enabling field-level merges.
type StatePatch struct {
	Backdrop  *BackdropPatch  `json:"layer1,omitempty"`
	Narration *NarrationPatch `json:"layer2,omitempty"`
	Overlay   *OverlayPatch   `json:"layer3,omitempty"`
	Info      *InfoPatch      `json:"layer4,omitempty"`
}

// BackdropPatch patches the background media layer.
type BackdropPatch struct {
	Materials   *string    `json:"materials,omitempty"`
	MediaType   *MediaType `json:"mediaType,omitempty"`
	AudioSource *string    `json:"audioSrc,omitempty"`
}

// NarrationPatch patches the narration layer.
type NarrationPatch struct {
	Source  *string `json:"narrationSrc,omitempty"`
	Playing *bool   `json:"playing,omitempty"`
}

// OverlayPatch patches the overlay layer.
type OverlayPatch struct {
	Source  *string `json:"overlaySrc,omitempty"`
	Visible *bool   `json:"visible,omitempty"`
}

// InfoPatch patches the textual/metadata layer.
type InfoPatch struct {
	Headline    *string  `json:"headline,omitempty"`
	Subtext     *string  `json:"subtext,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Condition   *string  `json:"condition,omitempty"`
	Location    *string  `json:"location,omitempty"`
}
