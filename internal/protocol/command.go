// Package protocol models the broadcast wire protocol: the JSON envelope,
// the closed set of command kinds, and the validator that turns raw socket
// text into typed commands.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind identifies one wire command type.
type Kind string

const (
	KindMainContentUpdate     Kind = "mainContentUpdate"
	KindBackgroundAudioUpdate Kind = "backgroundaudioUpdate"
	KindNarrationUpdate       Kind = "narrationUpdate"
	KindNarrationStop         Kind = "narrationStop"
	KindHeadlineUpdate        Kind = "headlineUpdate"
	KindSubtextUpdate         Kind = "subtextUpdate"
	KindWeatherUpdate         Kind = "weatherUpdate"
	KindLocationUpdate        Kind = "locationUpdate"
	KindOverlayUpdate         Kind = "overlayUpdate"
	KindOverlayToggle         Kind = "overlayToggle"
	KindFullStoryUpdate       Kind = "fullStoryUpdate"
	KindRequestState          Kind = "requestState"
	KindStateSync             Kind = "stateSync"
)

var knownKinds = map[Kind]struct{}{
	KindMainContentUpdate:     {},
	KindBackgroundAudioUpdate: {},
	KindNarrationUpdate:       {},
	KindNarrationStop:         {},
	KindHeadlineUpdate:        {},
	KindSubtextUpdate:         {},
	KindWeatherUpdate:         {},
	KindLocationUpdate:        {},
	KindOverlayUpdate:         {},
	KindOverlayToggle:         {},
	KindFullStoryUpdate:       {},
	KindRequestState:          {},
	KindStateSync:             {},
}

// KnownKind reports whether k belongs to the fixed kind set.
func KnownKind(k Kind) bool {
	_, ok := knownKinds[k]
	return ok
}

// MediaType is the narrowed media classification for backdrop content.
// The wire encodes it loosely (numeric 1/2 or the strings "1"/"2"); once
// validated it is always one of the two canonical values.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// ParseMediaType coerces a raw payload value into a MediaType. It accepts
// the numeric wire forms 1/2, their string forms "1"/"2", and the canonical
// names emitted by outbound stateSync snapshots.
func ParseMediaType(v any) (MediaType, bool) {
	switch t := v.(type) {
	case float64:
		switch t {
		case 1:
			return MediaTypeImage, true
		case 2:
			return MediaTypeVideo, true
		}
	case string:
		switch t {
		case "1", "image":
			return MediaTypeImage, true
		case "2", "video":
			return MediaTypeVideo, true
		}
	case MediaType:
		if t == MediaTypeImage || t == MediaTypeVideo {
			return t, true
		}
	}
	return "", false
}

// UnmarshalJSON applies the same coercion as ParseMediaType, so stateSync
// payloads can carry either wire form. An empty string stays empty (no
// media selected yet).
func (m *MediaType) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if s, ok := raw.(string); ok && s == "" {
		*m = ""
		return nil
	}
	parsed, ok := ParseMediaType(raw)
	if !ok {
		return fmt.Errorf("unresolvable media type %v", raw)
	}
	*m = parsed
	return nil
}

// Command is the closed sum over the known kinds. Each variant carries only
// the fields its kind requires, already narrowed to their canonical types.
type Command interface {
	Kind() Kind
	Timestamp() int64
	isCommand()
}

// meta carries the envelope timestamp shared by every command variant.
type meta struct {
	TS int64
}

func (m meta) Timestamp() int64 { return m.TS }
func (meta) isCommand()         {}

// MainContentUpdate replaces the backdrop media.
type MainContentUpdate struct {
	meta
	MediaType MediaType
	Materials string
}

func (MainContentUpdate) Kind() Kind { return KindMainContentUpdate }

// BackgroundAudioUpdate sets or explicitly stops the backdrop audio.
// Stop is true when the wire carried an explicit null audioSrc.
type BackgroundAudioUpdate struct {
	meta
	AudioSource string
	Stop        bool
}

func (BackgroundAudioUpdate) Kind() Kind { return KindBackgroundAudioUpdate }

// NarrationUpdate starts narration playback from a new source.
type NarrationUpdate struct {
	meta
	Source string
}

func (NarrationUpdate) Kind() Kind { return KindNarrationUpdate }

// NarrationStop halts narration playback.
type NarrationStop struct {
	meta
}

func (NarrationStop) Kind() Kind { return KindNarrationStop }

// HeadlineUpdate replaces the headline text. Empty clears it.
type HeadlineUpdate struct {
	meta
	Headline string
}

func (HeadlineUpdate) Kind() Kind { return KindHeadlineUpdate }

// SubtextUpdate replaces the subtext line. Empty clears it.
type SubtextUpdate struct {
	meta
	Subtext string
}

func (SubtextUpdate) Kind() Kind { return KindSubtextUpdate }

// WeatherUpdate replaces the weather reading.
type WeatherUpdate struct {
	meta
	Temperature float64
	Condition   string
}

func (WeatherUpdate) Kind() Kind { return KindWeatherUpdate }

// LocationUpdate replaces the location caption.
type LocationUpdate struct {
	meta
	Location string
}

func (LocationUpdate) Kind() Kind { return KindLocationUpdate }

// OverlayUpdate shows a new overlay source.
type OverlayUpdate struct {
	meta
	Source string
}

func (OverlayUpdate) Kind() Kind { return KindOverlayUpdate }

// OverlayToggle shows or hides the current overlay without changing it.
type OverlayToggle struct {
	meta
	Visible bool
}

func (OverlayToggle) Kind() Kind { return KindOverlayToggle }

// FullStoryUpdate atomically replaces headline, subtext and backdrop media.
type FullStoryUpdate struct {
	meta
	Headline  string
	Subtext   string
	MediaType MediaType
	Materials string
}

func (FullStoryUpdate) Kind() Kind { return KindFullStoryUpdate }

// RequestState asks peers for the authoritative snapshot. It carries no
// payload and has no direct state effect.
type RequestState struct {
	meta
}

func (RequestState) Kind() Kind { return KindRequestState }

// StateSync carries a partial snapshot. Only the fields present in the
// patch overwrite state; everything else is retained.
type StateSync struct {
	meta
	Patch StatePatch
}

func (StateSync) Kind() Kind { return KindStateSync }
