package protocol

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/Noirsys/aflr-viewbox/internal/telemetry"
)

// Reason classifies why an envelope was rejected.
type Reason string

const (
	ReasonInvalidJSON    Reason = "invalid_json"
	ReasonNonObject      Reason = "non_object"
	ReasonMissingFields  Reason = "missing_fields"
	ReasonUnknownKind    Reason = "unknown_kind"
	ReasonInvalidPayload Reason = "invalid_payload"
)

// Rejection explains a discarded envelope. Rejections are always recovered
// locally; they never propagate as errors.
type Rejection struct {
	Reason Reason
	Detail string
}

func (r *Rejection) String() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

func reject(reason Reason, format string, args ...any) (Command, *Rejection) {
	return nil, &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Validator parses raw wire text into typed commands. Validation is a pure
// function of its input; the only side effect is one telemetry event per
// call, emitted before returning.
type Validator struct {
	reporter telemetry.Reporter
}

// NewValidator creates a validator. A nil reporter disables telemetry.
func NewValidator(reporter telemetry.Reporter) *Validator {
	if reporter == nil {
		reporter = telemetry.Nop{}
	}
	return &Validator{reporter: reporter}
}

// Validate classifies raw into exactly one typed command or one rejection.
// It never panics, whatever the input.
func (v *Validator) Validate(raw []byte) (Command, *Rejection) {
	cmd, rej := parse(raw)
	if rej != nil {
		v.reporter.Report("ignored:"+string(rej.Reason), telemetry.LevelWarn, map[string]any{
			"detail": rej.Detail,
		})
		return nil, rej
	}
	v.reporter.Report("parsed", telemetry.LevelDebug, map[string]any{
		"kind":      string(cmd.Kind()),
		"timestamp": cmd.Timestamp(),
	})
	return cmd, nil
}

func parse(raw []byte) (Command, *Rejection) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return reject(ReasonInvalidJSON, "%v", err)
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return reject(ReasonNonObject, "envelope is %T, not an object", value)
	}

	kindRaw, ok := obj["kind"].(string)
	if !ok {
		return reject(ReasonMissingFields, "kind missing or not a string")
	}
	tsRaw, ok := obj["timestamp"].(float64)
	if !ok || math.IsNaN(tsRaw) || math.IsInf(tsRaw, 0) {
		return reject(ReasonMissingFields, "timestamp missing or not a finite number")
	}
	payload, ok := obj["payload"].(map[string]any)
	if !ok {
		return reject(ReasonMissingFields, "payload missing or not an object")
	}

	kind := Kind(kindRaw)
	if !KnownKind(kind) {
		return reject(ReasonUnknownKind, "kind %q", kindRaw)
	}

	return buildCommand(kind, meta{TS: int64(tsRaw)}, payload)
}

func buildCommand(kind Kind, m meta, payload map[string]any) (Command, *Rejection) {
	switch kind {
	case KindMainContentUpdate:
		mediaType, ok := ParseMediaType(payload["mediaType"])
		if !ok {
			return reject(ReasonInvalidPayload, "mainContentUpdate: unresolvable mediaType %v", payload["mediaType"])
		}
		materials, ok := payload["materials"].(string)
		if !ok || materials == "" {
			return reject(ReasonInvalidPayload, "mainContentUpdate: materials missing or empty")
		}
		return MainContentUpdate{meta: m, MediaType: mediaType, Materials: materials}, nil

	case KindBackgroundAudioUpdate:
		// The audioSrc key must be present: an explicit null is a
		// legitimate stop signal, a missing key is not.
		src, present := payload["audioSrc"]
		if !present {
			return reject(ReasonInvalidPayload, "backgroundaudioUpdate: audioSrc key missing")
		}
		if src == nil {
			return BackgroundAudioUpdate{meta: m, Stop: true}, nil
		}
		s, ok := src.(string)
		if !ok {
			return reject(ReasonInvalidPayload, "backgroundaudioUpdate: audioSrc is %T, not a string or null", src)
		}
		return BackgroundAudioUpdate{meta: m, AudioSource: s}, nil

	case KindNarrationUpdate:
		src, ok := payload["narrationSrc"].(string)
		if !ok || src == "" {
			return reject(ReasonInvalidPayload, "narrationUpdate: narrationSrc missing or empty")
		}
		return NarrationUpdate{meta: m, Source: src}, nil

	case KindNarrationStop:
		return NarrationStop{meta: m}, nil

	case KindHeadlineUpdate:
		headline, ok := payload["headline"].(string)
		if !ok {
			return reject(ReasonInvalidPayload, "headlineUpdate: headline missing or not a string")
		}
		return HeadlineUpdate{meta: m, Headline: headline}, nil

	case KindSubtextUpdate:
		subtext, ok := payload["subtext"].(string)
		if !ok {
			return reject(ReasonInvalidPayload, "subtextUpdate: subtext missing or not a string")
		}
		return SubtextUpdate{meta: m, Subtext: subtext}, nil

	case KindWeatherUpdate:
		temp, ok := payload["temperature"].(float64)
		if !ok || math.IsNaN(temp) || math.IsInf(temp, 0) {
			return reject(ReasonInvalidPayload, "weatherUpdate: temperature missing or not a finite number")
		}
		condition, _ := payload["condition"].(string)
		return WeatherUpdate{meta: m, Temperature: temp, Condition: condition}, nil

	case KindLocationUpdate:
		location, ok := payload["location"].(string)
		if !ok {
			return reject(ReasonInvalidPayload, "locationUpdate: location missing or not a string")
		}
		return LocationUpdate{meta: m, Location: location}, nil

	case KindOverlayUpdate:
		src, ok := payload["overlaySrc"].(string)
		if !ok || src == "" {
			return reject(ReasonInvalidPayload, "overlayUpdate: overlaySrc missing or empty")
		}
		return OverlayUpdate{meta: m, Source: src}, nil

	case KindOverlayToggle:
		visible, ok := payload["visible"].(bool)
		if !ok {
			return reject(ReasonInvalidPayload, "overlayToggle: visible missing or not a boolean")
		}
		return OverlayToggle{meta: m, Visible: visible}, nil

	case KindFullStoryUpdate:
		headline, ok := payload["headline"].(string)
		if !ok {
			return reject(ReasonInvalidPayload, "fullStoryUpdate: headline missing or not a string")
		}
		subtext, ok := payload["subtext"].(string)
		if !ok {
			return reject(ReasonInvalidPayload, "fullStoryUpdate: subtext missing or not a string")
		}
		mediaType, ok := ParseMediaType(payload["mediaType"])
		if !ok {
			return reject(ReasonInvalidPayload, "fullStoryUpdate: unresolvable mediaType %v", payload["mediaType"])
		}
		materials, ok := payload["materials"].(string)
		if !ok || materials == "" {
			return reject(ReasonInvalidPayload, "fullStoryUpdate: materials missing or empty")
		}
		return FullStoryUpdate{meta: m, Headline: headline, Subtext: subtext, MediaType: mediaType, Materials: materials}, nil

	case KindRequestState:
		return RequestState{meta: m}, nil

	case KindStateSync:
		patch, rej := parseStatePatch(payload)
		if rej != nil {
			return nil, rej
		}
		return StateSync{meta: m, Patch: patch}, nil
	}

	// Unreachable: KnownKind was checked before dispatch.
	return reject(ReasonUnknownKind, "kind %q", kind)
}

func parseStatePatch(payload map[string]any) (StatePatch, *Rejection) {
	// Round-trip through JSON so each present field is type-checked and
	// media types are coerced; absent fields stay nil.
	data, err := json.Marshal(payload)
	if err != nil {
		return StatePatch{}, &Rejection{Reason: ReasonInvalidPayload, Detail: fmt.Sprintf("stateSync: %v", err)}
	}
	var patch StatePatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return StatePatch{}, &Rejection{Reason: ReasonInvalidPayload, Detail: fmt.Sprintf("stateSync: %v", err)}
	}
	return patch, nil
}
