package protocol

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noirsys/aflr-viewbox/internal/telemetry"
)

type capturedEvent struct {
	event   string
	level   telemetry.Level
	details map[string]any
}

type captureReporter struct {
	events []capturedEvent
}

func (r *captureReporter) Report(event string, level telemetry.Level, details map[string]any) {
	r.events = append(r.events, capturedEvent{event: event, level: level, details: details})
}

func envelope(kind string, timestamp int64, payload string) []byte {
	return []byte(fmt.Sprintf(`{"kind":%q,"timestamp":%d,"payload":%s}`, kind, timestamp, payload))
}

func TestValidate_RejectsMalformedJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"truncated object", `{"kind":`},
		{"empty input", ``},
		{"garbage", `not json at all`},
		{"unterminated string", `{"kind":"headlineUpdate`},
	}

	v := NewValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, rej := v.Validate([]byte(tt.raw))
			assert.Nil(t, cmd)
			require.NotNil(t, rej)
			assert.Equal(t, ReasonInvalidJSON, rej.Reason)
		})
	}
}

func TestValidate_RejectsNonObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"null", `null`},
		{"number", `42`},
		{"string", `"hello"`},
		{"array", `[{"kind":"headlineUpdate"}]`},
		{"boolean", `true`},
	}

	v := NewValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, rej := v.Validate([]byte(tt.raw))
			assert.Nil(t, cmd)
			require.NotNil(t, rej)
			assert.Equal(t, ReasonNonObject, rej.Reason)
		})
	}
}

func TestValidate_RejectsMissingOrMistypedEnvelopeFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no kind", `{"timestamp":1000,"payload":{}}`},
		{"kind not a string", `{"kind":7,"timestamp":1000,"payload":{}}`},
		{"no timestamp", `{"kind":"headlineUpdate","payload":{}}`},
		{"timestamp is a string", `{"kind":"headlineUpdate","timestamp":"1000","payload":{}}`},
		{"timestamp is null", `{"kind":"headlineUpdate","timestamp":null,"payload":{}}`},
		{"no payload", `{"kind":"headlineUpdate","timestamp":1000}`},
		{"payload is an array", `{"kind":"headlineUpdate","timestamp":1000,"payload":[]}`},
		{"payload is null", `{"kind":"headlineUpdate","timestamp":1000,"payload":null}`},
	}

	v := NewValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, rej := v.Validate([]byte(tt.raw))
			assert.Nil(t, cmd)
			require.NotNil(t, rej)
			assert.Equal(t, ReasonMissingFields, rej.Reason)
		})
	}
}

func TestValidate_RejectsUnknownKind(t *testing.T) {
	v := NewValidator(nil)

	// Even a perfectly shaped payload does not rescue an unknown kind.
	cmd, rej := v.Validate(envelope("discoModeUpdate", 1000, `{"headline":"x"}`))
	assert.Nil(t, cmd)
	require.NotNil(t, rej)
	assert.Equal(t, ReasonUnknownKind, rej.Reason)
}

func TestValidate_MainContentUpdate(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantMedia MediaType
		wantErr   bool
	}{
		{"numeric image", `{"mediaType":1,"materials":"a.jpg"}`, MediaTypeImage, false},
		{"numeric video", `{"mediaType":2,"materials":"a.mp4"}`, MediaTypeVideo, false},
		{"string image", `{"mediaType":"1","materials":"a.jpg"}`, MediaTypeImage, false},
		{"string video", `{"mediaType":"2","materials":"a.mp4"}`, MediaTypeVideo, false},
		{"canonical name", `{"mediaType":"video","materials":"a.mp4"}`, MediaTypeVideo, false},
		{"unresolvable media type", `{"mediaType":3,"materials":"a.jpg"}`, "", true},
		{"missing media type", `{"materials":"a.jpg"}`, "", true},
		{"empty materials", `{"mediaType":1,"materials":""}`, "", true},
		{"missing materials", `{"mediaType":1}`, "", true},
		{"materials not a string", `{"mediaType":1,"materials":17}`, "", true},
	}

	v := NewValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, rej := v.Validate(envelope("mainContentUpdate", 1000, tt.payload))
			if tt.wantErr {
				require.NotNil(t, rej)
				assert.Equal(t, ReasonInvalidPayload, rej.Reason)
				return
			}
			require.Nil(t, rej)
			mc, ok := cmd.(MainContentUpdate)
			require.True(t, ok)
			assert.Equal(t, tt.wantMedia, mc.MediaType)
			assert.Equal(t, int64(1000), mc.Timestamp())
		})
	}
}

func TestValidate_BackgroundAudioUpdate(t *testing.T) {
	v := NewValidator(nil)

	t.Run("explicit null is a stop signal", func(t *testing.T) {
		cmd, rej := v.Validate(envelope("backgroundaudioUpdate", 1000, `{"audioSrc":null}`))
		require.Nil(t, rej)
		ba, ok := cmd.(BackgroundAudioUpdate)
		require.True(t, ok)
		assert.True(t, ba.Stop)
		assert.Empty(t, ba.AudioSource)
	})

	t.Run("missing key is rejected", func(t *testing.T) {
		cmd, rej := v.Validate(envelope("backgroundaudioUpdate", 1000, `{}`))
		assert.Nil(t, cmd)
		require.NotNil(t, rej)
		assert.Equal(t, ReasonInvalidPayload, rej.Reason)
	})

	t.Run("string source", func(t *testing.T) {
		cmd, rej := v.Validate(envelope("backgroundaudioUpdate", 1000, `{"audioSrc":"loop.mp3"}`))
		require.Nil(t, rej)
		ba := cmd.(BackgroundAudioUpdate)
		assert.False(t, ba.Stop)
		assert.Equal(t, "loop.mp3", ba.AudioSource)
	})

	t.Run("non-string source is rejected", func(t *testing.T) {
		_, rej := v.Validate(envelope("backgroundaudioUpdate", 1000, `{"audioSrc":42}`))
		require.NotNil(t, rej)
		assert.Equal(t, ReasonInvalidPayload, rej.Reason)
	})
}

func TestValidate_WeatherUpdate(t *testing.T) {
	v := NewValidator(nil)

	cmd, rej := v.Validate(envelope("weatherUpdate", 1000, `{"temperature":34,"condition":"sunny"}`))
	require.Nil(t, rej)
	w := cmd.(WeatherUpdate)
	assert.Equal(t, 34.0, w.Temperature)
	assert.Equal(t, "sunny", w.Condition)

	_, rej = v.Validate(envelope("weatherUpdate", 1000, `{"temperature":"hot"}`))
	require.NotNil(t, rej)
	assert.Equal(t, ReasonInvalidPayload, rej.Reason)

	_, rej = v.Validate(envelope("weatherUpdate", 1000, `{}`))
	require.NotNil(t, rej)
	assert.Equal(t, ReasonInvalidPayload, rej.Reason)
}

func TestValidate_TextualUpdates(t *testing.T) {
	v := NewValidator(nil)

	cmd, rej := v.Validate(envelope("headlineUpdate", 1000, `{"headline":"Breaking"}`))
	require.Nil(t, rej)
	assert.Equal(t, "Breaking", cmd.(HeadlineUpdate).Headline)

	// Empty string clears the field; that is valid.
	cmd, rej = v.Validate(envelope("headlineUpdate", 1000, `{"headline":""}`))
	require.Nil(t, rej)
	assert.Empty(t, cmd.(HeadlineUpdate).Headline)

	cmd, rej = v.Validate(envelope("subtextUpdate", 1000, `{"subtext":"details below"}`))
	require.Nil(t, rej)
	assert.Equal(t, "details below", cmd.(SubtextUpdate).Subtext)

	cmd, rej = v.Validate(envelope("locationUpdate", 1000, `{"location":"Hamburg"}`))
	require.Nil(t, rej)
	assert.Equal(t, "Hamburg", cmd.(LocationUpdate).Location)

	_, rej = v.Validate(envelope("headlineUpdate", 1000, `{"headline":13}`))
	require.NotNil(t, rej)
	assert.Equal(t, ReasonInvalidPayload, rej.Reason)
}

func TestValidate_OverlayAndNarration(t *testing.T) {
	v := NewValidator(nil)

	cmd, rej := v.Validate(envelope("overlayUpdate", 1000, `{"overlaySrc":"banner.png"}`))
	require.Nil(t, rej)
	assert.Equal(t, "banner.png", cmd.(OverlayUpdate).Source)

	cmd, rej = v.Validate(envelope("overlayToggle", 1000, `{"visible":false}`))
	require.Nil(t, rej)
	assert.False(t, cmd.(OverlayToggle).Visible)

	_, rej = v.Validate(envelope("overlayToggle", 1000, `{"visible":"yes"}`))
	require.NotNil(t, rej)
	assert.Equal(t, ReasonInvalidPayload, rej.Reason)

	cmd, rej = v.Validate(envelope("narrationUpdate", 1000, `{"narrationSrc":"story.mp3"}`))
	require.Nil(t, rej)
	assert.Equal(t, "story.mp3", cmd.(NarrationUpdate).Source)

	_, rej = v.Validate(envelope("narrationUpdate", 1000, `{"narrationSrc":""}`))
	require.NotNil(t, rej)

	cmd, rej = v.Validate(envelope("narrationStop", 1000, `{}`))
	require.Nil(t, rej)
	assert.Equal(t, KindNarrationStop, cmd.Kind())
}

func TestValidate_FullStoryUpdate(t *testing.T) {
	v := NewValidator(nil)

	cmd, rej := v.Validate(envelope("fullStoryUpdate", 1000,
		`{"headline":"H","subtext":"S","mediaType":"2","materials":"clip.mp4"}`))
	require.Nil(t, rej)
	fs := cmd.(FullStoryUpdate)
	assert.Equal(t, "H", fs.Headline)
	assert.Equal(t, "S", fs.Subtext)
	assert.Equal(t, MediaTypeVideo, fs.MediaType)
	assert.Equal(t, "clip.mp4", fs.Materials)

	_, rej = v.Validate(envelope("fullStoryUpdate", 1000,
		`{"headline":"H","subtext":"S","mediaType":"2","materials":""}`))
	require.NotNil(t, rej)
	assert.Equal(t, ReasonInvalidPayload, rej.Reason)
}

func TestValidate_ControlKinds(t *testing.T) {
	v := NewValidator(nil)

	cmd, rej := v.Validate(envelope("requestState", 1000, `{}`))
	require.Nil(t, rej)
	assert.Equal(t, KindRequestState, cmd.Kind())

	cmd, rej = v.Validate(envelope("stateSync", 1000, `{"layer4":{"headline":"X"}}`))
	require.Nil(t, rej)
	sync := cmd.(StateSync)
	require.NotNil(t, sync.Patch.Info)
	require.NotNil(t, sync.Patch.Info.Headline)
	assert.Equal(t, "X", *sync.Patch.Info.Headline)
	assert.Nil(t, sync.Patch.Info.Subtext)
	assert.Nil(t, sync.Patch.Backdrop)
	assert.Nil(t, sync.Patch.Narration)
	assert.Nil(t, sync.Patch.Overlay)

	_, rej = v.Validate(envelope("stateSync", 1000, `{"layer4":{"headline":99}}`))
	require.NotNil(t, rej)
	assert.Equal(t, ReasonInvalidPayload, rej.Reason)
}

func TestValidate_StateSyncCoercesMediaType(t *testing.T) {
	v := NewValidator(nil)

	cmd, rej := v.Validate(envelope("stateSync", 1000, `{"layer1":{"mediaType":2,"materials":"b.mp4"}}`))
	require.Nil(t, rej)
	sync := cmd.(StateSync)
	require.NotNil(t, sync.Patch.Backdrop)
	require.NotNil(t, sync.Patch.Backdrop.MediaType)
	assert.Equal(t, MediaTypeVideo, *sync.Patch.Backdrop.MediaType)
}

func TestValidate_EmitsExactlyOneTelemetryEventPerCall(t *testing.T) {
	tests := []struct {
		name      string
		raw       []byte
		wantEvent string
		wantLevel telemetry.Level
	}{
		{"accepted", envelope("headlineUpdate", 1000, `{"headline":"x"}`), "parsed", telemetry.LevelDebug},
		{"bad json", []byte(`{`), "ignored:invalid_json", telemetry.LevelWarn},
		{"non object", []byte(`3`), "ignored:non_object", telemetry.LevelWarn},
		{"missing fields", []byte(`{"kind":"headlineUpdate"}`), "ignored:missing_fields", telemetry.LevelWarn},
		{"unknown kind", envelope("nope", 1, `{}`), "ignored:unknown_kind", telemetry.LevelWarn},
		{"bad payload", envelope("weatherUpdate", 1, `{}`), "ignored:invalid_payload", telemetry.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reporter := &captureReporter{}
			v := NewValidator(reporter)

			v.Validate(tt.raw)

			require.Len(t, reporter.events, 1)
			assert.Equal(t, tt.wantEvent, reporter.events[0].event)
			assert.Equal(t, tt.wantLevel, reporter.events[0].level)
		})
	}
}

func TestValidate_IsIdempotent(t *testing.T) {
	v := NewValidator(nil)
	raw := envelope("weatherUpdate", 1000, `{"temperature":21.5}`)

	first, rej1 := v.Validate(raw)
	second, rej2 := v.Validate(raw)

	require.Nil(t, rej1)
	require.Nil(t, rej2)
	assert.Equal(t, first, second)
}
