package state

import "github.com/Noirsys/aflr-viewbox/internal/protocol"

// Action is the closed set of reducer inputs.
type Action interface{ isAction() }

// ConnectionStatusAction updates only the connection sub-state. It never
// touches lastTimestamp or any content layer.
type ConnectionStatusAction struct {
	Status           Status
	ReconnectAttempt int
	Err              string
}

func (ConnectionStatusAction) isAction() {}

// CommandAction applies one validated command.
type CommandAction struct {
	Command protocol.Command
}

func (CommandAction) isAction() {}

// CommandGroupAction applies an ordered batch of commands as one dispatch.
// The result is observably identical to reducing each member in sequence.
type CommandGroupAction struct {
	Commands []protocol.Command
}

func (CommandGroupAction) isAction() {}

// Reduce folds an action onto s and returns the next snapshot. It is pure
// and total: every input yields a valid state, and rejected or no-op inputs
// return s itself so callers can short-circuit on pointer equality.
func Reduce(s *BroadcastState, a Action) *BroadcastState {
	switch act := a.(type) {
	case ConnectionStatusAction:
		next := *s
		next.Connection = ConnectionState{
			Status:           act.Status,
			ReconnectAttempt: act.ReconnectAttempt,
			LastError:        act.Err,
		}
		return &next

	case CommandAction:
		return applyCommand(s, act.Command)

	case CommandGroupAction:
		next := s
		for _, cmd := range act.Commands {
			next = applyCommand(next, cmd)
		}
		return next
	}

	return s
}

// applyCommand folds one command onto s. Commands older than the last
// accepted timestamp are dropped; equal timestamps are accepted in arrival
// order (timestamps are hints, not sequence numbers).
func applyCommand(s *BroadcastState, cmd protocol.Command) *BroadcastState {
	if cmd.Timestamp() < s.LastTimestamp {
		return s
	}

	// requestState has no state effect; keep the exact same snapshot.
	if _, ok := cmd.(protocol.RequestState); ok {
		return s
	}

	next := *s
	next.LastTimestamp = cmd.Timestamp()

	switch c := cmd.(type) {
	case protocol.MainContentUpdate:
		next.Backdrop.Materials = c.Materials
		next.Backdrop.MediaType = c.MediaType

	case protocol.BackgroundAudioUpdate:
		if c.Stop {
			next.Backdrop.AudioSource = ""
		} else {
			next.Backdrop.AudioSource = c.AudioSource
		}

	case protocol.NarrationUpdate:
		next.Narration.Source = c.Source
		next.Narration.Playing = true

	case protocol.NarrationStop:
		next.Narration.Playing = false

	case protocol.HeadlineUpdate:
		next.Info.Headline = c.Headline

	case protocol.SubtextUpdate:
		next.Info.Subtext = c.Subtext

	case protocol.WeatherUpdate:
		next.Info.Temperature = c.Temperature
		next.Info.Condition = c.Condition

	case protocol.LocationUpdate:
		next.Info.Location = c.Location

	case protocol.OverlayUpdate:
		next.Overlay.Source = c.Source
		next.Overlay.Visible = true

	case protocol.OverlayToggle:
		next.Overlay.Visible = c.Visible

	case protocol.FullStoryUpdate:
		// One reducer step: no intermediate snapshot where only part of
		// the story is visible can ever be observed.
		next.Info.Headline = c.Headline
		next.Info.Subtext = c.Subtext
		next.Backdrop.Materials = c.Materials
		next.Backdrop.MediaType = c.MediaType

	case protocol.StateSync:
		mergePatch(&next, c.Patch)

	default:
		return s
	}

	return &next
}

// mergePatch overwrites exactly the fields present in the patch. The merge
// is field-level, not layer-level: a patch naming only layer4.headline
// leaves every other layer4 field intact.
func mergePatch(next *BroadcastState, p protocol.StatePatch) {
	if b := p.Backdrop; b != nil {
		if b.Materials != nil {
			next.Backdrop.Materials = *b.Materials
		}
		if b.MediaType != nil {
			next.Backdrop.MediaType = *b.MediaType
		}
		if b.AudioSource != nil {
			next.Backdrop.AudioSource = *b.AudioSource
		}
	}
	if n := p.Narration; n != nil {
		if n.Source != nil {
			next.Narration.Source = *n.Source
		}
		if n.Playing != nil {
			next.Narration.Playing = *n.Playing
		}
	}
	if o := p.Overlay; o != nil {
		if o.Source != nil {
			next.Overlay.Source = *o.Source
		}
		if o.Visible != nil {
			next.Overlay.Visible = *o.Visible
		}
	}
	if i := p.Info; i != nil {
		if i.Headline != nil {
			next.Info.Headline = *i.Headline
		}
		if i.Subtext != nil {
			next.Info.Subtext = *i.Subtext
		}
		if i.Temperature != nil {
			next.Info.Temperature = *i.Temperature
		}
		if i.Condition != nil {
			next.Info.Condition = *i.Condition
		}
		if i.Location != nil {
			next.Info.Location = *i.Location
		}
	}
}
