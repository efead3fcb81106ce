package telegram

import "github.com/mymmrac/telego"

// Telegram media groups take between 2 and 10 items.
const (
	MinMediaGroupLen = 2
	MaxMediaGroupLen = 10
)

// MediaKind selects the per-type send call for a media list.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
)

// StepKind is what a plan step asks the executor to do.
type StepKind int

const (
	// StepText sends the message text on its own.
	StepText StepKind = iota
	// StepSingle sends one media file, optionally carrying the text
	// as its caption.
	StepSingle
	// StepGroup sends a media group of 2..10 files.
	StepGroup
)

// Step is one send operation of a delivery plan.
type Step struct {
	Kind     StepKind
	Media    MediaKind
	File     telego.InputFile
	Group    []telego.InputFile
	WithText bool
}

// PlanInput is the material a message node wants delivered. A keyboard
// travels with the text, so its presence keeps the text step alive even
// when the text itself is empty.
type PlanInput struct {
	Photos      []telego.InputFile
	Documents   []telego.InputFile
	Videos      []telego.InputFile
	Audios      []telego.InputFile
	Text        string
	HasKeyboard bool
}

type mediaList struct {
	kind  MediaKind
	files []telego.InputFile
}

// Plan lays out the send operations for one message. Lists shorter
// than the media-group minimum go out as individual sends; longer
// lists are chunked into groups of at most ten. The text, or a bare
// keyboard, rides on the first singleton of the last non-empty list,
// or as a trailing text message when no singleton can carry it.
func Plan(in PlanInput) []Step {
	lists := []mediaList{
		{MediaPhoto, in.Photos},
		{MediaDocument, in.Documents},
		{MediaVideo, in.Videos},
		{MediaAudio, in.Audios},
	}

	lastNonEmpty := -1
	for i, list := range lists {
		if len(list.files) > 0 {
			lastNonEmpty = i
		}
	}
	if lastNonEmpty == -1 {
		return []Step{{Kind: StepText, WithText: true}}
	}

	var steps []Step
	textAttached := in.Text == "" && !in.HasKeyboard

	for i, list := range lists {
		if len(list.files) == 0 {
			continue
		}
		if len(list.files) < MinMediaGroupLen {
			for j, file := range list.files {
				withText := !textAttached && i == lastNonEmpty && j == 0
				steps = append(steps, Step{
					Kind:     StepSingle,
					Media:    list.kind,
					File:     file,
					WithText: withText,
				})
				if withText {
					textAttached = true
				}
			}
			continue
		}
		for start := 0; start < len(list.files); start += MaxMediaGroupLen {
			end := min(start+MaxMediaGroupLen, len(list.files))
			steps = append(steps, Step{
				Kind:  StepGroup,
				Media: list.kind,
				Group: list.files[start:end],
			})
		}
	}

	if !textAttached {
		steps = append(steps, Step{Kind: StepText, WithText: true})
	}
	return steps
}
