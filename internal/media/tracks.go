package media

import (
	"errors"

	"golang.org/x/text/language"
)

// Text subtitle codecs that survive conversion to mov_text in an MP4
// container. Bitmap formats (pgs, dvdsub) cannot be embedded.
var textSubtitleCodecs = map[string]struct{}{
	"srt":      {},
	"subrip":   {},
	"ass":      {},
	"ssa":      {},
	"mov_text": {},
}

// ErrNoVideoStream indicates the source has nothing to encode.
var ErrNoVideoStream = errors.New("no video stream in source")

// Preferences control track selection.
type Preferences struct {
	AudioLanguage    string
	SubtitleLanguage string
	EmbedSubtitles   bool
}

// Selection holds the streams chosen for conversion. Audio and Subtitle may
// be nil; AudioFallback marks that no language match was found and the
// command builder should map the first available audio track optionally.
type Selection struct {
	Video         *Stream
	Audio         *Stream
	AudioFallback bool
	Subtitle      *Stream
}

// SelectTracks picks the video, audio, and subtitle streams to carry into
// the output. The first video stream always wins. Audio prefers the first
// track matching the preferred language; subtitle selection additionally
// requires a text codec.
func SelectTracks(info *Info, prefs Preferences) (Selection, error) {
	videos := info.StreamsOfType(CodecTypeVideo)
	if len(videos) == 0 {
		return Selection{}, ErrNoVideoStream
	}

	sel := Selection{Video: &videos[0]}

	audios := info.StreamsOfType(CodecTypeAudio)
	if audio := firstMatchingLanguage(audios, prefs.AudioLanguage); audio != nil {
		sel.Audio = audio
	} else {
		sel.AudioFallback = true
	}

	if prefs.EmbedSubtitles {
		var textSubs []Stream
		for _, sub := range info.StreamsOfType(CodecTypeSubtitle) {
			if _, ok := textSubtitleCodecs[sub.CodecName]; ok {
				textSubs = append(textSubs, sub)
			}
		}
		sel.Subtitle = firstMatchingLanguage(textSubs, prefs.SubtitleLanguage)
	}

	return sel, nil
}

func firstMatchingLanguage(streams []Stream, preferred string) *Stream {
	want, err := language.Parse(preferred)
	if err != nil {
		return nil
	}
	matcher := language.NewMatcher([]language.Tag{want})
	for i := range streams {
		tag, err := language.Parse(streams[i].Language())
		if err != nil {
			continue
		}
		if _, _, conf := matcher.Match(tag); conf >= language.High {
			return &streams[i]
		}
	}
	return nil
}
