package tags

import (
	"fmt"
	"strconv"
	"strings"

	"go.senan.xyz/taglib"

	"gainscan/internal/decode"
	"gainscan/internal/gain"
	"gainscan/internal/scan"
)

// tagIO abstracts the taglib bindings for tests.
type tagIO interface {
	read(path string) (map[string][]string, error)
	write(path string, tags map[string][]string) error
}

type taglibIO struct{}

func (taglibIO) read(path string) (map[string][]string, error) {
	return taglib.ReadTags(path)
}

func (taglibIO) write(path string, tags map[string][]string) error {
	return taglib.WriteTags(path, tags, 0)
}

// handler renders the tag set for one supported format family.
type handler interface {
	render(t *scan.Track, opts Options) map[string][]string
}

// supportedContainers lists the format families tag writing handles, keyed
// by the normalized ffprobe format name.
var supportedContainers = map[string]struct{}{
	"mp3":  {},
	"flac": {},
	"ogg":  {},
	"mp4":  {},
	"asf":  {},
	"wav":  {},
	"wv":   {},
	"ape":  {},
	"aiff": {},
}

// normalizeContainer reduces ffprobe's format_name, which may be a comma
// list like "mov,mp4,m4a,3gp,3g2,mj2", to a registry key.
func normalizeContainer(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, part := range strings.Split(name, ",") {
		if part == "mp4" || part == "mov" || part == "m4a" {
			return "mp4"
		}
	}
	return name
}

// handlerFor resolves the tag handler for a container/codec pair. Opus gets
// its own handler: its spec mandates Q7.8 R128_* tags and forbids the
// REPLAYGAIN_* family.
func handlerFor(container, codec string) (handler, error) {
	key := normalizeContainer(container)
	if _, ok := supportedContainers[key]; !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedFormat, container, codec)
	}
	if codec == decode.CodecOpus {
		return opusHandler{}, nil
	}
	return replaygainHandler{}, nil
}

// replaygainHandler writes the ReplayGain 2.0 tag set shared by every
// non-Opus format.
type replaygainHandler struct{}

func (replaygainHandler) render(t *scan.Track, opts Options) map[string][]string {
	values := map[string][]string{
		"REPLAYGAIN_TRACK_GAIN": {fmt.Sprintf("%.2f %s", t.Gain, opts.Unit)},
		"REPLAYGAIN_TRACK_PEAK": {fmt.Sprintf("%.6f", t.Peak)},
	}
	if opts.Album && t.HasAlbum {
		values["REPLAYGAIN_ALBUM_GAIN"] = []string{fmt.Sprintf("%.2f %s", t.AlbumGain, opts.Unit)}
		values["REPLAYGAIN_ALBUM_PEAK"] = []string{fmt.Sprintf("%.6f", t.AlbumPeak)}
	}
	if opts.Mode == ModeExtended {
		values["REPLAYGAIN_REFERENCE_LOUDNESS"] = []string{fmt.Sprintf("%.2f LUFS", t.Reference)}
		values["REPLAYGAIN_TRACK_RANGE"] = []string{fmt.Sprintf("%.2f %s", t.Range, opts.Unit)}
		if opts.Album && t.HasAlbum {
			values["REPLAYGAIN_ALBUM_RANGE"] = []string{fmt.Sprintf("%.2f %s", t.AlbumRange, opts.Unit)}
		}
	}
	return values
}

// opusHandler writes the Q7.8 fixed-point gains the Opus spec defines.
type opusHandler struct{}

func (opusHandler) render(t *scan.Track, opts Options) map[string][]string {
	values := map[string][]string{
		"R128_TRACK_GAIN": {strconv.Itoa(gain.Q78(t.Gain))},
	}
	if opts.Album && t.HasAlbum {
		values["R128_ALBUM_GAIN"] = []string{strconv.Itoa(gain.Q78(t.AlbumGain))}
	}
	return values
}
