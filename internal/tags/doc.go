// Package tags writes and strips ReplayGain tags. A registry maps the
// track's container and codec to a handler: non-Opus formats get the
// REPLAYGAIN_* 2.0 tag set, Opus gets Q7.8 R128_* gains and never the
// REPLAYGAIN_* family. The actual file I/O goes through the taglib
// bindings.
package tags
