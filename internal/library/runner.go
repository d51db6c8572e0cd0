package library

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"gainscan/internal/gain"
	"gainscan/internal/loudness"
	"gainscan/internal/report"
	"gainscan/internal/scan"
)

// Sink receives finished records. Implemented by report.Pipeline.
type Sink interface {
	Emit(report.Record)
}

// Tagger applies or removes ReplayGain tags for one finished track. A nil
// Tagger on the runner disables tag writing entirely.
type Tagger interface {
	Write(ctx context.Context, t *scan.Track) error
	Clear(ctx context.Context, t *scan.Track) error
}

// RunnerOptions wires a Runner's collaborators and scan settings.
type RunnerOptions struct {
	Scanner *scan.Scanner
	Meters  loudness.Backend
	Sink    Sink
	Tagger  Tagger
	Log     *slog.Logger

	Pregain         float64
	Album           bool
	PreventClipping bool
	MaxTruePeak     float64
	Threads         int
}

// Runner schedules track scans across a bounded worker pool and routes the
// finished results to the tag writer and the report sink.
type Runner struct {
	opts RunnerOptions
}

// NewRunner builds a runner. Threads below one falls back to the number of
// CPUs.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.Threads < 1 {
		opts.Threads = runtime.NumCPU()
	}
	return &Runner{opts: opts}
}

// Summary counts the outcomes of one run.
type Summary struct {
	Tracks        int
	TracksFailed  int
	Folders       int
	FoldersFailed int
	TagsFailed    int
}

// Failed reports whether the run's exit status should be non-zero.
func (s Summary) Failed() bool {
	return s.TracksFailed > 0 || s.FoldersFailed > 0 || s.TagsFailed > 0
}

type counters struct {
	tracksFailed  atomic.Int32
	foldersFailed atomic.Int32
	tagsFailed    atomic.Int32
}

// Run scans every file, in album mode grouped by parent directory, and
// returns the outcome tally once all workers have drained.
func (r *Runner) Run(ctx context.Context, files []string) Summary {
	if r.opts.Album {
		return r.runAlbums(ctx, files)
	}
	return r.runTracks(ctx, files)
}

func (r *Runner) runTracks(ctx context.Context, files []string) Summary {
	var c counters
	tracks := make([]*scan.Track, len(files))
	for i, path := range files {
		tracks[i] = scan.NewTrack(path)
	}

	r.forEach(ctx, len(tracks), func(i int) {
		t := tracks[i]
		if err := r.opts.Scanner.Scan(ctx, t, r.opts.Pregain, true); err != nil {
			c.tracksFailed.Add(1)
			r.opts.Log.Error("track scan failed", "path", t.Path, "error", err)
			return
		}
		r.finalizeTrack(t)
		r.writeTags(ctx, t, &c)
		r.opts.Sink.Emit(r.trackRecord(t))
		t.CloseMeter()
	})

	return Summary{
		Tracks:       len(tracks),
		TracksFailed: int(c.tracksFailed.Load()),
		TagsFailed:   int(c.tagsFailed.Load()),
	}
}

// albumUnit is one schedulable piece of album-mode work: a track plus the
// folder whose completion countdown it participates in.
type albumUnit struct {
	folder *scan.Folder
	track  *scan.Track
}

func (r *Runner) runAlbums(ctx context.Context, files []string) Summary {
	var c counters
	folders, units := partition(files)

	r.forEach(ctx, len(units), func(i int) {
		u := units[i]
		if err := r.opts.Scanner.Scan(ctx, u.track, r.opts.Pregain, true); err != nil {
			r.opts.Log.Error("track scan failed", "path", u.track.Path, "error", err)
		}
		// The last sibling to finish, success or not, settles the folder.
		if u.folder.FinishTrack() {
			r.finishFolder(ctx, u.folder, &c)
		}
	})

	return Summary{
		Tracks:        len(units),
		TracksFailed:  int(c.tracksFailed.Load()),
		Folders:       len(folders),
		FoldersFailed: int(c.foldersFailed.Load()),
		TagsFailed:    int(c.tagsFailed.Load()),
	}
}

// finishFolder runs on the single task the completion countdown selected:
// it aggregates, finalizes and emits every member track, appends the album
// record, and releases the folder's meters.
func (r *Runner) finishFolder(ctx context.Context, f *scan.Folder, c *counters) {
	defer f.Close()

	if err := f.Aggregate(ctx, r.opts.Meters, r.opts.Pregain); err != nil {
		c.foldersFailed.Add(1)
		r.opts.Log.Error("album aggregation failed", "dir", f.Dir, "error", err)
	}

	for _, t := range f.Tracks {
		if t.Status() != scan.StatusSuccess {
			c.tracksFailed.Add(1)
			continue
		}
		// Tracks that measured fine are still reported when the album
		// itself could not be aggregated; only the album-scope fields
		// stay absent.
		r.finalizeTrack(t)
		if t.HasAlbum {
			r.finalizeAlbum(t)
		}
		r.writeTags(ctx, t, c)
		r.opts.Sink.Emit(r.trackRecord(t))
	}

	if f.Status() == scan.StatusSuccess {
		r.opts.Sink.Emit(r.albumRecord(f))
	}
}

// Clear identifies each file's container and codec, then strips its
// ReplayGain tags. No loudness is measured.
func (r *Runner) Clear(ctx context.Context, files []string) Summary {
	var c counters
	tracks := make([]*scan.Track, len(files))
	for i, path := range files {
		tracks[i] = scan.NewTrack(path)
	}

	r.forEach(ctx, len(tracks), func(i int) {
		t := tracks[i]
		if err := r.opts.Scanner.Scan(ctx, t, 0, false); err != nil {
			c.tracksFailed.Add(1)
			r.opts.Log.Error("identify failed", "path", t.Path, "error", err)
			return
		}
		if err := r.opts.Tagger.Clear(ctx, t); err != nil {
			c.tagsFailed.Add(1)
			r.opts.Log.Error("tag removal failed", "path", t.Path, "error", err)
			return
		}
		r.opts.Log.Info("tags removed", "path", t.Path)
	})

	return Summary{
		Tracks:       len(tracks),
		TracksFailed: int(c.tracksFailed.Load()),
		TagsFailed:   int(c.tagsFailed.Load()),
	}
}

func (r *Runner) finalizeTrack(t *scan.Track) {
	clip := gain.Analyze(t.Gain, t.Peak, r.opts.MaxTruePeak, r.opts.PreventClipping)
	t.Gain = clip.Gain
	t.Clips = clip.Clips
	t.NewPeak = clip.NewPeak
	if clip.Prevented {
		t.ClipPrevented = true
	}
}

func (r *Runner) finalizeAlbum(t *scan.Track) {
	clip := gain.Analyze(t.AlbumGain, t.AlbumPeak, r.opts.MaxTruePeak, r.opts.PreventClipping)
	t.AlbumGain = clip.Gain
	t.AlbumClips = clip.Clips
	t.NewAlbumPeak = clip.NewPeak
	if clip.Prevented {
		t.ClipPrevented = true
	}
}

func (r *Runner) writeTags(ctx context.Context, t *scan.Track, c *counters) {
	if r.opts.Tagger == nil {
		return
	}
	if err := r.opts.Tagger.Write(ctx, t); err != nil {
		c.tagsFailed.Add(1)
		r.opts.Log.Error("tag write failed", "path", t.Path, "error", err)
	}
}

func (r *Runner) trackRecord(t *scan.Track) report.Record {
	return report.Record{
		Kind:          report.KindFile,
		Location:      t.Path,
		Loudness:      t.Loudness,
		Range:         t.Range,
		Peak:          t.Peak,
		Reference:     t.Reference,
		WillClip:      t.Clips || t.AlbumClips,
		ClipPrevented: t.ClipPrevented,
		Gain:          t.Gain,
		NewPeak:       t.NewPeak,
		Opus:          t.IsOpus(),
	}
}

func (r *Runner) albumRecord(f *scan.Folder) report.Record {
	t := f.Tracks[0]
	return report.Record{
		Kind:          report.KindAlbum,
		Location:      f.Dir,
		Loudness:      t.AlbumLoudness,
		Range:         t.AlbumRange,
		Peak:          t.AlbumPeak,
		Reference:     t.Reference,
		WillClip:      t.AlbumClips,
		ClipPrevented: t.ClipPrevented,
		Gain:          t.AlbumGain,
		NewPeak:       t.NewAlbumPeak,
		Opus:          t.IsOpus(),
	}
}

// partition groups the sorted file list by parent directory into folders
// and flattens them into schedulable units. Membership is fixed here and
// never changes during the run.
func partition(files []string) ([]*scan.Folder, []albumUnit) {
	var folders []*scan.Folder
	byDir := make(map[string][]*scan.Track)
	var order []string

	for _, path := range files {
		t := scan.NewTrack(path)
		if _, ok := byDir[t.Dir]; !ok {
			order = append(order, t.Dir)
		}
		byDir[t.Dir] = append(byDir[t.Dir], t)
	}

	var units []albumUnit
	for _, dir := range order {
		f := scan.NewFolder(dir, byDir[dir])
		folders = append(folders, f)
		for _, t := range f.Tracks {
			units = append(units, albumUnit{folder: f, track: t})
		}
	}
	return folders, units
}

// forEach runs fn over the index range on the runner's worker pool. Work
// units are pulled dynamically since scan cost varies a lot with file size
// and codec.
func (r *Runner) forEach(ctx context.Context, n int, fn func(int)) {
	workers := r.opts.Threads
	if workers > n {
		workers = n
	}
	if workers < 1 {
		return
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}
