package scan_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"gainscan/internal/decode"
	"gainscan/internal/logging"
	"gainscan/internal/loudness"
	"gainscan/internal/scan"
)

func scanFolder(t *testing.T, opener *fakeOpener, backend *fakeBackend, dir string, paths []string, pregain float64) *scan.Folder {
	t.Helper()
	tracks := make([]*scan.Track, len(paths))
	for i, path := range paths {
		tracks[i] = scan.NewTrack(path)
	}
	folder := scan.NewFolder(dir, tracks)
	scanner := scan.NewScanner(opener, backend, logging.NewNop())
	for _, track := range tracks {
		_ = scanner.Scan(context.Background(), track, pregain, true)
	}
	return folder
}

func TestAggregateWritesAlbumFields(t *testing.T) {
	opener := newFakeOpener()
	info := decode.StreamInfo{Container: "flac", Codec: "flac", Channels: 2, SampleRate: 44100}
	opener.add("/a/1.flac", info, []int16{0})
	opener.add("/a/2.flac", info, []int16{0})
	opener.add("/a/3.flac", info, []int16{0})
	backend := &fakeBackend{
		results: []loudness.Result{
			{Integrated: -19, Range: 2, TruePeak: 0.5},
			{Integrated: -21, Range: 3, TruePeak: 0.9},
			{Integrated: -20, Range: 4, TruePeak: 0.3},
		},
		combined: loudness.Combined{Integrated: -20, Range: 5.5},
	}

	folder := scanFolder(t, opener, backend, "/a", []string{"/a/1.flac", "/a/2.flac", "/a/3.flac"}, 0)
	if err := folder.Aggregate(context.Background(), backend, 0); err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	defer folder.Close()

	if folder.Status() != scan.StatusSuccess {
		t.Fatalf("folder status = %s", folder.Status())
	}
	for _, track := range folder.Tracks {
		if !track.HasAlbum {
			t.Fatalf("album fields missing on %s", track.Path)
		}
		if track.AlbumPeak != 0.9 {
			t.Fatalf("album peak = %v, want 0.9 (max of member peaks)", track.AlbumPeak)
		}
		if track.AlbumLoudness != -20 || track.AlbumRange != 5.5 {
			t.Fatalf("album loudness/range: %v/%v", track.AlbumLoudness, track.AlbumRange)
		}
		if track.AlbumGain != 2 {
			t.Fatalf("album gain = %v, want 2", track.AlbumGain)
		}
	}
}

func TestAggregateOpusAlbumAdjustsPregain(t *testing.T) {
	opener := newFakeOpener()
	info := decode.StreamInfo{Container: "ogg", Codec: "opus", Channels: 2, SampleRate: 48000}
	opener.add("/a/1.opus", info, []int16{0})
	opener.add("/a/2.opus", info, []int16{0})
	backend := &fakeBackend{
		results: []loudness.Result{
			{Integrated: -23, TruePeak: 0.5},
			{Integrated: -23, TruePeak: 0.5},
		},
		combined: loudness.Combined{Integrated: -23, Range: 1},
	}

	folder := scanFolder(t, opener, backend, "/a", []string{"/a/1.opus", "/a/2.opus"}, 0)
	if err := folder.Aggregate(context.Background(), backend, 0); err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	defer folder.Close()

	for _, track := range folder.Tracks {
		if track.AlbumGain != 0 {
			t.Fatalf("album gain = %v, want 0 at the Opus reference", track.AlbumGain)
		}
	}
}

func TestAggregateRefusesMixedOpusAlbum(t *testing.T) {
	opener := newFakeOpener()
	opener.add("/a/1.opus", decode.StreamInfo{Container: "ogg", Codec: "opus", Channels: 2, SampleRate: 48000}, []int16{0})
	opener.add("/a/2.mp3", decode.StreamInfo{Container: "mp3", Codec: "mp3", Channels: 2, SampleRate: 44100}, []int16{0})
	backend := &fakeBackend{}

	folder := scanFolder(t, opener, backend, "/a", []string{"/a/1.opus", "/a/2.mp3"}, 0)
	err := folder.Aggregate(context.Background(), backend, 0)
	if !errors.Is(err, scan.ErrIncompatibleAlbum) {
		t.Fatalf("error = %v, want ErrIncompatibleAlbum", err)
	}
	defer folder.Close()

	if folder.Status() != scan.StatusFail {
		t.Fatalf("folder status = %s", folder.Status())
	}
	if backend.combines.Load() != 0 {
		t.Fatal("combine must not run for an incompatible album")
	}
	for _, track := range folder.Tracks {
		if track.HasAlbum {
			t.Fatal("album fields must stay unset")
		}
	}
}

func TestAggregateMixedNonOpusAlbumIsAllowed(t *testing.T) {
	opener := newFakeOpener()
	opener.add("/a/1.mp3", decode.StreamInfo{Container: "mp3", Codec: "mp3", Channels: 2, SampleRate: 44100}, []int16{0})
	opener.add("/a/2.flac", decode.StreamInfo{Container: "flac", Codec: "flac", Channels: 2, SampleRate: 44100}, []int16{0})
	backend := &fakeBackend{combined: loudness.Combined{Integrated: -19}}

	folder := scanFolder(t, opener, backend, "/a", []string{"/a/1.mp3", "/a/2.flac"}, 0)
	if err := folder.Aggregate(context.Background(), backend, 0); err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	folder.Close()
}

func TestAggregateRefusesFailedMember(t *testing.T) {
	opener := newFakeOpener()
	opener.add("/a/1.flac", decode.StreamInfo{Container: "flac", Codec: "flac", Channels: 2, SampleRate: 44100}, []int16{0})
	opener.openErr["/a/2.flac"] = errors.New("unreadable")
	backend := &fakeBackend{}

	folder := scanFolder(t, opener, backend, "/a", []string{"/a/1.flac", "/a/2.flac"}, 0)
	if err := folder.Aggregate(context.Background(), backend, 0); err == nil {
		t.Fatal("expected aggregation failure")
	}
	defer folder.Close()

	if folder.Status() != scan.StatusFail {
		t.Fatalf("folder status = %s", folder.Status())
	}
	if backend.combines.Load() != 0 {
		t.Fatal("combine must not run when a member failed")
	}
}

func TestFinishTrackSelectsExactlyOneWinner(t *testing.T) {
	const tracks = 8
	const rounds = 200

	for round := 0; round < rounds; round++ {
		folder := scan.NewFolder("/a", make([]*scan.Track, tracks))

		var winners atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < tracks; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if folder.FinishTrack() {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		if winners.Load() != 1 {
			t.Fatalf("round %d: %d winners, want exactly 1", round, winners.Load())
		}
	}
}

func TestConcurrentScanAggregatesExactlyOnce(t *testing.T) {
	const n = 6
	opener := newFakeOpener()
	info := decode.StreamInfo{Container: "flac", Codec: "flac", Channels: 2, SampleRate: 44100}
	paths := make([]string, n)
	tracks := make([]*scan.Track, n)
	for i := range paths {
		paths[i] = "/a/" + string(rune('a'+i)) + ".flac"
		opener.add(paths[i], info, []int16{0})
		tracks[i] = scan.NewTrack(paths[i])
	}
	backend := &fakeBackend{combined: loudness.Combined{Integrated: -20}}
	scanner := scan.NewScanner(opener, backend, logging.NewNop())
	folder := scan.NewFolder("/a", tracks)

	var aggregations atomic.Int32
	var wg sync.WaitGroup
	for _, track := range tracks {
		wg.Add(1)
		go func(track *scan.Track) {
			defer wg.Done()
			_ = scanner.Scan(context.Background(), track, 0, true)
			if folder.FinishTrack() {
				aggregations.Add(1)
				if err := folder.Aggregate(context.Background(), backend, 0); err != nil {
					t.Errorf("Aggregate: %v", err)
				}
				folder.Close()
			}
		}(track)
	}
	wg.Wait()

	if aggregations.Load() != 1 {
		t.Fatalf("aggregation ran %d times, want exactly once", aggregations.Load())
	}
	if backend.combines.Load() != 1 {
		t.Fatalf("combine ran %d times, want exactly once", backend.combines.Load())
	}
	for _, track := range tracks {
		if !track.HasAlbum {
			t.Fatalf("album fields missing on %s", track.Path)
		}
	}
}
