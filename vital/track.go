package vital

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Block is one timestamped block of real values for a track. Values holds
// the samples after the ADC affine transform (real = raw*gain + offset);
// annotation blocks carry Text instead and Values is nil.
type Block struct {
	Time   time.Time
	Values []float64
	Text   string
}

// N is the number of measurements in the block.
func (b Block) N() int {
	if b.Values != nil {
		return len(b.Values)
	}
	return 1
}

// Track joins one track's metadata with all of its records, in file order.
type Track struct {
	Info   TrkInfo
	Blocks []Block
}

// resolveTrkID maps a dropped duplicate EVENT trkid to the retained one.
func (f *File) resolveTrkID(trkid uint16) uint16 {
	if retained, ok := f.eventAlias[trkid]; ok {
		return retained
	}
	return trkid
}

// GetTrack builds the view for one track, selected by trkid (pass a negative
// trkid to leave it unspecified), by name, or both. A name must match exactly
// one track; when both are given they must agree.
func (f *File) GetTrack(trkid int, name string) (*Track, error) {
	if trkid < 0 && name == "" {
		return nil, errors.New("vital: GetTrack requires a trkid or a name")
	}
	if name != "" {
		var matches []uint16
		for _, ti := range f.TrackInfo {
			if ti.Name == name {
				matches = append(matches, ti.TrkID)
			}
		}
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("%w: name %q", ErrTrackNotFound, name)
		case 1:
		default:
			return nil, fmt.Errorf("%w: name %q matches %d tracks", ErrAmbiguousTrack, name, len(matches))
		}
		if trkid >= 0 && f.resolveTrkID(uint16(trkid)) != matches[0] {
			return nil, fmt.Errorf("%w: trkid %d does not name track %q", ErrTrackNotFound, trkid, name)
		}
		trkid = int(matches[0])
	}

	id := f.resolveTrkID(uint16(trkid))
	var info *TrkInfo
	for i := range f.TrackInfo {
		if f.TrackInfo[i].TrkID == id {
			info = &f.TrackInfo[i]
			break
		}
	}
	if info == nil {
		return nil, fmt.Errorf("%w: trkid %d", ErrTrackNotFound, trkid)
	}

	t := &Track{Info: *info}
	for _, rec := range f.Recs {
		if f.resolveTrkID(rec.TrkID) != id {
			continue
		}
		b := Block{Time: rec.Time}
		switch v := rec.Value.(type) {
		case Wave:
			b.Values = make([]float64, len(v.Samples))
			for i, raw := range v.Samples {
				b.Values[i] = raw*info.ADCGain + info.ADCOffset
			}
		case Numeric:
			b.Values = []float64{v.Sample*info.ADCGain + info.ADCOffset}
		case Annotation:
			b.Text = v.Text
		}
		t.Blocks = append(t.Blocks, b)
	}
	return t, nil
}

// SamplePeriod derives the spacing of samples within a block from the
// track's sampling rate. It reports false for annotation tracks and any
// other track declaring srate 0, where no period is defined.
func (t *Track) SamplePeriod() (time.Duration, bool) {
	if t.Info.SRate == 0 {
		return 0, false
	}
	return time.Duration(float64(time.Second) / float64(t.Info.SRate)), true
}

func (t *Track) String() string {
	n := 0
	for _, b := range t.Blocks {
		n += b.N()
	}
	start := "-"
	if len(t.Blocks) > 0 {
		start = t.Blocks[0].Time.Format(time.RFC3339Nano)
	}
	return fmt.Sprintf(`======= TRACK INFO =======
name:           %s
unit:           %s
starttime:      %s
measurements:   %d in %d blocks
--------------------------
`, t.Info.Name, t.Info.Unit, start, n, len(t.Blocks))
}

const csvTimeLayout = "2006-01-02 15:04:05.000"

// SaveCSV writes the track as <stem>_signal_<name>_<devid>.csv under dir,
// two columns (timestamp, value) and no header row, gzipped when gzipOut is
// set. It returns the path written.
func (t *Track) SaveCSV(dir, stem string, gzipOut bool) (string, error) {
	name := fmt.Sprintf("%s_signal_%s_%d.csv", stem, t.Info.Name, t.Info.DevID)
	if gzipOut {
		name += ".gz"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "creating output directory")
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	var out io.Writer = f
	var zw *gzip.Writer
	if gzipOut {
		zw = gzip.NewWriter(f)
		out = zw
	}
	w := csv.NewWriter(out)
	if err := t.writeRows(w); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return "", errors.Wrapf(err, "writing %s", path)
		}
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	return path, nil
}

func (t *Track) writeRows(w *csv.Writer) error {
	period, hasPeriod := t.SamplePeriod()
	for _, b := range t.Blocks {
		if b.Values == nil {
			if err := w.Write([]string{b.Time.Format(csvTimeLayout), b.Text}); err != nil {
				return err
			}
			continue
		}
		for i, v := range b.Values {
			ts := b.Time
			if hasPeriod {
				ts = ts.Add(time.Duration(i) * period)
			}
			row := []string{ts.Format(csvTimeLayout), strconv.FormatFloat(v, 'g', -1, 64)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// Selection names the tracks to export: every track, a set of trkids, or a
// set of names.
type Selection struct {
	All    bool
	TrkIDs []int
	Names  []string
}

// SaveTracks exports the selected tracks as CSV files under dir (default
// "converted"). File stems come from the input filename.
func (f *File) SaveTracks(sel Selection, dir string, gzipOut bool) error {
	var tracks []*Track
	switch {
	case sel.All:
		for _, ti := range f.TrackInfo {
			t, err := f.GetTrack(int(ti.TrkID), "")
			if err != nil {
				return err
			}
			tracks = append(tracks, t)
		}
	case len(sel.TrkIDs) > 0 || len(sel.Names) > 0:
		for _, id := range sel.TrkIDs {
			t, err := f.GetTrack(id, "")
			if err != nil {
				return err
			}
			tracks = append(tracks, t)
		}
		for _, name := range sel.Names {
			t, err := f.GetTrack(-1, name)
			if err != nil {
				return err
			}
			tracks = append(tracks, t)
		}
	default:
		return errors.New("vital: SaveTracks expects trkids, names or All")
	}

	if dir == "" {
		dir = "converted"
	}
	for _, t := range tracks {
		path, err := t.SaveCSV(dir, f.Stem, gzipOut)
		if err != nil {
			return err
		}
		log.Infof("Saved %s", path)
	}
	return nil
}
