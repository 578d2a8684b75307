package vital_test

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/kr/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johannesne/govital/vital"
)

func waveFixture(t *testing.T) *vital.File {
	t.Helper()
	ti := numericTrack(2)
	ti.Name = "PLETH"
	ti.Unit = ""
	ti.RecType = vital.RecWave
	ti.RecFmt = vital.FmtWord
	ti.SRate = 2 // 500ms per sample
	ti.ADCGain = 0.5
	ti.ADCOffset = 0

	b := &builder{}
	b.header(3, 0)
	b.trkinfo(ti)
	b.rec(1700000000.0, 2, cat(le32(2), le16(10), le16(20)))
	b.rec(1700000010.0, 2, cat(le32(2), le16(30), le16(40)))

	f, err := decode(b)
	require.NoError(t, err)
	return f
}

func TestTrackBlocks(t *testing.T) {
	f := waveFixture(t)
	trk, err := f.GetTrack(2, "")
	require.NoError(t, err)

	want := []vital.Block{
		{Time: time.Unix(1700000000, 0).UTC(), Values: []float64{5, 10}},
		{Time: time.Unix(1700000010, 0).UTC(), Values: []float64{15, 20}},
	}
	if diff := pretty.Diff(want, trk.Blocks); len(diff) > 0 {
		t.Errorf("blocks differ: %v", diff)
	}
}

func TestSamplePeriod(t *testing.T) {
	f := waveFixture(t)
	trk, err := f.GetTrack(2, "")
	require.NoError(t, err)

	period, ok := trk.SamplePeriod()
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, period)
}

func TestTrackString(t *testing.T) {
	f := waveFixture(t)
	trk, err := f.GetTrack(2, "")
	require.NoError(t, err)

	s := trk.String()
	assert.Contains(t, s, "name:           PLETH")
	assert.Contains(t, s, "measurements:   4 in 2 blocks")
}

func TestSaveCSV(t *testing.T) {
	f := waveFixture(t)
	trk, err := f.GetTrack(2, "")
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := trk.SaveCSV(dir, "case01", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "case01_signal_PLETH_7.csv"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 4)
	// Per-sample timestamps advance by the 500ms sampling period.
	assert.Equal(t, "2023-11-14 22:13:20.000,5", lines[0])
	assert.Equal(t, "2023-11-14 22:13:20.500,10", lines[1])
	assert.Equal(t, "2023-11-14 22:13:30.000,15", lines[2])
	assert.Equal(t, "2023-11-14 22:13:30.500,20", lines[3])
}

func TestSaveCSVGzip(t *testing.T) {
	f := waveFixture(t)
	trk, err := f.GetTrack(2, "")
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := trk.SaveCSV(dir, "case01", true)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "case01_signal_PLETH_7.csv.gz"))

	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()
	zr, err := gzip.NewReader(fh)
	require.NoError(t, err)
	content, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(content), "2023-11-14 22:13:20.000,5\n")
}

func TestSaveCSVAnnotation(t *testing.T) {
	ti := numericTrack(3)
	ti.Name = "EVENT"
	ti.RecType = vital.RecAnnotation
	ti.SRate = 0

	b := &builder{}
	b.header(3, 0)
	b.trkinfo(ti)
	b.rec(1700000000.0, 3, cat(le32(0), strb("intubated")))

	f, err := decode(b)
	require.NoError(t, err)
	trk, err := f.GetTrack(3, "")
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := trk.SaveCSV(dir, "case01", false)
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2023-11-14 22:13:20.000,intubated\n", string(content))
}

func TestSaveTracksSelection(t *testing.T) {
	hr := numericTrack(1)
	art := numericTrack(2)
	art.Name = "ART"

	b := &builder{}
	b.header(3, 0)
	b.trkinfo(hr)
	b.trkinfo(art)
	b.rec(1700000000.0, 1, f32b(72.0))
	b.rec(1700000000.0, 2, f32b(80.0))

	f, err := decode(b)
	require.NoError(t, err)
	f.Stem = "case01"

	t.Run("all", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, f.SaveTracks(vital.Selection{All: true}, dir, false))
		assert.FileExists(t, filepath.Join(dir, "case01_signal_HR_7.csv"))
		assert.FileExists(t, filepath.Join(dir, "case01_signal_ART_7.csv"))
	})

	t.Run("by name", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, f.SaveTracks(vital.Selection{Names: []string{"ART"}}, dir, false))
		assert.FileExists(t, filepath.Join(dir, "case01_signal_ART_7.csv"))
		assert.NoFileExists(t, filepath.Join(dir, "case01_signal_HR_7.csv"))
	})

	t.Run("by id", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, f.SaveTracks(vital.Selection{TrkIDs: []int{1}}, dir, false))
		assert.FileExists(t, filepath.Join(dir, "case01_signal_HR_7.csv"))
	})

	t.Run("empty selection", func(t *testing.T) {
		require.Error(t, f.SaveTracks(vital.Selection{}, t.TempDir(), false))
	})

	t.Run("unknown name", func(t *testing.T) {
		err := f.SaveTracks(vital.Selection{Names: []string{"SPO2"}}, t.TempDir(), false)
		require.ErrorIs(t, err, vital.ErrTrackNotFound)
	})
}
