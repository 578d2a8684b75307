// Package vital decodes .vital binary captures produced by the Vital
// Recorder: a gzip-compressed stream of a fixed header followed by typed,
// length-prefixed packets describing devices, tracks and recorded samples.
package vital

import (
	"bytes"
	"io"
	"time"

	"github.com/johannesne/govital/helpers"
)

// Packet types appearing in the body stream.
const (
	PacketTrkInfo byte = 0
	PacketRec     byte = 1
	PacketCmd     byte = 6
	PacketDevInfo byte = 9
)

// RecType classifies a track's records.
type RecType uint8

const (
	RecWave       RecType = 1
	RecNumeric    RecType = 2
	RecAnnotation RecType = 5
)

func (t RecType) String() string {
	switch t {
	case RecWave:
		return "WAV"
	case RecNumeric:
		return "NUM"
	case RecAnnotation:
		return "STR"
	}
	return "UNKNOWN"
}

// RecFmt is the element format code for a track's raw samples.
type RecFmt uint8

const (
	FmtFloat  RecFmt = 1
	FmtDouble RecFmt = 2
	FmtChar   RecFmt = 3
	FmtByte   RecFmt = 4
	FmtShort  RecFmt = 5
	FmtWord   RecFmt = 6
	FmtLong   RecFmt = 7
	FmtDword  RecFmt = 8
)

// width returns the on-disk element size in bytes, or 0 for an invalid code.
func (f RecFmt) width() int {
	switch f {
	case FmtFloat, FmtLong, FmtDword:
		return 4
	case FmtDouble:
		return 8
	case FmtChar, FmtByte:
		return 1
	case FmtShort, FmtWord:
		return 2
	}
	return 0
}

// Header is the fixed file header. HeaderLen is the authoritative content
// length used by the integrity check; content beyond the known fields is
// reserved and skipped.
type Header struct {
	FormatVer uint32
	HeaderLen uint16
	TZBias    int16 // minutes offset from UTC
	InstID    uint32
	ProgVer   uint32
}

// DevInfo describes one recording device.
type DevInfo struct {
	DevID    uint32
	TypeName string
	DevName  string
	Port     string
}

// TrkInfo declares a track's metadata and the decoding format of its records.
type TrkInfo struct {
	TrkID     uint16
	RecType   RecType
	RecFmt    RecFmt
	Name      string
	Unit      string
	MinVal    float32
	MaxVal    float32
	Color     [4]byte
	SRate     float32
	ADCGain   float64
	ADCOffset float64
	MonType   uint8
	DevID     uint32
}

// Value is the decoded payload of a REC packet.
type Value interface {
	// N is the number of measurements carried (always 1 for numeric and
	// annotation records).
	N() int
}

// Wave is a block of raw waveform samples. Samples are widened to float64,
// which represents every element format exactly.
type Wave struct {
	Samples []float64
}

func (w Wave) N() int { return len(w.Samples) }

// Numeric is a single raw numeric measurement.
type Numeric struct {
	Sample float64
}

func (Numeric) N() int { return 1 }

// Annotation is a single textual event.
type Annotation struct {
	Text string
}

func (Annotation) N() int { return 1 }

// Rec is one timestamped record for a track.
type Rec struct {
	InfoLen uint16
	Time    time.Time
	TrkID   uint16
	Value   Value
}

// Cmd is a control command packet. TrkIDs is populated for CmdOrder only.
type Cmd struct {
	Cmd    byte
	TrkIDs []uint16
}

const (
	CmdOrder       byte = 5
	CmdResetEvents byte = 6
)

// Packet is one framed body packet. Data holds the decoded body (*TrkInfo,
// *Rec, *DevInfo or *Cmd), or the raw bytes for unrecognized types.
type Packet struct {
	Type    byte
	DataLen uint32
	Data    interface{}
}

// File is a fully decoded .vital capture. It is immutable after Decode and
// safe to share across goroutines for reads.
type File struct {
	Header  Header
	Packets []Packet

	// TrackInfo lists TRKINFO payloads in file order, after duplicate
	// EVENT entries have been dropped.
	TrackInfo []TrkInfo
	Recs      []*Rec
	Devs      []DevInfo
	Cmds      []Cmd

	// SummedDatalen is the framed size accounted during decode; it equals
	// the decompressed file size on any successfully decoded file.
	SummedDatalen int64

	// Stem of the input filename, used to name exported CSV files.
	Stem string

	// trkids of dropped duplicate EVENT entries, mapped to the retained one.
	eventAlias map[uint16]uint16
}

// Open reads and decodes the .vital file at path. The filename "-" reads
// from stdin.
func Open(path string) (*File, error) {
	data, err := helpers.FileContentsOrStdIn(path)
	if err != nil {
		return nil, err
	}
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	f.Stem = helpers.Stem(path)
	return f, nil
}

// Decode decodes a gzip-compressed .vital stream from r.
func Decode(r io.Reader) (*File, error) {
	raw, err := gunzip(r)
	if err != nil {
		return nil, err
	}
	d := &decoder{
		r:    &reader{buf: raw},
		file: &File{Stem: "vital"},
		trks: make(map[uint16]TrkInfo),
	}
	return d.decode()
}
