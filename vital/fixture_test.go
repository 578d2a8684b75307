package vital_test

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/klauspost/compress/gzip"

	"github.com/johannesne/govital/vital"
)

// builder assembles the decompressed image of a .vital file; gz() wraps it
// in the gzip container Decode expects.
type builder struct {
	buf bytes.Buffer
}

func le16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func le32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func f32b(v float32) []byte {
	return le32(math.Float32bits(v))
}

func f64b(v float64) []byte {
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v))
}

func strb(s string) []byte {
	return append(le32(uint32(len(s))), s...)
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// header writes the fixed header with the standard 16-byte content area
// (tzbias, inst_id, prog_ver plus 6 reserved bytes).
func (b *builder) header(formatVer uint32, tzbias int16) {
	const headerlen = 16
	b.buf.WriteString("VITA")
	b.buf.Write(le32(formatVer))
	b.buf.Write(le16(headerlen))
	content := cat(le16(uint16(tzbias)), le32(0), le32(0))
	content = append(content, make([]byte, headerlen-len(content))...)
	b.buf.Write(content)
}

func (b *builder) packet(typ byte, body []byte) {
	b.buf.WriteByte(typ)
	b.buf.Write(le32(uint32(len(body))))
	b.buf.Write(body)
}

func (b *builder) trkinfo(ti vital.TrkInfo) {
	body := cat(
		le16(ti.TrkID),
		[]byte{byte(ti.RecType), byte(ti.RecFmt)},
		strb(ti.Name),
		strb(ti.Unit),
		f32b(ti.MinVal),
		f32b(ti.MaxVal),
		ti.Color[:],
		f32b(ti.SRate),
		f64b(ti.ADCGain),
		f64b(ti.ADCOffset),
		[]byte{ti.MonType},
		le32(ti.DevID),
	)
	b.packet(vital.PacketTrkInfo, body)
}

// recBody frames a REC payload behind the standard 10-byte info section
// (timestamp + trkid).
func recBody(dt float64, trkid uint16, payload []byte) []byte {
	return cat(le16(10), f64b(dt), le16(trkid), payload)
}

func (b *builder) rec(dt float64, trkid uint16, payload []byte) {
	b.packet(vital.PacketRec, recBody(dt, trkid, payload))
}

func (b *builder) raw(p []byte) {
	b.buf.Write(p)
}

func (b *builder) gz() []byte {
	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	if _, err := zw.Write(b.buf.Bytes()); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return out.Bytes()
}

func decode(b *builder) (*vital.File, error) {
	return vital.Decode(bytes.NewReader(b.gz()))
}

// numericTrack is the E1-style fixture track: float32 numeric heart rate.
func numericTrack(trkid uint16) vital.TrkInfo {
	return vital.TrkInfo{
		TrkID:     trkid,
		RecType:   vital.RecNumeric,
		RecFmt:    vital.FmtFloat,
		Name:      "HR",
		Unit:      "bpm",
		MinVal:    0,
		MaxVal:    200,
		Color:     [4]byte{255, 255, 255, 255},
		SRate:     1,
		ADCGain:   1,
		ADCOffset: 0,
		MonType:   1,
		DevID:     7,
	}
}
