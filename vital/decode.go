package vital

import (
	"fmt"
)

const signature = "VITA"

// Integrity accounting (see the framing check at the end of decode):
// each packet costs its datalen plus the 5-byte type+datalen prefix, and
// the header costs headerlen plus the 10 bytes preceding the headerlen
// field's coverage (4-byte signature, 4-byte format_ver, 2-byte headerlen).
const (
	packetOverhead = 5
	headerOverhead = 10
)

// decoder carries the parse state for a single file: the cursor, the model
// under construction, and the track-format registry consulted by REC
// decoding. Nothing is shared between invocations.
type decoder struct {
	r    *reader
	file *File
	trks map[uint16]TrkInfo
}

func (d *decoder) decode() (*File, error) {
	total := int64(len(d.r.buf))
	if err := d.header(); err != nil {
		return nil, err
	}
	for {
		done, err := d.packet()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	d.dedupEvents()

	d.file.SummedDatalen += int64(d.file.Header.HeaderLen) + headerOverhead
	if d.file.SummedDatalen != total {
		return nil, IntegrityError{Summed: d.file.SummedDatalen, FileSize: total}
	}
	return d.file, nil
}

func (d *decoder) header() error {
	sig, err := d.r.take(len(signature))
	if err != nil {
		return err
	}
	if string(sig) != signature {
		return fmt.Errorf("%w: %q", ErrBadSignature, sig)
	}
	h := &d.file.Header
	if h.FormatVer, err = d.r.u32(); err != nil {
		return err
	}
	if h.HeaderLen, err = d.r.u16(); err != nil {
		return err
	}
	// headerlen bytes of content follow; fields beyond the known three are
	// reserved and skipped.
	body, err := d.r.sub(int(h.HeaderLen))
	if err != nil {
		return err
	}
	if h.TZBias, err = body.i16(); err != nil {
		return err
	}
	if h.InstID, err = body.u32(); err != nil {
		return err
	}
	if h.ProgVer, err = body.u32(); err != nil {
		return err
	}
	return nil
}

// packet reads one framed packet. It reports done at natural EOF, or when a
// tail shorter than a packet prefix remains; the integrity check reports the
// latter as lost data. A short read inside a declared body is fatal.
func (d *decoder) packet() (done bool, err error) {
	if d.r.remaining() < packetOverhead {
		return true, nil
	}
	typ, err := d.r.u8()
	if err != nil {
		return false, err
	}
	datalen, err := d.r.u32()
	if err != nil {
		return false, err
	}
	body, err := d.r.sub(int(datalen))
	if err != nil {
		return false, err
	}

	pkt := Packet{Type: typ, DataLen: datalen}
	switch typ {
	case PacketTrkInfo:
		ti, err := d.trkinfo(body)
		if err != nil {
			return false, err
		}
		pkt.Data = ti
	case PacketRec:
		rec, err := d.rec(body, datalen)
		if err != nil {
			return false, err
		}
		pkt.Data = rec
	case PacketCmd:
		cmd, err := d.cmd(body)
		if err != nil {
			return false, err
		}
		pkt.Data = cmd
	case PacketDevInfo:
		dev, err := d.devinfo(body)
		if err != nil {
			return false, err
		}
		pkt.Data = dev
	default:
		// Unknown types are skipped wholesale; their datalen still enters
		// the framing sum, so the integrity check stays consistent.
		log.Debugf("skipping unknown packet type %d (%d bytes)", typ, datalen)
		pkt.Data = append([]byte(nil), body.buf...)
	}
	d.file.Packets = append(d.file.Packets, pkt)
	d.file.SummedDatalen += int64(datalen) + packetOverhead
	log.Debugf("data read: %d of %d bytes", d.r.pos, len(d.r.buf))
	return false, nil
}

// trkinfo decodes a TRKINFO body and registers it. A duplicate trkid
// overwrites the registry entry (later declarations drive later records)
// but every declaration stays in the exposed list.
func (d *decoder) trkinfo(body *reader) (*TrkInfo, error) {
	var ti TrkInfo
	var err error
	if ti.TrkID, err = body.u16(); err != nil {
		return nil, err
	}
	rt, err := body.u8()
	if err != nil {
		return nil, err
	}
	ti.RecType = RecType(rt)
	rf, err := body.u8()
	if err != nil {
		return nil, err
	}
	ti.RecFmt = RecFmt(rf)
	if ti.RecFmt.width() == 0 {
		return nil, fmt.Errorf("%w: track %d declares recfmt %d", ErrUnknownRecFmt, ti.TrkID, rf)
	}
	if ti.Name, err = body.str(); err != nil {
		return nil, err
	}
	if ti.Unit, err = body.str(); err != nil {
		return nil, err
	}
	if ti.MinVal, err = body.f32(); err != nil {
		return nil, err
	}
	if ti.MaxVal, err = body.f32(); err != nil {
		return nil, err
	}
	c, err := body.take(4)
	if err != nil {
		return nil, err
	}
	copy(ti.Color[:], c)
	if ti.SRate, err = body.f32(); err != nil {
		return nil, err
	}
	if ti.ADCGain, err = body.f64(); err != nil {
		return nil, err
	}
	if ti.ADCOffset, err = body.f64(); err != nil {
		return nil, err
	}
	if ti.MonType, err = body.u8(); err != nil {
		return nil, err
	}
	if ti.DevID, err = body.u32(); err != nil {
		return nil, err
	}

	d.trks[ti.TrkID] = ti
	d.file.TrackInfo = append(d.file.TrackInfo, ti)
	return &ti, nil
}

// rec decodes a REC body. The variant payload is bounded to
// datalen - infolen - 2 bytes; infolen is a self-describing prefix covering
// the timestamp and trkid (plus any reserved info bytes), so the budget is
// whatever follows the info section. Surplus payload bytes are padding.
func (d *decoder) rec(body *reader, datalen uint32) (*Rec, error) {
	rec := &Rec{}
	var err error
	if rec.InfoLen, err = body.u16(); err != nil {
		return nil, err
	}
	info, err := body.sub(int(rec.InfoLen))
	if err != nil {
		return nil, err
	}
	if rec.Time, err = info.timestamp(); err != nil {
		return nil, err
	}
	if rec.TrkID, err = info.u16(); err != nil {
		return nil, err
	}

	ti, ok := d.trks[rec.TrkID]
	if !ok {
		return nil, fmt.Errorf("%w: trkid %d", ErrUnknownTrack, rec.TrkID)
	}

	switch ti.RecType {
	case RecWave:
		num, err := body.u32()
		if err != nil {
			return nil, err
		}
		width := ti.RecFmt.width()
		if int(num)*width > body.remaining() {
			return nil, fmt.Errorf("%w: %d samples of %d bytes exceed %d-byte payload",
				ErrTruncated, num, width, body.remaining())
		}
		samples := make([]float64, num)
		for i := range samples {
			if samples[i], err = body.element(ti.RecFmt); err != nil {
				return nil, err
			}
		}
		rec.Value = Wave{Samples: samples}
	case RecNumeric:
		v, err := body.element(ti.RecFmt)
		if err != nil {
			return nil, err
		}
		rec.Value = Numeric{Sample: v}
	case RecAnnotation:
		if _, err := body.u32(); err != nil { // unused
			return nil, err
		}
		s, err := body.str()
		if err != nil {
			return nil, err
		}
		rec.Value = Annotation{Text: s}
	default:
		return nil, fmt.Errorf("%w: %d (track %d %q)", ErrUnknownRecType, ti.RecType, ti.TrkID, ti.Name)
	}

	d.file.Recs = append(d.file.Recs, rec)
	return rec, nil
}

func (d *decoder) cmd(body *reader) (*Cmd, error) {
	c, err := body.u8()
	if err != nil {
		return nil, err
	}
	cmd := &Cmd{Cmd: c}
	if c == CmdOrder {
		cnt, err := body.u16()
		if err != nil {
			return nil, err
		}
		cmd.TrkIDs = make([]uint16, cnt)
		for i := range cmd.TrkIDs {
			if cmd.TrkIDs[i], err = body.u16(); err != nil {
				return nil, err
			}
		}
	}
	d.file.Cmds = append(d.file.Cmds, *cmd)
	return cmd, nil
}

func (d *decoder) devinfo(body *reader) (*DevInfo, error) {
	var dev DevInfo
	var err error
	if dev.DevID, err = body.u32(); err != nil {
		return nil, err
	}
	if dev.TypeName, err = body.str(); err != nil {
		return nil, err
	}
	if dev.DevName, err = body.str(); err != nil {
		return nil, err
	}
	if dev.Port, err = body.str(); err != nil {
		return nil, err
	}
	d.file.Devs = append(d.file.Devs, dev)
	return &dev, nil
}

// eventTrackName is the annotation track the recorder is known to duplicate
// in TRKINFO.
const eventTrackName = "EVENT"

// dedupEvents drops every EVENT declaration after the first from the exposed
// list. Records referencing a dropped trkid still attach to the retained
// track through the alias map.
func (d *decoder) dedupEvents() {
	seen := false
	var retained uint16
	kept := d.file.TrackInfo[:0]
	for _, ti := range d.file.TrackInfo {
		if ti.Name == eventTrackName {
			if seen {
				if ti.TrkID != retained {
					if d.file.eventAlias == nil {
						d.file.eventAlias = make(map[uint16]uint16)
					}
					d.file.eventAlias[ti.TrkID] = retained
				}
				log.Debugf("dropping duplicate EVENT track %d (keeping %d)", ti.TrkID, retained)
				continue
			}
			seen, retained = true, ti.TrkID
		}
		kept = append(kept, ti)
	}
	d.file.TrackInfo = kept
}
