package vital

import (
	"errors"
	"fmt"
)

// Structural errors. Parsing is strict: any of these aborts the decode.
var (
	ErrCorruptContainer = errors.New("vital: corrupt gzip container")
	ErrBadSignature     = errors.New("vital: bad signature")
	ErrTruncated        = errors.New("vital: truncated stream")
	ErrUnknownRecType   = errors.New("vital: unknown rec type")
	ErrUnknownRecFmt    = errors.New("vital: unknown rec format")
	ErrUnknownTrack     = errors.New("vital: record references unknown track")
	ErrEncoding         = errors.New("vital: invalid UTF-8 in string field")
)

// Track lookup errors.
var (
	ErrTrackNotFound  = errors.New("vital: track not found")
	ErrAmbiguousTrack = errors.New("vital: ambiguous track name")
)

// IntegrityError reports that the summed framed sizes disagree with the
// decompressed file size. It means packets were lost or mis-framed.
type IntegrityError struct {
	Summed   int64
	FileSize int64
}

func (e IntegrityError) Error() string {
	return fmt.Sprintf("vital: framing mismatch: summed=%d; file size=%d", e.Summed, e.FileSize)
}
