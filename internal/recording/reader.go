package recording

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"cueloop.dev/cueloop/internal/core"
	"cueloop.dev/cueloop/internal/log"
)

// Report describes what the loader encountered on the way through a file.
type Report struct {
	Packets   int  // complete packet records decoded
	Dropped   int  // malformed packet records skipped
	Truncated bool // stream ended inside a record
}

// Load reads a whole recording into memory and returns its packets stably
// sorted by timestamp. Playback needs random access over the sequence to
// compute inter-frame delays, so this is a point load, not a lazy stream.
//
// Errors: core.ErrNotFound when path does not exist, core.ErrInvalidFormat
// on a wrong extension or magic, core.ErrCorruptRecording when a record
// boundary cannot be trusted. A truncated tail record is not an error; the
// complete records before it are returned and Report.Truncated is set.
func Load(path string) (*core.Recording, *Report, error) {
	if !strings.EqualFold(filepath.Ext(path), Ext) {
		return nil, nil, fmt.Errorf("%w: %s", core.ErrInvalidFormat, path)
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", core.ErrNotFound, path)
		}
		return nil, nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(f, magic); err != nil || string(magic) != Magic {
		return nil, nil, fmt.Errorf("%w: bad magic in %s", core.ErrInvalidFormat, path)
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", core.ErrCorruptRecording, path, err)
	}
	defer zr.Close()

	rec, report, err := readRecords(zr)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", core.ErrCorruptRecording, path, err)
	}
	if report.Truncated {
		log.GetLogger().WithField("path", path).Warn("recording ends mid-record, tail dropped")
	}

	core.SortPackets(rec.Packets)
	return rec, report, nil
}

func readRecords(r io.Reader) (*core.Recording, *Report, error) {
	rec := &core.Recording{}
	report := &Report{}
	sawMeta := false

	var hdr [5]byte
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break // clean end of stream
			}
			// Partial header or decompressor hit the torn tail of a
			// killed writer; everything before it is intact.
			report.Truncated = true
			break
		}
		kind := hdr[0]
		length := binary.BigEndian.Uint32(hdr[1:])
		if length > maxRecordLen {
			return nil, nil, fmt.Errorf("record length %d out of bounds", length)
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			report.Truncated = true
			break
		}

		switch kind {
		case recMetadata:
			if sawMeta {
				return nil, nil, errors.New("duplicate metadata record")
			}
			if err := json.Unmarshal(body, &rec.Meta); err != nil {
				return nil, nil, fmt.Errorf("decode metadata: %w", err)
			}
			sawMeta = true
		case recPacket:
			if !sawMeta {
				return nil, nil, errors.New("packet record before metadata")
			}
			var p core.Packet
			if err := json.Unmarshal(body, &p); err != nil || len(p.Data) > core.DMXChannels {
				report.Dropped++
				continue
			}
			rec.Packets = append(rec.Packets, p)
			report.Packets++
		default:
			return nil, nil, fmt.Errorf("unknown record kind 0x%02x", kind)
		}
	}

	if !sawMeta {
		return nil, nil, errors.New("missing metadata record")
	}
	return rec, report, nil
}
