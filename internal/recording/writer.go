package recording

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"cueloop.dev/cueloop/internal/core"
)

// Writer streams packets into a .cuerec file. Packets are written
// incrementally; the writer never retains them, so memory stays flat for
// arbitrarily long captures.
type Writer struct {
	file    *os.File
	zw      *gzip.Writer
	packets int
	closed  bool
}

// Create opens path, writes the magic header and the metadata record, and
// returns a writer ready for AppendPacket. Missing metadata fields are
// filled in: a fresh UUID and the current time.
func Create(path string, meta core.RecordingMetadata) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	if _, err := f.WriteString(Magic); err != nil {
		f.Close()
		return nil, fmt.Errorf("write magic: %w", err)
	}

	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	w := &Writer{
		file: f,
		zw:   gzip.NewWriter(f),
	}
	if err := w.appendRecord(recMetadata, meta); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// AppendPacket appends one captured packet and flushes it through to the
// file so a crash cannot take completed records with it.
func (w *Writer) AppendPacket(p core.Packet) error {
	if w.closed {
		return fmt.Errorf("recording: writer closed")
	}
	if len(p.Data) > core.DMXChannels {
		return fmt.Errorf("recording: payload %d exceeds %d channels", len(p.Data), core.DMXChannels)
	}
	if err := w.appendRecord(recPacket, p); err != nil {
		return err
	}
	w.packets++
	return nil
}

// PacketCount reports how many packets were appended so far.
func (w *Writer) PacketCount() int { return w.packets }

// Path returns the file the writer is streaming to.
func (w *Writer) Path() string { return w.file.Name() }

func (w *Writer) appendRecord(kind byte, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	var hdr [5]byte
	hdr[0] = kind
	binary.BigEndian.PutUint32(hdr[1:], uint32(len(data)))
	if _, err := w.zw.Write(hdr[:]); err != nil {
		return fmt.Errorf("write record header: %w", err)
	}
	if _, err := w.zw.Write(data); err != nil {
		return fmt.Errorf("write record body: %w", err)
	}
	// Sync flush so every completed record reaches the file. Costs some
	// compression ratio on small records.
	if err := w.zw.Flush(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	return nil
}

// Close finalizes the gzip stream and closes the file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.zw.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("finalize recording: %w", err)
	}
	return w.file.Close()
}
