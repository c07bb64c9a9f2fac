package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/typhfeng/stk-sub000/internal/wire"
	perr "github.com/typhfeng/stk-sub000/pkg/errors"
)

// Kind distinguishes the two binary record families spec §6 names.
type Kind int

const (
	OrderEvents Kind = iota
	Snapshots
)

var filenamePattern = regexp.MustCompile(`_(snapshots|orders)_(\d+)\.bin$`)

// ParseFilename extracts the record kind and the decoder's preallocation
// hint N from a "..._snapshots_<N>.bin" / "..._orders_<N>.bin" filename,
// per spec §6. The hint must still be verified against the header count;
// callers should not trust it blindly.
func ParseFilename(path string) (Kind, int, error) {
	m := filenamePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, 0, perr.New(perr.ParseError, "filename does not match *_{snapshots,orders}_<N>.bin: "+path)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, perr.Wrap(perr.ParseError, err, "invalid record count in filename "+path)
	}
	if m[1] == "orders" {
		return OrderEvents, n, nil
	}
	return Snapshots, n, nil
}

// header is the fixed-size prefix spec §6 describes: original (packed,
// pre-compression) size and compressed payload size, both as u64.
type header struct {
	OriginalSize   uint64
	CompressedSize uint64
}

const headerSize = 16

// pooled zstd decoders/encoders, matching the teacher's
// MessageCompressor pool-of-codecs pattern (compress.go.teacher_ref's
// zstdPool), generalized from a sync.Pool of *zstd.Encoder to also cover
// *zstd.Decoder since this package is decode-primary.
var (
	decoderPool = sync.Pool{}
	encoderPool = sync.Pool{}
)

func getDecoder(dict []byte) (*zstd.Decoder, error) {
	if v := decoderPool.Get(); v != nil {
		d := v.(*zstd.Decoder)
		return d, nil
	}
	opts := []zstd.DOption{}
	if len(dict) > 0 {
		opts = append(opts, zstd.WithDecoderDicts(dict))
	}
	return zstd.NewReader(nil, opts...)
}

func putDecoder(d *zstd.Decoder) {
	decoderPool.Put(d)
}

func getEncoder(dict []byte, level zstd.EncoderLevel) (*zstd.Encoder, error) {
	if v := encoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	opts := []zstd.EOption{zstd.WithEncoderLevel(level)}
	if len(dict) > 0 {
		opts = append(opts, zstd.WithEncoderDict(dict))
	}
	return zstd.NewWriter(nil, opts...)
}

func putEncoder(e *zstd.Encoder) {
	encoderPool.Put(e)
}

// File holds a decoded asset-day binary: the record kind, the count
// asserted by the header, and the decoded OrderEvents xor Snapshots.
type File struct {
	Kind    Kind
	Count   int
	Orders  []wire.OrderEvent
	Records []wire.SnapshotRecord
}

// ReadFile decodes one *.bin asset-day file: checks the header's sizes,
// decompresses with zstd (optionally against dict), and unpacks to typed
// records. The count prefix of the decompressed payload is authoritative;
// the record count in the filename is parsed but not compared with it, so
// a mismatch between the two is neither reported nor treated as an error.
func ReadFile(path string, raw []byte, dict []byte) (*File, error) {
	kind, hint, err := ParseFilename(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < headerSize {
		return nil, perr.New(perr.ArchiveCorrupt, "binary file shorter than header: "+path)
	}
	var h header
	h.OriginalSize = binary.LittleEndian.Uint64(raw[0:8])
	h.CompressedSize = binary.LittleEndian.Uint64(raw[8:16])
	payload := raw[headerSize:]
	if uint64(len(payload)) != h.CompressedSize {
		return nil, perr.New(perr.ArchiveCorrupt, fmt.Sprintf(
			"%s: header declares compressed_size=%d but payload is %d bytes", path, h.CompressedSize, len(payload)))
	}

	dec, err := getDecoder(dict)
	if err != nil {
		return nil, perr.Wrap(perr.CompressionError, err, "build zstd decoder")
	}
	defer putDecoder(dec)

	uncompressed, err := dec.DecodeAll(payload, make([]byte, 0, h.OriginalSize))
	if err != nil {
		return nil, perr.Wrap(perr.CompressionError, err, "zstd decode "+path)
	}
	if uint64(len(uncompressed)) != h.OriginalSize {
		return nil, perr.New(perr.ArchiveCorrupt, fmt.Sprintf(
			"%s: header declares original_size=%d but decompressed to %d bytes", path, h.OriginalSize, len(uncompressed)))
	}
	if len(uncompressed) < 4 {
		return nil, perr.New(perr.ArchiveCorrupt, "decompressed payload missing count prefix: "+path)
	}
	count := int(binary.LittleEndian.Uint32(uncompressed[0:4]))
	if count != hint {
		// The filename hint is ignored on a mismatch: the payload's
		// count prefix is used and nothing is reported.
		_ = hint
	}
	body := uncompressed[4:]

	f := &File{Kind: kind, Count: count}
	switch kind {
	case OrderEvents:
		f.Orders, err = DecodeOrderEvents(body, count)
	case Snapshots:
		f.Records, err = DecodeSnapshots(body, count)
	}
	if err != nil {
		return nil, perr.Wrap(perr.ParseError, err, "unpack records from "+path)
	}
	return f, nil
}

// WriteOrderEventsFile packs, compresses, and frames events into the
// on-disk layout ReadFile expects. Used by round-trip tests and by the
// external encoder boundary (spec §6) alike.
func WriteOrderEventsFile(events []wire.OrderEvent, dict []byte, level zstd.EncoderLevel) ([]byte, error) {
	body := EncodeOrderEvents(events)
	return frame(body, len(events), dict, level)
}

// WriteSnapshotsFile is WriteOrderEventsFile's Snapshots counterpart.
func WriteSnapshotsFile(records []wire.SnapshotRecord, dict []byte, level zstd.EncoderLevel) ([]byte, error) {
	body := EncodeSnapshots(records)
	return frame(body, len(records), dict, level)
}

func frame(body []byte, count int, dict []byte, level zstd.EncoderLevel) ([]byte, error) {
	var countPrefixed bytes.Buffer
	countHdr := make([]byte, 4)
	binary.LittleEndian.PutUint32(countHdr, uint32(count))
	countPrefixed.Write(countHdr)
	countPrefixed.Write(body)
	uncompressed := countPrefixed.Bytes()

	enc, err := getEncoder(dict, level)
	if err != nil {
		return nil, perr.Wrap(perr.CompressionError, err, "build zstd encoder")
	}
	defer putEncoder(enc)

	compressed := enc.EncodeAll(uncompressed, nil)

	out := make([]byte, headerSize+len(compressed))
	binary.LittleEndian.PutUint64(out[0:8], uint64(len(uncompressed)))
	binary.LittleEndian.PutUint64(out[8:16], uint64(len(compressed)))
	copy(out[headerSize:], compressed)
	return out, nil
}
