// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package bytecode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dsnet/compress/bzip2"
)

const (
	MAGIC       = uint32(0x43424653) // "SFBC", little endian
	HEADER_SIZE = 32                 // Size of the container header.
	FLAG_SIGNED = uint32(1 << 0)     // A signature follows the payload.
)

// Header is the fixed size container header.
type Header struct {
	Magic                     uint32 `json:"magic" cbor:"magic"`
	Timestamp                 uint32 `json:"timestamp" cbor:"timestamp"` // Source file modification time, Unix seconds.
	Flags                     uint32 `json:"flags" cbor:"flags"`
	PayloadLength             uint32 `json:"payload_length" cbor:"payload_length"` // Compressed payload length.
	PayloadLengthUncompressed uint32 `json:"payload_length_uncompressed" cbor:"payload_length_uncompressed"`
	PayloadOffset             uint32 `json:"payload_offset" cbor:"payload_offset"`
	SignatureLength           uint32 `json:"signature_length" cbor:"signature_length"`
	SignatureOffset           uint32 `json:"signature_offset" cbor:"signature_offset"`
}

// Signed returns true if the header announces a signature.
func (hdr *Header) Signed() bool {
	return hdr.Flags&FLAG_SIGNED != 0 && hdr.SignatureOffset != 0
}

// MarshalBinary encodes the header.
func (hdr *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, HEADER_SIZE)
	for _, field := range []uint32{
		hdr.Magic,
		hdr.Timestamp,
		hdr.Flags,
		hdr.PayloadLength,
		hdr.PayloadLengthUncompressed,
		hdr.PayloadOffset,
		hdr.SignatureLength,
		hdr.SignatureOffset,
	} {
		buf = le.AppendUint32(buf, field)
	}
	return buf, nil
}

// HasMagic returns true if prefix starts with the container magic.
func HasMagic(prefix []byte) bool {
	return len(prefix) >= 4 && le.Uint32(prefix) == MAGIC
}

// ReadHeader reads a container header. The magic is verified before any
// other header bytes are read.
func ReadHeader(r io.Reader) (hdr Header, err error) {
	var buf [HEADER_SIZE]byte

	_, err = io.ReadFull(r, buf[:4])
	if err != nil {
		err = headerError(0, err)
		return
	}

	hdr.Magic = le.Uint32(buf[:4])
	if hdr.Magic != MAGIC {
		err = &ErrDecode{Section: SECTION_HEADER, Offset: 0, Err: ErrMagic(hdr.Magic)}
		return
	}

	n, err := io.ReadFull(r, buf[4:])
	if err != nil {
		err = headerError(4+n, err)
		return
	}

	fields := []*uint32{
		&hdr.Timestamp,
		&hdr.Flags,
		&hdr.PayloadLength,
		&hdr.PayloadLengthUncompressed,
		&hdr.PayloadOffset,
		&hdr.SignatureLength,
		&hdr.SignatureOffset,
	}
	for n, field := range fields {
		*field = le.Uint32(buf[4+n*4:])
	}

	return
}

func headerError(offset int, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = ErrTruncatedRead
	}
	return &ErrDecode{Section: SECTION_HEADER, Offset: offset, Err: err}
}

// Container is a decoded bytecode container.
type Container struct {
	Header    Header
	Code      *Code  // Top level code object.
	Signature []byte // Signature bytes, if signed. Not verified.
}

// readAt reads size bytes at offset of a seekable stream.
func readAt(r io.ReadSeeker, section string, offset, size uint32) (data []byte, err error) {
	_, err = r.Seek(int64(offset), io.SeekStart)
	if err != nil {
		err = &ErrDecode{Section: section, Offset: int(offset), Err: err}
		return
	}

	data, err = io.ReadAll(io.LimitReader(r, int64(size)))
	if err == nil && len(data) < int(size) {
		err = ErrTruncatedRead
	}
	if err != nil {
		err = &ErrDecode{Section: section, Offset: int(offset) + len(data), Err: err}
		data = nil
		return
	}

	return
}

// Decode a container. The payload is decompressed and its code object, and
// all nested code objects, decoded.
func Decode(r io.ReadSeeker) (ct *Container, err error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return
	}

	packed, err := readAt(r, SECTION_PAYLOAD, hdr.PayloadOffset, hdr.PayloadLength)
	if err != nil {
		return
	}

	payload, err := decompress(packed, hdr.PayloadLengthUncompressed)
	if err != nil {
		err = &ErrDecode{Section: SECTION_PAYLOAD, Offset: int(hdr.PayloadOffset), Err: err}
		return
	}

	var signature []byte
	if hdr.Signed() {
		signature, err = readAt(r, SECTION_SIGNATURE, hdr.SignatureOffset, hdr.SignatureLength)
		if err != nil {
			return
		}
	}

	code, err := Unmarshal(payload)
	if err != nil {
		return
	}

	ct = &Container{
		Header:    hdr,
		Code:      code,
		Signature: signature,
	}

	return
}

func decompress(packed []byte, size uint32) (payload []byte, err error) {
	zr, err := bzip2.NewReader(bytes.NewReader(packed), nil)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrCorruptPayload, err)
		return
	}
	defer zr.Close()

	payload, err = io.ReadAll(io.LimitReader(zr, int64(size)+1))
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrCorruptPayload, err)
		payload = nil
		return
	}

	if len(payload) != int(size) {
		err = fmt.Errorf("%w: %v", ErrCorruptPayload, f("uncompressed size %v, header claims %v", len(payload), size))
		payload = nil
		return
	}

	return
}

// Load decodes the container file at path.
func Load(path string) (ct *Container, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	ct, err = Decode(inf)
	return
}

// Options control container encoding.
type Options struct {
	Timestamp uint32 // Source modification time, Unix seconds.
	Signature []byte // If set, appended after the payload and flagged.
}

// Encode writes code as a container. The payload is bzip2 compressed and
// immediately follows the header.
func Encode(w io.Writer, code *Code, opts Options) (hdr Header, err error) {
	payload, err := code.MarshalBinary()
	if err != nil {
		return
	}

	var packed bytes.Buffer
	zw, err := bzip2.NewWriter(&packed, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	if err != nil {
		return
	}

	_, err = zw.Write(payload)
	if err != nil {
		return
	}

	err = zw.Close()
	if err != nil {
		return
	}

	hdr = Header{
		Magic:                     MAGIC,
		Timestamp:                 opts.Timestamp,
		PayloadLength:             uint32(packed.Len()),
		PayloadLengthUncompressed: uint32(len(payload)),
		PayloadOffset:             HEADER_SIZE,
	}

	if len(opts.Signature) != 0 {
		hdr.Flags |= FLAG_SIGNED
		hdr.SignatureLength = uint32(len(opts.Signature))
		hdr.SignatureOffset = hdr.PayloadOffset + hdr.PayloadLength
	}

	head, err := hdr.MarshalBinary()
	if err != nil {
		return
	}

	for _, data := range [][]byte{head, packed.Bytes(), opts.Signature} {
		_, err = w.Write(data)
		if err != nil {
			return
		}
	}

	return
}

// Save writes code as a container file at path. The header timestamp is
// taken from the modification time of the source file, if it exists.
func Save(path string, source string, code *Code) (err error) {
	var opts Options

	info, err := os.Stat(source)
	if err == nil {
		opts.Timestamp = uint32(info.ModTime().Unix())
	}

	ouf, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() {
		cerr := ouf.Close()
		if err == nil {
			err = cerr
		}
	}()

	_, err = Encode(ouf, code, opts)
	return
}
