package bytecode

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// countingReader counts the bytes read through it.
type countingReader struct {
	io.Reader
	count int
}

func (cr *countingReader) Read(p []byte) (n int, err error) {
	n, err = cr.Reader.Read(p)
	cr.count += n
	return
}

func encodeSample(t *testing.T, opts Options) (code *Code, data []byte) {
	code = sampleCode()

	var buf bytes.Buffer
	hdr, err := Encode(&buf, code, opts)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.PayloadOffset != HEADER_SIZE {
		t.Fatalf("payload offset %v", hdr.PayloadOffset)
	}

	data = buf.Bytes()
	return
}

func TestContainerRoundTrip(t *testing.T) {
	assert := assert.New(t)

	code, data := encodeSample(t, Options{Timestamp: 0x5f5e1000})
	assert.True(HasMagic(data))
	assert.Equal([]byte("SFBC"), data[:4])

	ct, err := Decode(bytes.NewReader(data))
	assert.NoError(err)
	if err != nil {
		return
	}

	assert.Equal(MAGIC, ct.Header.Magic)
	assert.Equal(uint32(0x5f5e1000), ct.Header.Timestamp)
	assert.Equal(uint32(0), ct.Header.Flags)
	assert.False(ct.Header.Signed())
	assert.Equal(uint32(len(data)-HEADER_SIZE), ct.Header.PayloadLength)

	payload, _ := code.MarshalBinary()
	assert.Equal(uint32(len(payload)), ct.Header.PayloadLengthUncompressed)
	assert.True(code.Equal(ct.Code))
	assert.Nil(ct.Signature)
}

func TestContainerSignature(t *testing.T) {
	assert := assert.New(t)

	signature := []byte("-----BEGIN PGP SIGNATURE-----")
	_, data := encodeSample(t, Options{Signature: signature})

	ct, err := Decode(bytes.NewReader(data))
	assert.NoError(err)
	if err != nil {
		return
	}

	assert.True(ct.Header.Signed())
	assert.Equal(FLAG_SIGNED, ct.Header.Flags)
	assert.Equal(signature, ct.Signature)

	// Truncated signature.
	_, err = Decode(bytes.NewReader(data[:len(data)-4]))
	assert.ErrorIs(err, ErrTruncatedRead)
	var decErr *ErrDecode
	assert.True(errors.As(err, &decErr))
	assert.Equal(SECTION_SIGNATURE, decErr.Section)
}

func TestContainerBadMagic(t *testing.T) {
	assert := assert.New(t)

	_, data := encodeSample(t, Options{})
	data[0] = 'X'

	cr := &countingReader{Reader: bytes.NewReader(data)}
	_, err := ReadHeader(cr)
	assert.ErrorIs(err, ErrBadMagic)
	assert.Equal(4, cr.count)

	var magic ErrMagic
	assert.True(errors.As(err, &magic))
	assert.Equal(ErrMagic(0x43424658), magic)

	_, err = Decode(bytes.NewReader(data))
	assert.ErrorIs(err, ErrBadMagic)
	assert.False(HasMagic(data))
	assert.False(HasMagic(data[:2]))
}

func TestContainerTruncatedHeader(t *testing.T) {
	assert := assert.New(t)

	_, data := encodeSample(t, Options{})

	_, err := Decode(bytes.NewReader(data[:2]))
	assert.ErrorIs(err, ErrTruncatedRead)

	_, err = Decode(bytes.NewReader(data[:20]))
	assert.ErrorIs(err, ErrTruncatedRead)
	var decErr *ErrDecode
	assert.True(errors.As(err, &decErr))
	assert.Equal(SECTION_HEADER, decErr.Section)
	assert.Equal(20, decErr.Offset)
}

func TestContainerTruncatedPayload(t *testing.T) {
	assert := assert.New(t)

	_, data := encodeSample(t, Options{})

	_, err := Decode(bytes.NewReader(data[:len(data)-1]))
	assert.ErrorIs(err, ErrTruncatedRead)
	var decErr *ErrDecode
	assert.True(errors.As(err, &decErr))
	assert.Equal(SECTION_PAYLOAD, decErr.Section)
	assert.Equal(len(data)-1, decErr.Offset)
}

func TestContainerCorruptPayload(t *testing.T) {
	assert := assert.New(t)

	_, data := encodeSample(t, Options{})

	// Damage the compressed stream magic.
	broken := bytes.Clone(data)
	broken[HEADER_SIZE] ^= 0xff
	_, err := Decode(bytes.NewReader(broken))
	assert.ErrorIs(err, ErrCorruptPayload)

	// Uncompressed size disagrees with the header.
	broken = bytes.Clone(data)
	broken[16]++
	_, err = Decode(bytes.NewReader(broken))
	assert.ErrorIs(err, ErrCorruptPayload)
	var decErr *ErrDecode
	assert.True(errors.As(err, &decErr))
	assert.Equal(SECTION_PAYLOAD, decErr.Section)
}

func TestContainerSaveLoad(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	source := filepath.Join(dir, "prog.sfa")
	target := filepath.Join(dir, "prog.sfc")

	assert.NoError(os.WriteFile(source, []byte("print\n"), 0o644))
	mtime := time.Unix(1700000000, 0)
	assert.NoError(os.Chtimes(source, mtime, mtime))

	code := sampleCode()
	assert.NoError(Save(target, source, code))

	ct, err := Load(target)
	assert.NoError(err)
	if err != nil {
		return
	}
	assert.Equal(uint32(1700000000), ct.Header.Timestamp)
	assert.True(code.Equal(ct.Code))

	// Missing source, zero timestamp.
	assert.NoError(Save(target, filepath.Join(dir, "missing"), code))
	ct, err = Load(target)
	assert.NoError(err)
	assert.Equal(uint32(0), ct.Header.Timestamp)

	_, err = Load(filepath.Join(dir, "missing"))
	assert.ErrorIs(err, os.ErrNotExist)
}
