// Package codec implements the byte-level building blocks of the segment
// file format: six-byte tags with the "MD:" prefix, big-endian integer
// primitives, and the compressed frames that carry block and segment-info
// payloads.
//
// Compressed frames are self-terminating streams. The decompressor is given
// a buffered byte reader so it consumes exactly the frame it decodes, but the
// format tolerates one byte of slack: after a frame, SkipToNextTag advances
// the reader by zero or one bytes until the tag prefix lines up, and reports
// a data error if it cannot.
package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/iamNilotpal/lattice/pkg/errors"
)

// Tag identifies the kind of region that follows it in a segment file.
type Tag string

const (
	// TagBlock precedes a compressed block payload.
	TagBlock Tag = "MD:BLK"
	// TagSegment precedes the compressed segment-info table.
	TagSegment Tag = "MD:SEG"
	// TagEnd precedes the trailing offset of the segment-info table.
	TagEnd Tag = "MD:END"
)

const (
	// TagLength is the byte length of every tag.
	TagLength = 6
	// TagPrefix is the common prefix of every tag.
	TagPrefix = "MD:"
	// TagPrefixLength is the byte length of TagPrefix.
	TagPrefixLength = 3
)

// WriteTag writes a tag to w.
func WriteTag(w io.Writer, tag Tag) error {
	if _, err := w.Write([]byte(tag)); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to write tag").
			WithDetail("tag", string(tag))
	}
	return nil
}

// ReadTag reads the next six bytes from r and returns them as a Tag,
// verifying that they form one of the known tags.
func ReadTag(r io.Reader) (Tag, error) {
	var buf [TagLength]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return "", errors.NewDataError(err, errors.ErrorCodeUnexpectedEOF, "Insufficient data for tag")
	}

	tag := Tag(buf[:])
	switch tag {
	case TagBlock, TagSegment, TagEnd:
		return tag, nil
	}
	return "", errors.NewDataError(nil, errors.ErrorCodeBadTag, "Unknown tag").
		WithTag(string(buf[:]))
}

// ReadExpectedTag reads a tag from r and verifies it is the expected one.
func ReadExpectedTag(r io.Reader, expected Tag) error {
	tag, err := ReadTag(r)
	if err != nil {
		return err
	}
	if tag != expected {
		return errors.NewDataError(nil, errors.ErrorCodeBadTag, "Unexpected tag").
			WithTag(string(tag)).
			WithDetail("expected", string(expected))
	}
	return nil
}

// SkipToNextTag realigns the reader on the tag prefix after a decompressed
// frame. The decompressor may leave exactly one byte of the stream behind;
// if the prefix is not already at the current position the reader advances
// one byte and checks again. Anything further is a data error.
func SkipToNextTag(r *bufio.Reader) error {
	ok, err := prefixAtCurrent(r)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if _, err := r.Discard(1); err != nil {
		return errors.NewDataError(err, errors.ErrorCodeMissingTagPrefix, "Couldn't find tag prefix")
	}

	ok, err = prefixAtCurrent(r)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewDataError(nil, errors.ErrorCodeMissingTagPrefix, "Couldn't find tag prefix")
	}
	return nil
}

// prefixAtCurrent peeks at the next three bytes without consuming them and
// reports whether they equal the tag prefix.
func prefixAtCurrent(r *bufio.Reader) (bool, error) {
	buf, err := r.Peek(TagPrefixLength)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, errors.NewDataError(err, errors.ErrorCodeUnexpectedEOF, "Stream ended while looking for tag prefix")
		}
		return false, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to read tag prefix")
	}
	return bytes.Equal(buf, []byte(TagPrefix)), nil
}

// WriteUint64 writes v to w in big-endian order, uncompressed. Used for the
// segment trailer's offset field.
func WriteUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to write integer")
	}
	return nil
}

// ReadUint64 reads a big-endian uint64 from r, uncompressed.
func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.NewDataError(err, errors.ErrorCodeUnexpectedEOF, "Insufficient data for integer")
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// FrameWriter compresses one payload region of a segment file. Close must be
// called to terminate the stream before anything else is written after it.
type FrameWriter struct {
	zw *zlib.Writer
}

// NewFrameWriter starts a compressed frame on w at the given level.
func NewFrameWriter(w io.Writer, level int) (*FrameWriter, error) {
	zw, err := zlib.NewWriterLevel(w, level)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to start compressed frame").
			WithDetail("level", level)
	}
	return &FrameWriter{zw: zw}, nil
}

// WriteUint16 writes v into the frame in big-endian order.
func (fw *FrameWriter) WriteUint16(v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return fw.WriteBytes(buf[:])
}

// WriteUint32 writes v into the frame in big-endian order.
func (fw *FrameWriter) WriteUint32(v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return fw.WriteBytes(buf[:])
}

// WriteUint64 writes v into the frame in big-endian order.
func (fw *FrameWriter) WriteUint64(v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return fw.WriteBytes(buf[:])
}

// WriteBytes writes p into the frame.
func (fw *FrameWriter) WriteBytes(p []byte) error {
	if _, err := fw.zw.Write(p); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to write compressed frame")
	}
	return nil
}

// Close terminates the frame, flushing all compressed bytes to the
// underlying writer.
func (fw *FrameWriter) Close() error {
	if err := fw.zw.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to finish compressed frame")
	}
	return nil
}

// FrameReader decompresses one payload region of a segment file. The source
// must be a buffered reader so the decompressor consumes only the bytes of
// its own stream; after Close the source is positioned for SkipToNextTag.
type FrameReader struct {
	src *bufio.Reader
	zr  io.ReadCloser
}

// OpenFrame starts decoding a compressed frame at the current position of
// src.
func OpenFrame(src *bufio.Reader) (*FrameReader, error) {
	zr, err := zlib.NewReader(src)
	if err != nil {
		return nil, errors.NewDataError(err, errors.ErrorCodeData, "Failed to open compressed frame")
	}
	return &FrameReader{src: src, zr: zr}, nil
}

// ReadUint16 reads a big-endian uint16 from the frame.
func (fr *FrameReader) ReadUint16() (uint16, error) {
	var buf [2]byte
	if err := fr.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// ReadUint32 reads a big-endian uint32 from the frame.
func (fr *FrameReader) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := fr.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadUint64 reads a big-endian uint64 from the frame.
func (fr *FrameReader) ReadUint64() (uint64, error) {
	var buf [8]byte
	if err := fr.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// ReadFull fills p from the frame, failing if the frame ends early.
func (fr *FrameReader) ReadFull(p []byte) error {
	if _, err := io.ReadFull(fr.zr, p); err != nil {
		return errors.NewDataError(err, errors.ErrorCodeUnexpectedEOF, "Compressed frame ended early")
	}
	return nil
}

// Close drains the frame to its end, consuming the stream's trailing
// checksum so the source reader lands on the byte after the frame, then
// verifies and releases the decompressor.
func (fr *FrameReader) Close() error {
	if _, err := io.Copy(io.Discard, fr.zr); err != nil {
		return errors.NewDataError(err, errors.ErrorCodeData, "Failed to drain compressed frame")
	}
	if err := fr.zr.Close(); err != nil {
		return errors.NewDataError(err, errors.ErrorCodeData, "Compressed frame failed verification")
	}
	return nil
}
