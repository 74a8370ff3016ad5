package segment

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/iamNilotpal/lattice/internal/block"
	"github.com/iamNilotpal/lattice/internal/codec"
	"github.com/iamNilotpal/lattice/pkg/errors"
	"github.com/iamNilotpal/lattice/pkg/options"
	"github.com/iamNilotpal/lattice/pkg/schema"
)

// BlockInfo is the index entry for one block: its bounding box in coordinate
// space and the byte position of its tagged frame within the segment file.
type BlockInfo struct {
	MinBounds []schema.Datum
	MaxBounds []schema.Datum
	BlockPos  uint64
}

// Segment is the in-memory view of one segment file: its identity, its
// current path, and the decoded block index. Block payloads are not held
// here; they are fetched on demand with LoadOneBlock.
type Segment struct {
	ID        ID
	Path      string
	BlockInfo []BlockInfo

	log *zap.SugaredLogger
}

// countingWriter tracks the absolute byte offset of everything written
// through it, so block positions can be recorded while streaming the file.
type countingWriter struct {
	w   io.Writer
	pos uint64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.pos += uint64(n)
	return n, err
}

// Create writes the given blocks to a new segment file under the temporary
// name for id, and returns the Segment describing it. Blocks with no rows
// are skipped; they have no bounds to index.
//
// The file is laid out as a tagged frame per block, then the tagged index
// frame, then the end tag followed by the index frame's byte offset. The
// trailer is written last, so a crash mid-write leaves a file that fails to
// load rather than one that lies.
func Create(
	log *zap.SugaredLogger,
	databasePath string,
	id ID,
	blocks []*block.Block,
	opts *options.Options,
) (*Segment, error) {
	path := Path(databasePath, id, false)

	segment := &Segment{ID: id, Path: path, log: log}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, opts.FilePermission)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, filepath.Base(path))
	}
	defer file.Close()

	cw := &countingWriter{w: file}

	for _, blk := range blocks {
		minBounds, ok := blk.StartPoint()
		if !ok {
			log.Debugw("Skipping empty block", "segment", id)
			continue
		}
		maxBounds, _ := blk.EndPoint()

		blockPos := cw.pos
		if err := codec.WriteTag(cw, codec.TagBlock); err != nil {
			return nil, err
		}
		if err := blk.Encode(cw, opts.CompressionLevel); err != nil {
			return nil, err
		}

		segment.BlockInfo = append(segment.BlockInfo, BlockInfo{
			MinBounds: minBounds,
			MaxBounds: maxBounds,
			BlockPos:  blockPos,
		})
	}

	segmentInfoPos := cw.pos
	if err := codec.WriteTag(cw, codec.TagSegment); err != nil {
		return nil, err
	}
	if err := segment.encodeBlockInfo(cw, opts.CompressionLevel); err != nil {
		return nil, err
	}

	if err := codec.WriteTag(cw, codec.TagEnd); err != nil {
		return nil, err
	}
	if err := codec.WriteUint64(cw, segmentInfoPos); err != nil {
		return nil, err
	}

	if opts.SyncOnFlush {
		if err := file.Sync(); err != nil {
			return nil, errors.ClassifyWriteError(err, path, int64(cw.pos))
		}
	}
	if err := file.Close(); err != nil {
		return nil, errors.ClassifyWriteError(err, path, int64(cw.pos))
	}

	log.Debugw("Wrote segment file",
		"segment", id,
		"path", path,
		"blocks", len(segment.BlockInfo),
		"bytes", cw.pos,
	)

	return segment, nil
}

// Load opens the segment file for id and decodes its block index. It tries
// the visible filename first and falls back to the temporary one, so a
// transaction can re-read segments it has staged but not yet committed.
// Block payloads are not read.
func Load(log *zap.SugaredLogger, databasePath string, id ID) (*Segment, error) {
	path := Path(databasePath, id, true)
	if _, err := os.Stat(path); err != nil {
		path = Path(databasePath, id, false)
	}

	segment := &Segment{ID: id, Path: path, log: log}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, filepath.Base(path))
	}
	defer file.Close()

	// The trailer is the last tag plus the index offset. Anything shorter
	// is a file that never finished writing.
	const endSize = codec.TagLength + 8
	if _, err := file.Seek(-endSize, io.SeekEnd); err != nil {
		return nil, errors.NewDataError(err, errors.ErrorCodeSegmentCorrupted, "Segment file has no trailer").
			WithSegment(id.String())
	}

	trailer := bufio.NewReader(file)
	if err := codec.ReadExpectedTag(trailer, codec.TagEnd); err != nil {
		return nil, annotate(err, id)
	}
	segmentInfoPos, err := codec.ReadUint64(trailer)
	if err != nil {
		return nil, annotate(err, id)
	}

	if _, err := file.Seek(int64(segmentInfoPos), io.SeekStart); err != nil {
		return nil, errors.NewDataError(err, errors.ErrorCodeSegmentCorrupted, "Segment index offset is unseekable").
			WithSegment(id.String()).WithOffset(int64(segmentInfoPos))
	}

	src := bufio.NewReader(file)
	if err := codec.ReadExpectedTag(src, codec.TagSegment); err != nil {
		return nil, annotate(err, id)
	}
	if err := segment.decodeBlockInfo(src); err != nil {
		return nil, annotate(err, id)
	}

	return segment, nil
}

// NumBlocks returns the number of blocks the segment holds.
func (s *Segment) NumBlocks() int {
	return len(s.BlockInfo)
}

// MinBounds returns the minimum coordinate across all blocks of the
// segment. The second result is false for a segment with no blocks.
func (s *Segment) MinBounds() ([]schema.Datum, bool) {
	if len(s.BlockInfo) == 0 {
		return nil, false
	}

	numDims := len(s.BlockInfo[0].MinBounds)
	min := append([]schema.Datum(nil), s.BlockInfo[0].MinBounds...)
	for _, info := range s.BlockInfo[1:] {
		if schema.ComparePoints(numDims, info.MinBounds, min) < 0 {
			copy(min, info.MinBounds)
		}
	}
	return min, true
}

// LoadOneBlock reads and decodes a single block's payload from the file.
func (s *Segment) LoadOneBlock(blockNum BlockNum) (*block.Block, error) {
	if int(blockNum) >= len(s.BlockInfo) {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "Block number out of range",
		).WithField("blockNum").WithRule("range").WithProvided(blockNum).WithExpected(len(s.BlockInfo))
	}

	file, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, s.Path, filepath.Base(s.Path))
	}
	defer file.Close()

	blockPos := s.BlockInfo[blockNum].BlockPos
	if _, err := file.Seek(int64(blockPos), io.SeekStart); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to seek to block").
			WithSegment(s.ID.String()).WithPath(s.Path).WithOffset(int64(blockPos))
	}

	src := bufio.NewReader(file)
	if err := codec.ReadExpectedTag(src, codec.TagBlock); err != nil {
		return nil, annotate(err, s.ID)
	}

	blk := block.New(0)
	if err := blk.Decode(src); err != nil {
		return nil, annotate(err, s.ID)
	}

	// The decompressor may hold one byte of the stream hostage; realign on
	// the tag prefix of whatever follows this block.
	if err := codec.SkipToNextTag(src); err != nil {
		return nil, annotate(err, s.ID)
	}

	return blk, nil
}

// MakeVisible renames the segment file from its temporary name to its
// visible one. This is the durable commit step for the segment.
func (s *Segment) MakeVisible(databasePath string) error {
	newPath := Path(databasePath, s.ID, true)
	if err := os.Rename(s.Path, newPath); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to rename segment").
			WithSegment(s.ID.String()).WithPath(s.Path).
			WithDetail("newPath", newPath)
	}
	s.Path = newPath
	s.log.Debugw("Made segment visible", "segment", s.ID, "path", newPath)
	return nil
}

// Delete removes the segment file.
func (s *Segment) Delete() error {
	if err := os.Remove(s.Path); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to delete segment").
			WithSegment(s.ID.String()).WithPath(s.Path)
	}
	return nil
}

// encodeBlockInfo writes the block index as one compressed frame: block
// count, dimension count, then per block the min bounds, max bounds and
// file position.
func (s *Segment) encodeBlockInfo(w io.Writer, level int) error {
	fw, err := codec.NewFrameWriter(w, level)
	if err != nil {
		return err
	}

	numDims := 0
	if len(s.BlockInfo) > 0 {
		numDims = len(s.BlockInfo[0].MinBounds)
	}

	if err := fw.WriteUint16(uint16(len(s.BlockInfo))); err != nil {
		return err
	}
	if err := fw.WriteUint16(uint16(numDims)); err != nil {
		return err
	}
	for _, info := range s.BlockInfo {
		for _, dimVal := range info.MinBounds {
			if err := fw.WriteUint64(dimVal); err != nil {
				return err
			}
		}
		for _, dimVal := range info.MaxBounds {
			if err := fw.WriteUint64(dimVal); err != nil {
				return err
			}
		}
		if err := fw.WriteUint64(info.BlockPos); err != nil {
			return err
		}
	}

	return fw.Close()
}

// decodeBlockInfo reads the block index frame written by encodeBlockInfo.
func (s *Segment) decodeBlockInfo(src *bufio.Reader) error {
	fr, err := codec.OpenFrame(src)
	if err != nil {
		return err
	}

	numBlocks, err := fr.ReadUint16()
	if err != nil {
		return err
	}
	numDims, err := fr.ReadUint16()
	if err != nil {
		return err
	}

	s.BlockInfo = make([]BlockInfo, 0, numBlocks)
	for i := 0; i < int(numBlocks); i++ {
		info := BlockInfo{
			MinBounds: make([]schema.Datum, numDims),
			MaxBounds: make([]schema.Datum, numDims),
		}
		for d := 0; d < int(numDims); d++ {
			if info.MinBounds[d], err = fr.ReadUint64(); err != nil {
				return err
			}
		}
		for d := 0; d < int(numDims); d++ {
			if info.MaxBounds[d], err = fr.ReadUint64(); err != nil {
				return err
			}
		}
		if info.BlockPos, err = fr.ReadUint64(); err != nil {
			return err
		}
		s.BlockInfo = append(s.BlockInfo, info)
	}

	return fr.Close()
}

// annotate stamps the segment id onto storage and data errors bubbling out
// of lower layers.
func annotate(err error, id ID) error {
	if se, ok := errors.AsStorageError(err); ok && se.Segment() == "" {
		se.WithSegment(id.String())
	}
	if de, ok := errors.AsDataError(err); ok && de.Segment() == "" {
		de.WithSegment(id.String())
	}
	return err
}
