package cast

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/zurustar/dirplayer/pkg/chunk"
)

// Config is the movie configuration (DRCF / VWCF).
type Config struct {
	Length      uint16
	FileVersion uint16
	Stage       image.Rectangle
	MinMember   uint16
	MaxMember   uint16
	Field9      uint8
	Field10     uint8

	// Pre-D7 layout.
	PreD7Field11    uint16
	PreD7StageColor uint16
	// D7+ layout.
	StageColorRGB          bool
	StageR, StageG, StageB uint8

	CommentFont  uint16
	CommentSize  uint16
	CommentStyle uint16
	BitDepth     uint16
	Field17      uint8
	Field18      uint8
	Field19      uint32
	// RawVersion is the stored director version; Version is the human one.
	RawVersion uint16
	Version    int
	Field21    uint16
	Field22    uint32
	Field23    uint32
	Field24    uint32
	Field25    uint8
	Field26    uint8
	FrameRate  uint16
	Platform   uint16
	Protection uint16
	Field29    uint32
	Checksum   uint32

	// ChecksumOK reports whether Checksum matches ComputeChecksum. A
	// mismatch is informational only.
	ChecksumOK bool
}

const configSize = 68

// DecodeConfig decodes a DRCF or VWCF chunk. The chunk is always big-endian;
// littleEndian selects the container byte order used by the checksum.
func DecodeConfig(data []byte, littleEndian bool) (*Config, error) {
	r := chunk.NewReader(data, binary.BigEndian)
	r.Seek(36)
	raw := r.U16()
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: config: %w", ErrDecode, r.Err())
	}
	ver := HumanVersion(raw)

	r.Seek(0)
	c := &Config{RawVersion: raw, Version: ver}
	c.Length = r.U16()
	c.FileVersion = r.U16()
	top, left := int(r.I16()), int(r.I16())
	bottom, right := int(r.I16()), int(r.I16())
	c.Stage = image.Rect(left, top, right, bottom)
	c.MinMember = r.U16()
	c.MaxMember = r.U16()
	c.Field9 = r.U8()
	c.Field10 = r.U8()
	if ver < 700 {
		c.PreD7Field11 = r.U16()
	} else {
		c.StageG = r.U8()
		c.StageB = r.U8()
	}
	c.CommentFont = r.U16()
	c.CommentSize = r.U16()
	c.CommentStyle = r.U16()
	if ver < 700 {
		c.PreD7StageColor = r.U16()
	} else {
		c.StageColorRGB = r.U8() != 0
		c.StageR = r.U8()
	}
	c.BitDepth = r.U16()
	c.Field17 = r.U8()
	c.Field18 = r.U8()
	c.Field19 = r.U32()
	r.U16() // director version, read above
	c.Field21 = r.U16()
	c.Field22 = r.U32()
	c.Field23 = r.U32()
	c.Field24 = r.U32()
	c.Field25 = r.U8()
	c.Field26 = r.U8()
	c.FrameRate = r.U16()
	c.Platform = r.U16()
	c.Protection = r.U16()
	c.Field29 = r.U32()
	c.Checksum = r.U32()
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: config: %w", ErrDecode, r.Err())
	}
	c.ChecksumOK = c.Checksum == c.ComputeChecksum(littleEndian)
	return c, nil
}

// ComputeChecksum reproduces the player's config checksum.
func (c *Config) ComputeChecksum(littleEndian bool) uint32 {
	check := int64(c.Length) + 1
	check *= int64(c.FileVersion) + 2
	check /= int64(int16(c.Stage.Min.Y)) + 3
	check *= int64(int16(c.Stage.Min.X)) + 4
	check /= int64(int16(c.Stage.Max.Y)) + 5
	check *= int64(int16(c.Stage.Max.X)) + 6
	check -= int64(c.MinMember) + 7
	check *= int64(c.MaxMember) + 8
	check -= int64(c.Field9) + 9
	check -= int64(c.Field10) + 10

	var op11 int64
	switch {
	case c.Version < 700:
		op11 = int64(c.PreD7Field11)
	case littleEndian:
		op11 = (int64(c.StageB)<<8 | int64(c.StageG)) & 0xffff
	default:
		op11 = (int64(c.StageG)<<8 | int64(c.StageB)) & 0xffff
	}
	check += op11 + 11
	check *= int64(c.CommentFont) + 12
	check += int64(c.CommentSize) + 13

	op14 := int64(c.CommentStyle)
	if c.Version < 800 {
		op14 = (int64(c.CommentSize) >> 8) & 0xff
	}
	check *= op14 + 14

	op15 := int64(c.PreD7StageColor)
	if c.Version >= 700 {
		op15 = int64(c.StageR)
	}
	check += op15 + 15
	check += int64(c.BitDepth) + 16
	check += int64(c.Field17) + 17
	check *= int64(c.Field18) + 18
	check += int64(c.Field19) + 19
	check *= int64(c.RawVersion) + 20
	check += int64(c.Field21) + 21
	check += int64(c.Field22) + 22
	check += int64(c.Field23) + 23
	check += int64(c.Field24) + 24
	check *= int64(c.Field25) + 25
	check += int64(c.FrameRate) + 26
	check *= int64(c.Platform) + 27
	check *= int64(c.Protection) * 0xe06
	check += 0xff450000
	check ^= int64(chunk.ParseFourCC("ralf"))
	return uint32(check)
}

// Encode serialises the config, filling in the checksum.
func (c *Config) Encode(littleEndian bool) []byte {
	if c.Version == 0 {
		c.Version = HumanVersion(c.RawVersion)
	}
	c.Length = configSize
	c.Checksum = c.ComputeChecksum(littleEndian)
	w := chunk.NewWriter(binary.BigEndian)
	w.U16(c.Length).U16(c.FileVersion)
	w.I16(int16(c.Stage.Min.Y)).I16(int16(c.Stage.Min.X)).I16(int16(c.Stage.Max.Y)).I16(int16(c.Stage.Max.X))
	w.U16(c.MinMember).U16(c.MaxMember).U8(c.Field9).U8(c.Field10)
	if c.Version < 700 {
		w.U16(c.PreD7Field11)
	} else {
		w.U8(c.StageG).U8(c.StageB)
	}
	w.U16(c.CommentFont).U16(c.CommentSize).U16(c.CommentStyle)
	if c.Version < 700 {
		w.U16(c.PreD7StageColor)
	} else {
		rgb := uint8(0)
		if c.StageColorRGB {
			rgb = 1
		}
		w.U8(rgb).U8(c.StageR)
	}
	w.U16(c.BitDepth).U8(c.Field17).U8(c.Field18).U32(c.Field19)
	w.U16(c.RawVersion).U16(c.Field21).U32(c.Field22).U32(c.Field23).U32(c.Field24)
	w.U8(c.Field25).U8(c.Field26).U16(c.FrameRate).U16(c.Platform).U16(c.Protection)
	w.U32(c.Field29).U32(c.Checksum)
	return w.Bytes()
}
