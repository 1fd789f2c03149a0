package cast

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"

	"golang.org/x/image/bmp"
)

// Bitmap is a decompressed BITD payload. Data holds Height rows of Stride
// bytes in the stored pixel format.
type Bitmap struct {
	Width, Height int
	Depth         int
	Stride        int
	Data          []byte
	// Short is set when the compressed stream ended before filling every
	// row; the missing rows are zero.
	Short bool
}

// rowStride returns the bytes per stored row. Rows are padded to an even
// byte count; 32-bit rows are stored as four planes of Width bytes.
func rowStride(info *BitmapInfo) int {
	if info.RowBytes != 0 && info.BitDepth != 32 {
		return int(info.RowBytes)
	}
	w, d := info.Width(), int(info.BitDepth)
	if d == 32 {
		return w * 4
	}
	return (w*d + 15) / 16 * 2
}

// DecodeBitmap decodes a BITD chunk using the member's bitmap info. The
// payload is raw when it is exactly Stride*Height bytes and PackBits
// compressed otherwise.
func DecodeBitmap(data []byte, info *BitmapInfo) (*Bitmap, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: bitmap: missing member info", ErrDecode)
	}
	switch info.BitDepth {
	case 1, 2, 4, 8, 16, 32:
	default:
		return nil, fmt.Errorf("%w: bitmap: unsupported bit depth %d", ErrDecode, info.BitDepth)
	}
	w, h := info.Width(), info.Height()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: bitmap: empty rect %v", ErrDecode, info.Rect)
	}
	b := &Bitmap{Width: w, Height: h, Depth: int(info.BitDepth), Stride: rowStride(info)}
	want := b.Stride * h
	if b.Stride < (w*b.Depth+7)/8 {
		return nil, fmt.Errorf("%w: bitmap: row bytes %d too small for width %d", ErrDecode, b.Stride, w)
	}
	if want > maxShortPad && want > len(data)*maxPackBitsRatio {
		return nil, fmt.Errorf("%w: bitmap: %d bytes of pixels cannot come from %d bytes", ErrDecode, want, len(data))
	}
	if len(data) == want {
		b.Data = append([]byte(nil), data...)
		return b, nil
	}
	b.Data = unpackBits(data, want)
	if len(b.Data) < want {
		b.Short = true
		b.Data = append(b.Data, make([]byte, want-len(b.Data))...)
	}
	return b, nil
}

// maxPackBitsRatio bounds how far a PackBits stream can expand: two bytes
// repeat a value at most 127 times.
const maxPackBitsRatio = 64

// maxShortPad is the largest bitmap padded out regardless of payload size.
const maxShortPad = 1 << 20

// unpackBits expands a run-length stream, stopping at limit bytes. A count
// byte n with 0x101-n > 0x7f starts n+1 literal bytes; otherwise the next
// byte repeats 0x101-n times.
func unpackBits(src []byte, limit int) []byte {
	out := make([]byte, 0, limit)
	for i := 0; i < len(src) && len(out) < limit; {
		n := int(src[i])
		i++
		if 0x101-n > 0x7f {
			n++
			if i+n > len(src) {
				n = len(src) - i
			}
			out = append(out, src[i:i+n]...)
			i += n
			continue
		}
		if i >= len(src) {
			break
		}
		v := src[i]
		i++
		for k := 0; k < 0x101-n; k++ {
			out = append(out, v)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PackBits compresses data in the format read by DecodeBitmap.
func PackBits(data []byte) []byte {
	var out []byte
	for i := 0; i < len(data); {
		run := 1
		for i+run < len(data) && run < 127 && data[i+run] == data[i] {
			run++
		}
		if run >= 2 {
			out = append(out, byte(0x101-run), data[i])
			i += run
			continue
		}
		start := i
		for i < len(data) && i-start < 128 {
			if i+1 < len(data) && data[i+1] == data[i] {
				break
			}
			i++
		}
		if i == start {
			i++
		}
		out = append(out, byte(i-start-1))
		out = append(out, data[start:i]...)
	}
	return out
}

// DefaultPalette returns the palette used when a bitmap has no palette
// member: white-to-black for indexed depths.
func DefaultPalette(depth int) color.Palette {
	if depth > 8 {
		return nil
	}
	n := 1 << depth
	pal := make(color.Palette, n)
	for i := range pal {
		v := uint8(255 - i*255/(n-1))
		pal[i] = color.RGBA{R: v, G: v, B: v, A: 0xff}
	}
	return pal
}

// Index returns the palette index of the pixel at (x, y) for indexed
// depths.
func (b *Bitmap) Index(x, y int) uint8 {
	row := b.Data[y*b.Stride:]
	switch b.Depth {
	case 1, 2, 4:
		bit := x * b.Depth
		shift := 8 - b.Depth - bit%8
		return (row[bit/8] >> shift) & uint8(1<<b.Depth-1)
	case 8:
		return row[x]
	}
	return 0
}

// Image converts the bitmap. Indexed depths use pal, falling back to
// DefaultPalette; 16-bit pixels are x1r5g5b5 and 32-bit rows are A, R, G, B
// planes.
func (b *Bitmap) Image(pal color.Palette) image.Image {
	r := image.Rect(0, 0, b.Width, b.Height)
	if b.Depth <= 8 {
		if len(pal) == 0 {
			pal = DefaultPalette(b.Depth)
		}
		img := image.NewPaletted(r, pal)
		for y := 0; y < b.Height; y++ {
			for x := 0; x < b.Width; x++ {
				idx := b.Index(x, y)
				if int(idx) >= len(pal) {
					idx = uint8(len(pal) - 1)
				}
				img.SetColorIndex(x, y, idx)
			}
		}
		return img
	}
	img := image.NewNRGBA(r)
	for y := 0; y < b.Height; y++ {
		row := b.Data[y*b.Stride:]
		for x := 0; x < b.Width; x++ {
			var c color.NRGBA
			if b.Depth == 16 {
				v := binary.BigEndian.Uint16(row[x*2:])
				c = color.NRGBA{
					R: uint8(v>>10&0x1f) << 3,
					G: uint8(v>>5&0x1f) << 3,
					B: uint8(v&0x1f) << 3,
					A: 0xff,
				}
			} else {
				c = color.NRGBA{R: row[b.Width+x], G: row[2*b.Width+x], B: row[3*b.Width+x], A: 0xff}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// WriteBMP writes the bitmap as a Windows BMP.
func (b *Bitmap) WriteBMP(w io.Writer, pal color.Palette) error {
	if err := bmp.Encode(w, b.Image(pal)); err != nil {
		return fmt.Errorf("encode bmp: %w", err)
	}
	return nil
}
