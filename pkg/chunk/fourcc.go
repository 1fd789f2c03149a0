package chunk

// FourCC is a four character tag packed big-endian into a uint32
// ("RIFX" == 0x52494658).
type FourCC uint32

// Known tags.
const (
	TagRIFX FourCC = 'R'<<24 | 'I'<<16 | 'F'<<8 | 'X'
	TagXFIR FourCC = 'X'<<24 | 'F'<<16 | 'I'<<8 | 'R'
	TagMV93 FourCC = 'M'<<24 | 'V'<<16 | '9'<<8 | '3'
	TagMC95 FourCC = 'M'<<24 | 'C'<<16 | '9'<<8 | '5'
	TagFGDM FourCC = 'F'<<24 | 'G'<<16 | 'D'<<8 | 'M'
	TagFGDC FourCC = 'F'<<24 | 'G'<<16 | 'D'<<8 | 'C'
	TagImap FourCC = 'i'<<24 | 'm'<<16 | 'a'<<8 | 'p'
	TagMmap FourCC = 'm'<<24 | 'm'<<16 | 'a'<<8 | 'p'
	TagFree FourCC = 'f'<<24 | 'r'<<16 | 'e'<<8 | 'e'
	TagJunk FourCC = 'j'<<24 | 'u'<<16 | 'n'<<8 | 'k'
	TagFver FourCC = 'F'<<24 | 'v'<<16 | 'e'<<8 | 'r'
	TagFcdr FourCC = 'F'<<24 | 'c'<<16 | 'd'<<8 | 'r'
	TagABMP FourCC = 'A'<<24 | 'B'<<16 | 'M'<<8 | 'P'
	TagFGEI FourCC = 'F'<<24 | 'G'<<16 | 'E'<<8 | 'I'
	TagILS  FourCC = 'I'<<24 | 'L'<<16 | 'S'<<8 | ' '

	TagKeyTable   FourCC = 'K'<<24 | 'E'<<16 | 'Y'<<8 | '*'
	TagConfig     FourCC = 'D'<<24 | 'R'<<16 | 'C'<<8 | 'F'
	TagConfigOld  FourCC = 'V'<<24 | 'W'<<16 | 'C'<<8 | 'F'
	TagCastList   FourCC = 'M'<<24 | 'C'<<16 | 's'<<8 | 'L'
	TagCastAssoc  FourCC = 'C'<<24 | 'A'<<16 | 'S'<<8 | '*'
	TagCastMember FourCC = 'C'<<24 | 'A'<<16 | 'S'<<8 | 't'
	TagLctx       FourCC = 'L'<<24 | 'c'<<16 | 't'<<8 | 'x'
	TagLctX       FourCC = 'L'<<24 | 'c'<<16 | 't'<<8 | 'X'
	TagLnam       FourCC = 'L'<<24 | 'n'<<16 | 'a'<<8 | 'm'
	TagLscr       FourCC = 'L'<<24 | 's'<<16 | 'c'<<8 | 'r'
	TagScore      FourCC = 'V'<<24 | 'W'<<16 | 'S'<<8 | 'C'
	TagLabels     FourCC = 'V'<<24 | 'W'<<16 | 'L'<<8 | 'B'
	TagBitmap     FourCC = 'B'<<24 | 'I'<<16 | 'T'<<8 | 'D'
	TagPalette    FourCC = 'C'<<24 | 'L'<<16 | 'U'<<8 | 'T'
	TagText       FourCC = 'S'<<24 | 'T'<<16 | 'X'<<8 | 'T'
	TagSound      FourCC = 's'<<24 | 'n'<<16 | 'd'<<8 | ' '
)

// ParseFourCC packs a string of up to four characters. Shorter strings are
// padded with spaces.
func ParseFourCC(s string) FourCC {
	var b [4]byte
	for i := range b {
		if i < len(s) {
			b[i] = s[i]
		} else {
			b[i] = ' '
		}
	}
	return FourCC(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

func (f FourCC) String() string {
	b := []byte{byte(f >> 24), byte(f >> 16), byte(f >> 8), byte(f)}
	for i, c := range b {
		if c < 0x20 || c > 0x7e {
			b[i] = '?'
		}
	}
	return string(b)
}
