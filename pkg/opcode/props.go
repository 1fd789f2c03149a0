package opcode

// Property types used as the operand of Get and Set.
const (
	PropMovie     = 0x00 // movie properties and "the last chunk"
	PropCount     = 0x01 // number of chunks
	PropMenu      = 0x02
	PropMenuItem  = 0x03
	PropSound     = 0x04
	PropResource  = 0x05
	PropSprite    = 0x06
	PropAnim      = 0x07
	PropAnim2     = 0x08
	PropCast      = 0x09
	PropField     = 0x0c
	PropCastLib   = 0x0d
	PropStringOps = 0x0e
)

// MovieProps is indexed by the property id of PropMovie. Ids past the end
// of the table select "the last <chunk>".
var MovieProps = []string{
	"floatPrecision",
	"mouseDownScript",
	"mouseUpScript",
	"keyDownScript",
	"keyUpScript",
	"timeoutScript",
	"short time",
	"abbr time",
	"long time",
	"short date",
	"abbr date",
	"long date",
}

// ChunkTypes names the chunk kinds used by PropCount and the last-chunk
// form of PropMovie. Index 0 is unused.
var ChunkTypes = []string{"", "char", "word", "item", "line"}

// SpriteProps is indexed by the property id of PropSprite.
var SpriteProps = []string{
	"",
	"type",
	"backColor",
	"bottom",
	"castNum",
	"constraint",
	"cursor",
	"foreColor",
	"height",
	"immediate",
	"ink",
	"left",
	"lineSize",
	"locH",
	"locV",
	"moveableSprite",
	"pattern",
	"puppet",
	"right",
	"scriptNum",
	"stretch",
	"top",
	"trails",
	"visible",
	"width",
	"blend",
	"scriptInstanceList",
	"loc",
	"rect",
	"member",
}

// AnimProps is indexed by the property id of PropAnim. 0x1c marks
// dontPassEvent and has no name.
var AnimProps = []string{
	"",
	"beepOn",
	"buttonStyle",
	"centerStage",
	"checkBoxAccess",
	"checkboxType",
	"colorDepth",
	"colorQD",
	"exitLock",
	"fixStageSize",
	"fullColorPermit",
	"imageDirect",
	"doubleClick",
	"key",
	"lastClick",
	"lastEvent",
	"keyCode",
	"lastKey",
	"lastRoll",
	"timeoutLapsed",
	"multiSound",
	"pauseState",
	"quickTimePresent",
	"selEnd",
	"selStart",
	"soundEnabled",
	"soundLevel",
	"stageColor",
	"",
	"switchColorDepth",
	"timeoutKeyDown",
	"timeoutLength",
	"timeoutMouse",
	"timeoutPlay",
	"timer",
	"preLoadRAM",
	"videoForWindowsPresent",
	"netPresent",
	"safePlayer",
	"soundKeepDevice",
	"soundMixMedia",
}

// Anim2Props is indexed by the property id of PropAnim2.
var Anim2Props = []string{
	"",
	"perFramework",
	"number of castMembers",
	"number of menus",
	"number of castLibs",
	"number of xtras",
}

// PropName returns the name of a "the" property, or "" if unknown.
func PropName(table []string, id int) string {
	if id < 0 || id >= len(table) {
		return ""
	}
	return table[id]
}
