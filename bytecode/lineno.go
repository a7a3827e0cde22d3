package bytecode

// LineEntry maps an instruction offset to a source line.
type LineEntry struct {
	Offset int `json:"offset" cbor:"offset"` // Instruction offset.
	LineNo int `json:"lineno" cbor:"lineno"` // Source line number.
}

// Each delta is stored as zero or more 0xFF bytes worth 127 each, followed
// by a byte below 0x80 holding the remainder.
const (
	lineDeltaMore = 0x80
	lineDeltaMax  = 0x7f
)

// EncodeLineTable encodes instruction line entries. The first entry must
// be at offset 0; its line becomes the table start line. Entries that do
// not advance both the offset and the line are folded into the previous one.
func EncodeLineTable(entries []LineEntry) (start uint32, table []byte) {
	if len(entries) == 0 {
		return
	}

	start = uint32(entries[0].LineNo)
	prevOffset := 0
	prevLine := entries[0].LineNo

	for _, entry := range entries[1:] {
		if entry.Offset <= prevOffset || entry.LineNo <= prevLine {
			continue
		}
		table = appendLineDelta(table, entry.Offset-prevOffset)
		table = appendLineDelta(table, entry.LineNo-prevLine)
		prevOffset = entry.Offset
		prevLine = entry.LineNo
	}

	table = append(table, 0)

	return
}

func appendLineDelta(table []byte, delta int) []byte {
	for delta > lineDeltaMax {
		table = append(table, lineDeltaMore|lineDeltaMax)
		delta -= lineDeltaMax
	}
	return append(table, byte(delta))
}

// DecodeLineTable decodes a line table produced by EncodeLineTable.
func DecodeLineTable(start uint32, table []byte) (entries []LineEntry, err error) {
	if len(table) == 0 {
		return
	}

	entry := LineEntry{Offset: 0, LineNo: int(start)}
	entries = append(entries, entry)

	pos := 0
	for {
		if pos < len(table) && table[pos] == 0 {
			pos++
			break
		}

		var delta int
		delta, pos, err = readLineDelta(table, pos)
		if err != nil {
			return
		}
		entry.Offset += delta

		delta, pos, err = readLineDelta(table, pos)
		if err != nil {
			return
		}
		entry.LineNo += delta

		entries = append(entries, entry)
	}

	if pos != len(table) {
		err = ErrLineTable
		return
	}

	return
}

func readLineDelta(table []byte, pos int) (delta int, next int, err error) {
	for pos < len(table) {
		b := table[pos]
		pos++
		if b&lineDeltaMore != 0 {
			delta += int(b & lineDeltaMax)
			continue
		}
		delta += int(b)
		next = pos
		return
	}

	err = ErrLineTable
	return
}
