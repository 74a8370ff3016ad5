package segment

import (
	"path/filepath"
	"strconv"
	"strings"
)

// TempSuffix marks a segment file that has been written but not committed.
const TempSuffix = "tmp"

// Path returns the filename a segment lives under inside the database
// directory: "{txn:08x}.{num:08x}" once visible, with a ".tmp" tail while
// uncommitted.
func Path(databasePath string, id ID, visible bool) string {
	name := id.String()
	if !visible {
		name += "." + TempSuffix
	}
	return filepath.Join(databasePath, name)
}

// DecodeName parses a directory entry name as a segment filename. It returns
// the segment id, whether the file is visible (committed), and whether the
// name was recognized at all. Names whose tail is neither empty nor "tmp",
// or whose id parts are not 8-digit lowercase hex, are not segment files.
func DecodeName(name string) (ID, bool, bool) {
	parts := strings.Split(name, ".")

	var visible bool
	switch {
	case len(parts) == 2:
		visible = true
	case len(parts) == 3 && parts[2] == TempSuffix:
		visible = false
	default:
		return ID{}, false, false
	}

	txn, ok := parseHex32(parts[0])
	if !ok {
		return ID{}, false, false
	}
	num, ok := parseHex32(parts[1])
	if !ok {
		return ID{}, false, false
	}

	return ID{Txn: TxnID(txn), Num: Num(num)}, visible, true
}

// parseHex32 parses an 8-digit lowercase hexadecimal string.
func parseHex32(s string) (uint32, bool) {
	if len(s) != 8 || s != strings.ToLower(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
