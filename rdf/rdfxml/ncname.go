package rdfxml

import (
	"fmt"
	"unicode/utf8"
)

// runeRange is an inclusive range of code points.
type runeRange struct{ lo, hi rune }

// ncNameStart lists the code points allowed at the start of an NCName, per
// NameStartChar in https://www.w3.org/TR/xml/#NT-NameStartChar minus ':'.
var ncNameStart = []runeRange{
	{'A', 'Z'}, {'_', '_'}, {'a', 'z'},
	{0xC0, 0xD6}, {0xD8, 0xF6}, {0xF8, 0x2FF},
	{0x370, 0x37D}, {0x37F, 0x1FFF}, {0x200C, 0x200D},
	{0x2070, 0x218F}, {0x2C00, 0x2FEF}, {0x3001, 0xD7FF},
	{0xF900, 0xFDCF}, {0xFDF0, 0xFFFD}, {0x10000, 0xEFFFF},
}

// ncNameRest lists the extra code points allowed after the first.
var ncNameRest = []runeRange{
	{'-', '.'}, {'0', '9'}, {0xB7, 0xB7},
	{0x300, 0x36F}, {0x203F, 0x2040},
}

func inRanges(r rune, ranges []runeRange) bool {
	for _, rr := range ranges {
		if r >= rr.lo && r <= rr.hi {
			return true
		}
	}
	return false
}

// checkNCName returns an error unless s is a valid rdf:ID or rdf:nodeID
// value.
func checkNCName(s string) error {
	if s == "" {
		return fmt.Errorf("empty string is not an XML NCName")
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%q is not valid UTF-8", s)
	}
	for i, r := range s {
		if inRanges(r, ncNameStart) || (i > 0 && inRanges(r, ncNameRest)) {
			continue
		}
		return fmt.Errorf("%q is not an XML NCName: %q at byte %d is not allowed, see https://www.w3.org/TR/xml-names/#NT-NCName", s, r, i)
	}
	return nil
}
