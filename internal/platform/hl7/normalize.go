package hl7

import "strings"

// Scanner-hardware substitutions: barcode scanners configured for a German
// keyboard layout emit "ß" for the minus sign and a backtick or acute
// accent for the plus sign.
var glyphReplacer = strings.NewReplacer(
	"ß", "-",
	"`", "+",
	"´", "+",
)

// NormalizeCode canonicalizes a scanned barcode or product code: trim,
// map scanner glyph substitutions, uppercase. Idempotent; must be applied
// to every scanned code before any comparison or storage lookup.
func NormalizeCode(raw string) string {
	return strings.ToUpper(glyphReplacer.Replace(strings.TrimSpace(raw)))
}
