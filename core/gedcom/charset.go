package gedcom

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// decoderFor retorna el descodificador per al valor de HEAD.CHAR. Un
// descodificador nil vol dir que el text ja és UTF-8 (o ASCII). El segon
// valor és fals quan el joc de caràcters no està suportat.
func decoderFor(charset string) (*encoding.Decoder, bool) {
	name := strings.ToUpper(strings.TrimSpace(charset))
	name = strings.ReplaceAll(name, "_", "-")
	switch name {
	case "", "UTF-8", "UTF8", "ASCII", "US-ASCII":
		return nil, true
	case "ANSI", "WINDOWS-1252", "CP1252", "WINDOWS":
		return charmap.Windows1252.NewDecoder(), true
	case "IBMPC", "IBM PC", "IBM-PC", "CP437", "IBM437":
		return charmap.CodePage437.NewDecoder(), true
	case "CP850", "IBM850":
		return charmap.CodePage850.NewDecoder(), true
	case "ISO-8859-1", "ISO8859-1", "LATIN1", "LATIN-1":
		return charmap.ISO8859_1.NewDecoder(), true
	case "ISO-8859-15", "LATIN9":
		return charmap.ISO8859_15.NewDecoder(), true
	case "MACINTOSH", "MACROMAN", "MAC":
		return charmap.Macintosh.NewDecoder(), true
	default:
		return nil, false
	}
}

// decodeLine converteix una línia al joc de caràcters declarat. Si la línia ja
// és UTF-8 vàlid amb caràcters no ASCII es deixa igual: molts programes
// declaren ANSI però escriuen UTF-8.
func decodeLine(dec *encoding.Decoder, raw string) string {
	if dec == nil || isASCII(raw) {
		return raw
	}
	if utf8.ValidString(raw) {
		return raw
	}
	out, err := dec.String(raw)
	if err != nil {
		return raw
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
