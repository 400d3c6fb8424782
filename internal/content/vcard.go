package content

import (
	"bytes"
	"strings"

	"github.com/linkpage/server/internal/model"
)

// RenderVCard builds a vCard 3.0 document from a profile's contact fields.
// Optional fields are omitted rather than emitted empty.
func RenderVCard(p model.Profile) []byte {
	var b bytes.Buffer
	writeLine(&b, "BEGIN:VCARD")
	writeLine(&b, "VERSION:3.0")
	writeLine(&b, "FN:"+escapeVCardValue(p.DisplayName))
	writeLine(&b, "N:"+escapeVCardValue(p.DisplayName)+";;;;")
	writeLine(&b, "NICKNAME:"+escapeVCardValue(p.Handle))
	if p.Email != nil && *p.Email != "" {
		writeLine(&b, "EMAIL;TYPE=INTERNET:"+escapeVCardValue(*p.Email))
	}
	if p.Phone != nil && *p.Phone != "" {
		writeLine(&b, "TEL;TYPE=CELL:"+escapeVCardValue(*p.Phone))
	}
	if p.Website != nil && *p.Website != "" {
		writeLine(&b, "URL:"+escapeVCardValue(*p.Website))
	}
	writeLine(&b, "END:VCARD")
	return b.Bytes()
}

// writeLine terminates with CRLF as the vCard format requires
func writeLine(b *bytes.Buffer, line string) {
	b.WriteString(line)
	b.WriteString("\r\n")
}

// escapeVCardValue escapes the characters RFC 2426 reserves in values
func escapeVCardValue(v string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		"\n", "\\n",
		";", "\\;",
		",", "\\,",
	)
	return r.Replace(v)
}
