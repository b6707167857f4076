// Package export renders renewal dates as an iCalendar (RFC 5545) file.
package export

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/domainvault/internal/vault/datemath"
	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
)

const (
	ContentType      = "text/calendar"
	FileName         = "domain-renewals.ics"
	DefaultNamespace = "domainvault.com"
	ProdID           = "-//Domain Vault//EN"

	maxLineOctets = 75
)

// Encoder writes calendars whose event UIDs live under Namespace.
type Encoder struct {
	Namespace string
}

func NewEncoder(namespace string) *Encoder {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Encoder{Namespace: namespace}
}

// Calendar encodes domains with the default namespace.
func Calendar(domains []domain.Domain) []byte {
	return NewEncoder("").Calendar(domains)
}

// Calendar emits one VEVENT per domain in the order given. Domains whose
// renewal date does not parse are skipped. The output carries no
// generation timestamp, so equal input gives equal bytes.
func (e *Encoder) Calendar(domains []domain.Domain) []byte {
	var b bytes.Buffer
	line(&b, "BEGIN:VCALENDAR")
	line(&b, "VERSION:2.0")
	line(&b, "PRODID:"+ProdID)

	for _, d := range domains {
		start, err := datemath.ICSDate(d.RenewalDate)
		if err != nil {
			continue
		}
		line(&b, "BEGIN:VEVENT")
		line(&b, "UID:"+escapeText(d.ID+"@"+e.Namespace))
		line(&b, "DTSTART:"+start)
		line(&b, "SUMMARY:"+escapeText("Domain Renewal: "+d.Name))
		line(&b, "DESCRIPTION:"+escapeText("Renew domain "+d.Name+" for $"+d.Price))
		line(&b, "END:VEVENT")
	}

	line(&b, "END:VCALENDAR")
	return b.Bytes()
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
)

func escapeText(s string) string { return textEscaper.Replace(s) }

// line writes s terminated by CRLF, folding it into 75-octet chunks
// without splitting a UTF-8 sequence.
func line(b *bytes.Buffer, s string) {
	limit := maxLineOctets
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		b.WriteString(s[:cut])
		b.WriteString("\r\n ")
		s = s[cut:]
		// continuation lines lose one octet to the leading space
		limit = maxLineOctets - 1
	}
	b.WriteString(s)
	b.WriteString("\r\n")
}
