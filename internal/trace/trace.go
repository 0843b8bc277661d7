// Package trace renders a request/response pair in curl-replayable
// form for trace-level logging.
package trace

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gridnode/nodeclient/host"
)

// FormatRequest renders h/method/uri/body as a curl command line. The
// body must already be buffered by the caller; formatting does no I/O.
func FormatRequest(h host.Host, method, uri string, body []byte) string {
	var b strings.Builder
	b.WriteString("curl -iX ")
	b.WriteString(method)
	b.WriteString(" '")
	b.WriteString(h.String())
	b.WriteString(uri)
	b.WriteByte('\'')
	if body != nil {
		b.WriteString(" -d '")
		b.Write(body)
		b.WriteByte('\'')
	}
	return b.String()
}

// FormatResponse renders a status line, headers, and body as a '#'
// prefixed block. net/http's Header is a map and carries no wire
// order, so headers are rendered in sorted-name order for determinism.
func FormatResponse(status string, header http.Header, body []byte) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(status)

	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range header[name] {
			b.WriteString("\n# ")
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(value)
		}
	}
	b.WriteString("\n#")
	if len(body) > 0 {
		for _, line := range strings.Split(string(body), "\n") {
			b.WriteString("\n# ")
			b.WriteString(line)
		}
	}
	return b.String()
}
