package trace

import (
	"net/http"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/gridnode/nodeclient/host"
)

func TestFormatRequestNoBody(t *testing.T) {
	h := host.New("http", "node1", 9200)
	got := FormatRequest(h, "GET", "/_cluster/health", nil)
	assert.Equal(t, "curl -iX GET 'http://node1:9200/_cluster/health'", got)
}

func TestFormatRequestWithBody(t *testing.T) {
	h := host.New("http", "node1", 9200)
	got := FormatRequest(h, "POST", "/_bulk", []byte(`{"a":1}`))
	assert.Equal(t, `curl -iX POST 'http://node1:9200/_bulk' -d '{"a":1}'`, got)
}

func TestFormatResponseSortsHeaderNames(t *testing.T) {
	header := http.Header{
		"X-Zeta":  []string{"2"},
		"X-Alpha": []string{"1"},
	}
	got := FormatResponse("200 OK", header, nil)
	alphaIdx := strings.Index(got, "X-Alpha")
	zetaIdx := strings.Index(got, "X-Zeta")
	assert.Assert(t, alphaIdx >= 0 && zetaIdx >= 0)
	assert.Assert(t, alphaIdx < zetaIdx)
}

func TestFormatResponseRendersBodyLines(t *testing.T) {
	got := FormatResponse("500 Internal Server Error", http.Header{}, []byte("line1\nline2"))
	assert.Assert(t, strings.Contains(got, "# line1"))
	assert.Assert(t, strings.Contains(got, "# line2"))
}
