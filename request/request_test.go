package request

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/gridnode/nodeclient/errs"
)

func TestBuildGet(t *testing.T) {
	req, err := Build("get", "/_cluster/health", nil, nil)
	assert.NilError(t, err)
	assert.Equal(t, GET, req.Method)
	assert.Equal(t, "/_cluster/health", req.URI.RequestURI())
}

func TestBuildPreservesParamOrder(t *testing.T) {
	req, err := Build("GET", "/_search", Params{
		{Key: "scroll", Value: "1m"},
		{Key: "size", Value: "10"},
	}, nil)
	assert.NilError(t, err)
	assert.Equal(t, "/_search?scroll=1m&size=10", req.URI.RequestURI())
}

func TestBuildAppendsToExistingQuery(t *testing.T) {
	req, err := Build("GET", "/_search?pretty=true", Params{
		{Key: "size", Value: "10"},
	}, nil)
	assert.NilError(t, err)
	assert.Equal(t, "/_search?pretty=true&size=10", req.URI.RequestURI())
}

func TestBuildRejectsUnknownMethod(t *testing.T) {
	_, err := Build("PATCH", "/x", nil, nil)
	var target *errs.UnsupportedMethodError
	assert.Assert(t, errors.As(err, &target))
}

func TestBuildRejectsHeadWithBody(t *testing.T) {
	_, err := Build("HEAD", "/x", nil, []byte("body"))
	var target *errs.UnsupportedOperationError
	assert.Assert(t, errors.As(err, &target))
}

func TestBuildRejectsInvalidURI(t *testing.T) {
	_, err := Build("GET", "/_search%zz", nil, nil)
	var target *errs.InvalidURIError
	assert.Assert(t, errors.As(err, &target))
}

func TestParseMethodUppercases(t *testing.T) {
	m, err := ParseMethod("get")
	assert.NilError(t, err)
	assert.Equal(t, GET, m)
}
