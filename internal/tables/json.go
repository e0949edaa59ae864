package tables

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/json"
)

const jsonMediaType = "application/json"

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc(jsonMediaType, json.Minify)
	return m
}()

// CompactJSON strips insignificant whitespace from a JSON cell value.
func CompactJSON(s string) (string, error) {
	return minifier.String(jsonMediaType, s)
}
