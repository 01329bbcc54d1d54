package report

import (
	"sort"
	"strings"
)

// ExpandTokens substitutes {{name}} tokens in tmpl with the matching values
// in a single pass, so a value containing a token is never expanded again.
// Unknown tokens are left as written.
func ExpandTokens(tmpl string, values map[string]string) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "{{"+name+"}}", values[name])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
