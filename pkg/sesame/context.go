package sesame

import (
	"net/url"
	"strings"
)

// NullContext addresses the default graph (statements without a context).
const NullContext = "null"

// EncodeContext renders a context for the ?context= query parameter. NullContext passes
// through; anything else is wrapped in angle brackets unless already bracketed, then
// query-escaped.
func EncodeContext(context string) string {
	if context == NullContext {
		return context
	}
	if !strings.HasPrefix(context, "<") || !strings.HasSuffix(context, ">") {
		context = "<" + context + ">"
	}
	return url.QueryEscape(context)
}
