package components

import (
	"context"
	"strings"

	"github.com/a-h/templ"
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const highlightStyle = "github"

var sqlFormatter = html.New(html.TabWidth(2))

// CodeBlock renders SQL with syntax highlighting.
// If highlighting fails the code is shown as escaped plain text.
func CodeBlock(code string) templ.Component {
	return component(func(_ context.Context, hw *htmlWriter) {
		highlighted, err := highlightSQL(code)
		if err != nil {
			hw.raw(`<pre class="chroma"><code>`)
			hw.text(code)
			hw.raw(`</code></pre>`)
			return
		}
		hw.raw(highlighted)
	})
}

func highlightSQL(code string) (string, error) {
	lexer := lexers.Get("sql")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(highlightStyle)
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := sqlFormatter.Format(&b, style, iterator); err != nil {
		return "", err
	}
	return b.String(), nil
}
