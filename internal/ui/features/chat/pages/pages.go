// Package pages renders full HTML documents for the chat UI.
package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/leapchat/internal/transcript"
	"github.com/leapstack-labs/leapchat/internal/ui/features/chat/components"
	"github.com/leapstack-labs/leapchat/internal/ui/resources"
)

const (
	appName        = "LeapChat"
	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"
	leafletCSS     = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"
	leafletScript  = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"
)

// ChatData is everything the chat page renders on first load.
type ChatData struct {
	ConversationID   string
	SidebarCollapsed bool
	Views            []transcript.View
	Drafts           map[string]string
}

// ChatPage renders the full chat document. Live updates arrive over /updates.
func ChatPage(title string, isDev bool, data ChatData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := `<!doctype html><html lang="en"><head><meta charset="utf-8">` +
			`<meta name="viewport" content="width=device-width, initial-scale=1">` +
			`<title>` + templ.EscapeString(title) + ` - ` + appName + `</title>` +
			`<link rel="stylesheet" href="` + resources.StaticPath("app.css") + `">` +
			`<link rel="stylesheet" href="` + leafletCSS + `">` +
			`<script src="` + leafletScript + `"></script>` +
			`<script type="module" src="` + datastarScript + `"></script>` +
			`<script src="` + resources.StaticPath("chat.js") + `"></script>` +
			`</head><body>`
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}

		if isDev {
			if _, err := io.WriteString(w, `<div data-init="@get('/reload', {retryMaxCount: 1000, retryInterval: 20})"></div>`); err != nil {
				return err
			}
		}

		open := `<div class="layout" data-conversation="` + templ.EscapeString(data.ConversationID) + `"` +
			` data-signals="{question: '', drafts: {}}" data-init="@get('/updates')">`
		if _, err := io.WriteString(w, open); err != nil {
			return err
		}
		if err := components.Sidebar(data.SidebarCollapsed).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<main class="main">`); err != nil {
			return err
		}
		if err := components.Transcript(data.Views, data.Drafts).Render(ctx, w); err != nil {
			return err
		}
		if err := components.Composer().Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></div></body></html>`)
		return err
	})
}
