package components

import (
	"context"

	"github.com/a-h/templ"
)

// BrandName is shown in the sidebar header.
const BrandName = "Proj AI"

// Sidebar renders the collapsible sidebar. The question list loads itself.
func Sidebar(collapsed bool) templ.Component {
	return component(func(_ context.Context, hw *htmlWriter) {
		class := "sidebar"
		if collapsed {
			class += " collapsed"
		}
		hw.raw(`<aside id="sidebar"`)
		hw.attr("class", class)
		hw.raw(`><div class="sidebar-header"><span class="brand-name">`)
		hw.text(BrandName)
		hw.raw(`</span><button type="button" class="toggle" aria-label="Toggle sidebar" data-on:click="@post('/api/chat/sidebar')">&#9776;</button></div>`)
		hw.raw(`<div class="sidebar-body">`)
		hw.raw(`<button type="button" class="new-chat" data-on:click="@post('/api/chat/reset')">New chat</button>`)
		hw.raw(`<h3>Try asking</h3>`)
		hw.raw(`<ul id="questions" class="question-list" data-init="@get('/api/chat/questions')"><li class="notice">Loading suggestions...</li></ul>`)
		hw.raw(`</div></aside>`)
	})
}

// QuestionList renders candidate questions; clicking one asks it.
func QuestionList(questions []string) templ.Component {
	return component(func(_ context.Context, hw *htmlWriter) {
		hw.raw(`<ul id="questions" class="question-list">`)
		if len(questions) == 0 {
			hw.raw(`<li class="notice">No suggestions right now.</li>`)
		}
		for _, q := range questions {
			hw.raw(`<li><button type="button"`)
			hw.attr("data-question", q)
			hw.attr("data-on:click", "$question = el.dataset.question; @post('/api/chat/ask')")
			hw.raw(`>`)
			hw.text(q)
			hw.raw(`</button></li>`)
		}
		hw.raw(`</ul>`)
	})
}

// QuestionsUnavailable replaces the question list when the backend failed.
func QuestionsUnavailable() templ.Component {
	return component(func(_ context.Context, hw *htmlWriter) {
		hw.raw(`<ul id="questions" class="question-list"><li class="notice">Suggestions are unavailable.</li></ul>`)
	})
}

// Composer renders the question input.
func Composer() templ.Component {
	return component(func(_ context.Context, hw *htmlWriter) {
		hw.raw(`<form id="composer" class="composer" data-on:submit__prevent="@post('/api/chat/ask')">`)
		hw.raw(`<input type="text" name="question" autocomplete="off" placeholder="Ask a question about your data" data-bind:question>`)
		hw.raw(`<button type="submit" class="primary">Send</button>`)
		hw.raw(`</form>`)
	})
}
