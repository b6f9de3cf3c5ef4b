// Package ui renders server-side HTML fragments with gomponents.
package ui

import (
	"net/http"
	"strconv"

	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"

	"cyberxpert/internal/domain"
)

// Nav renders menu entries as a <nav> list. The entry whose key equals
// active is marked with aria-current. Badges render only when present.
func Nav(entries []domain.MenuEntry, active string) gomponents.Node {
	items := make([]gomponents.Node, 0, len(entries))
	for _, e := range entries {
		items = append(items, navItem(e, e.Key == active))
	}
	return html.Nav(
		html.Class("app-nav"),
		html.Aria("label", "Main"),
		html.Ul(items...),
	)
}

func navItem(e domain.MenuEntry, active bool) gomponents.Node {
	className := "app-nav-link"
	if active {
		className += " active"
	}
	return html.Li(
		gomponents.Attr("data-key", e.Key),
		html.A(
			html.Href(e.Path),
			html.Class(className),
			gomponents.If(active, html.Aria("current", "page")),
			gomponents.If(e.Icon != "", html.I(html.Class("nav-icon"), html.Data("lucide", e.Icon), html.Aria("hidden", "true"))),
			html.Span(gomponents.Text(e.Label)),
			gomponents.If(e.Badge != nil, badge(e.Badge)),
		),
	)
}

func badge(n *int) gomponents.Node {
	if n == nil {
		return nil
	}
	return html.Span(html.Class("badge"), gomponents.Text(strconv.Itoa(*n)))
}

// ErrorFragment renders a short error message.
func ErrorFragment(msg string) gomponents.Node {
	return html.P(html.Class("flash flash-error"), html.Role("alert"), gomponents.Text(msg))
}

// Render writes node as an HTML response.
func Render(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}
