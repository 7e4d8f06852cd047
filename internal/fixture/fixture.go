// Package fixture renders match-history markup for tests.
package fixture

import (
	"fmt"
	"strings"
)

// Hero is one roster list item.
type Hero struct {
	Code    string
	Class   string // extra class tokens, e.g. "ban" or "preban-hero"
	NoIcon  bool
	NoClass bool
}

// Battle is one battle-info entry.
type Battle struct {
	Win       bool
	Turns     int
	Own       []Hero
	Enemy     []Hero
	NoClass   bool // render the entry li without a class attribute
	NoDetail  bool // drop the battle-result-detail block
	ExtraHTML string
}

// Heroes builds selected heroes from codes.
func Heroes(codes ...string) []Hero {
	hs := make([]Hero, len(codes))
	for i, c := range codes {
		hs[i] = Hero{Code: c}
	}
	return hs
}

func (h Hero) render(b *strings.Builder) {
	b.WriteString("<li")
	if !h.NoClass {
		cls := "hero"
		if h.Class != "" {
			cls += " " + h.Class
		}
		fmt.Fprintf(b, ` class="%s"`, cls)
	}
	b.WriteString(">")
	if !h.NoIcon {
		fmt.Fprintf(b, `<span><img alt="%s" src="/img/%s.png"></span>`, h.Code, h.Code)
	}
	b.WriteString("</li>")
}

func renderTeam(b *strings.Builder, class string, heroes []Hero) {
	fmt.Fprintf(b, `<div class="%s w-100"><ul>`, class)
	for _, h := range heroes {
		h.render(b)
	}
	b.WriteString("</ul></div>")
}

// Entry renders a single battle entry li.
func Entry(bt Battle) string {
	var b strings.Builder
	if bt.NoClass {
		b.WriteString("<li>")
	} else {
		cls := "battle-info"
		if bt.Win {
			cls += " win"
		} else {
			cls += " lose"
		}
		fmt.Fprintf(&b, `<li class="%s">`, cls)
	}
	fmt.Fprintf(&b, `<div class="battle-top"><span class="turn">Turns %d</span></div>`, bt.Turns)
	if !bt.NoDetail {
		b.WriteString(`<div class="battle-result-detail">`)
		renderTeam(&b, "my-team", bt.Own)
		renderTeam(&b, "enemy-team", bt.Enemy)
		b.WriteString("</div>")
	}
	b.WriteString(bt.ExtraHTML)
	b.WriteString("</li>")
	return b.String()
}

// Page renders a full document with the battle list.
func Page(battles ...Battle) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Battle Record</title></head><body><div id="battleList"><ul>`)
	for _, bt := range battles {
		b.WriteString(Entry(bt))
	}
	b.WriteString("</ul></div></body></html>")
	return b.String()
}
