package postcss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// utilities expands utility-class directives:
//
//	@tailwind base|components|utilities;  replaced by generated CSS
//	@layer base|components|utilities {…}  moved to the matching directive
//	@apply <classes>;                      inlined into the enclosing rule
type utilities struct {
	content []string
	scanner *Scanner
}

func newUtilities(options map[string]any, opts Options) (Processor, error) {
	content, err := stringSlice(options, "content")
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		content = opts.DefaultContent
	}
	return &utilities{content: content, scanner: opts.Scanner}, nil
}

func (u *utilities) Name() string {
	return "tailwindcss"
}

var layers = []string{"base", "components", "utilities"}

func (u *utilities) Process(_ context.Context, sheet *Stylesheet) error {
	var candidates []string
	if len(u.content) > 0 {
		found, files, err := u.scanner.Scan(u.content)
		if err != nil {
			return fmt.Errorf("failed to scan content: %w", err)
		}
		candidates = found
		sheet.WatchFiles = append(sheet.WatchFiles, files...)
	}

	w := &writer{
		path:   sheet.Path,
		layers: map[string]*strings.Builder{},
	}
	if err := w.walk(sheet.CSS); err != nil {
		return err
	}

	out := w.main.String()
	for _, layer := range layers {
		marker := directiveMarker(layer)
		if !strings.Contains(out, marker) {
			// no directive: hoisted layer content stays at the end
			if b, ok := w.layers[layer]; ok {
				out += b.String()
			}
			continue
		}

		var generated strings.Builder
		switch layer {
		case "base":
			generated.WriteString(preflight)
		case "utilities":
			generated.WriteString(generate(candidates))
		}
		if b, ok := w.layers[layer]; ok {
			generated.WriteString(b.String())
		}
		out = strings.Replace(out, marker, generated.String(), 1)
	}

	sheet.CSS = []byte(out)
	return nil
}

func directiveMarker(layer string) string {
	return "/*! frontbuild:" + layer + " */\n"
}

// writer copies the token stream through unchanged, intercepting only the
// @tailwind, @apply and @layer <name> directives.
type writer struct {
	path   string
	main   strings.Builder
	layers map[string]*strings.Builder

	// open blocks, innermost last
	stack []*block
	// tokens since the last statement boundary at the current level
	prelude []token
}

type token struct {
	tt   css.TokenType
	data string
}

type block struct {
	// layer diverts the block's output to a layer builder
	layer string
	// selectors of a qualified rule, split on top level commas
	selectors []string
	// rules produced by @apply variants, flushed after the block closes
	pending strings.Builder
}

func (w *writer) out() *strings.Builder {
	for i := len(w.stack) - 1; i >= 0; i-- {
		if w.stack[i].layer != "" {
			return w.layers[w.stack[i].layer]
		}
	}
	return &w.main
}

// rule returns the innermost qualified rule, or nil outside one.
func (w *writer) rule() *block {
	for i := len(w.stack) - 1; i >= 0; i-- {
		if w.stack[i].selectors != nil {
			return w.stack[i]
		}
	}
	return nil
}

func (w *writer) walk(src []byte) error {
	l := css.NewLexer(parse.NewInputBytes(src))

	var next *token
	read := func() token {
		if next != nil {
			t := *next
			next = nil
			return t
		}
		tt, data := l.Next()
		return token{tt, string(data)}
	}
	// directive collects the parameters of an at-rule up to its terminator,
	// which is returned unwritten.
	directive := func() (string, token) {
		var b strings.Builder
		for {
			t := read()
			switch t.tt {
			case css.SemicolonToken, css.LeftBraceToken, css.RightBraceToken, css.ErrorToken:
				return strings.TrimSpace(b.String()), t
			case css.CommentToken:
				continue
			}
			b.WriteString(t.data)
		}
	}

	for {
		t := read()
		switch t.tt {
		case css.ErrorToken:
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("%s: %w", w.path, err)
			}
			return nil

		case css.AtKeywordToken:
			name := strings.ToLower(t.data)
			if name != "@tailwind" && name != "@apply" && name != "@layer" {
				break
			}
			params, end := directive()
			if name == "@layer" && end.tt == css.LeftBraceToken && isLayer(params) {
				if _, ok := w.layers[params]; !ok {
					w.layers[params] = &strings.Builder{}
				}
				w.stack = append(w.stack, &block{layer: params})
				w.prelude = nil
				continue
			}
			if name == "@layer" {
				// cascade layers that aren't utility layers pass through
				fmt.Fprintf(w.out(), "%s %s", t.data, params)
				w.prelude = append(w.prelude, t, token{css.IdentToken, params})
				next = &end
				continue
			}
			if err := w.atRule(name, params); err != nil {
				return err
			}
			if end.tt != css.SemicolonToken {
				next = &end
			}
			w.prelude = nil
			continue

		case css.LeftBraceToken:
			w.out().WriteString(t.data)
			w.stack = append(w.stack, &block{selectors: selectors(w.prelude)})
			w.prelude = nil
			continue

		case css.RightBraceToken:
			out := w.out()
			if len(w.stack) == 0 {
				out.WriteString(t.data)
				continue
			}
			top := w.stack[len(w.stack)-1]
			w.stack = w.stack[:len(w.stack)-1]
			w.prelude = nil
			if top.layer != "" {
				continue
			}
			out.WriteString(t.data)
			if top.pending.Len() > 0 {
				out.WriteString("\n")
				out.WriteString(top.pending.String())
			}
			continue

		case css.SemicolonToken:
			w.out().WriteString(t.data)
			w.prelude = nil
			continue
		}

		w.out().WriteString(t.data)
		w.prelude = append(w.prelude, t)
	}
}

// selectors splits a rule prelude on top level commas. At-rule preludes
// yield nil.
func selectors(prelude []token) []string {
	var list []string
	var cur strings.Builder
	depth := 0
	for i, t := range prelude {
		switch t.tt {
		case css.AtKeywordToken:
			if strings.TrimSpace(tokensString(prelude[:i])) == "" {
				return nil
			}
		case css.CommentToken:
			continue
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				list = append(list, strings.TrimSpace(cur.String()))
				cur.Reset()
				continue
			}
		}
		cur.WriteString(t.data)
	}
	if s := strings.TrimSpace(cur.String()); s != "" || len(list) > 0 {
		list = append(list, s)
	}
	if len(list) == 0 {
		return nil
	}
	return list
}

func tokensString(tokens []token) string {
	var b strings.Builder
	for _, t := range tokens {
		if t.tt != css.CommentToken {
			b.WriteString(t.data)
		}
	}
	return b.String()
}

func (w *writer) atRule(name, params string) error {
	switch name {
	case "@tailwind":
		if !isLayer(params) {
			return fmt.Errorf("%s: unknown @tailwind layer %q", w.path, params)
		}
		w.out().WriteString(directiveMarker(params))
		return nil
	default:
		return w.apply(params)
	}
}

// apply inlines the declarations of each class. Classes with variants become
// separate rules emitted after the enclosing ruleset.
func (w *writer) apply(params string) error {
	rule := w.rule()
	if rule == nil {
		return fmt.Errorf("%s: @apply must be used inside a rule", w.path)
	}

	fields := strings.Fields(params)
	allImportant := slices.Contains(fields, "!important")

	out := w.out()
	for _, class := range fields {
		if class == "!important" {
			continue
		}
		important := allImportant || strings.HasPrefix(class, "!")
		class = strings.TrimPrefix(class, "!")

		u, ok := resolveClass(class)
		if !ok {
			return fmt.Errorf("%s: %w: %q in @apply for %q", w.path, ErrUnknownUtility, class, strings.Join(rule.selectors, ", "))
		}

		decls := u.Decls
		if important {
			decls = make([]decl, len(u.Decls))
			for i, d := range u.Decls {
				decls[i] = decl{d.Prop, d.Value + " !important"}
			}
		}

		if len(u.Pseudo) == 0 && u.Media == "" {
			writeDecls(out, decls, "  ")
			continue
		}

		variants := make([]string, len(rule.selectors))
		for i, s := range rule.selectors {
			variants[i] = u.selector(s)
		}
		indent := ""
		if u.Media != "" {
			fmt.Fprintf(&rule.pending, "@media %s {\n", u.Media)
			indent = "  "
		}
		fmt.Fprintf(&rule.pending, "%s%s {\n", indent, strings.Join(variants, ", "))
		writeDecls(&rule.pending, decls, indent+"  ")
		fmt.Fprintf(&rule.pending, "%s}\n", indent)
		if u.Media != "" {
			rule.pending.WriteString("}\n")
		}
	}
	return nil
}

func isLayer(name string) bool {
	return slices.Contains(layers, name)
}
