package postcss

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type decl struct {
	Prop  string
	Value string
}

// utility is a resolved class: its declarations and where it sorts.
type utility struct {
	Class  string
	Decls  []decl
	Order  int
	Pseudo []string
	Media  string
	Weight int
}

// Ordering groups; utilities sort by group, then by class name.
const (
	orderLayout = iota
	orderPosition
	orderFlex
	orderSpacing
	orderSizing
	orderTypography
	orderBackground
	orderBorder
	orderEffects
	orderFilters
	orderInteractivity
	orderTransition
)

type breakpoint struct {
	Name  string
	Width string
}

var breakpoints = []breakpoint{
	{"sm", "640px"},
	{"md", "768px"},
	{"lg", "1024px"},
	{"xl", "1280px"},
	{"2xl", "1536px"},
}

var pseudoVariants = map[string]string{
	"hover":         ":hover",
	"focus":         ":focus",
	"focus-visible": ":focus-visible",
	"focus-within":  ":focus-within",
	"active":        ":active",
	"visited":       ":visited",
	"disabled":      ":disabled",
	"first":         ":first-child",
	"last":          ":last-child",
	"odd":           ":nth-child(odd)",
	"even":          ":nth-child(even)",
}

var static = map[string]struct {
	order int
	decls []decl
}{
	"block":        {orderLayout, []decl{{"display", "block"}}},
	"inline-block": {orderLayout, []decl{{"display", "inline-block"}}},
	"inline":       {orderLayout, []decl{{"display", "inline"}}},
	"flex":         {orderLayout, []decl{{"display", "flex"}}},
	"inline-flex":  {orderLayout, []decl{{"display", "inline-flex"}}},
	"grid":         {orderLayout, []decl{{"display", "grid"}}},
	"inline-grid":  {orderLayout, []decl{{"display", "inline-grid"}}},
	"table":        {orderLayout, []decl{{"display", "table"}}},
	"contents":     {orderLayout, []decl{{"display", "contents"}}},
	"hidden":       {orderLayout, []decl{{"display", "none"}}},

	"static":   {orderPosition, []decl{{"position", "static"}}},
	"fixed":    {orderPosition, []decl{{"position", "fixed"}}},
	"absolute": {orderPosition, []decl{{"position", "absolute"}}},
	"relative": {orderPosition, []decl{{"position", "relative"}}},
	"sticky":   {orderPosition, []decl{{"position", "sticky"}}},
	"inset-0":  {orderPosition, []decl{{"inset", "0px"}}},

	"flex-row":         {orderFlex, []decl{{"flex-direction", "row"}}},
	"flex-row-reverse": {orderFlex, []decl{{"flex-direction", "row-reverse"}}},
	"flex-col":         {orderFlex, []decl{{"flex-direction", "column"}}},
	"flex-col-reverse": {orderFlex, []decl{{"flex-direction", "column-reverse"}}},
	"flex-wrap":        {orderFlex, []decl{{"flex-wrap", "wrap"}}},
	"flex-nowrap":      {orderFlex, []decl{{"flex-wrap", "nowrap"}}},
	"flex-1":           {orderFlex, []decl{{"flex", "1 1 0%"}}},
	"flex-auto":        {orderFlex, []decl{{"flex", "1 1 auto"}}},
	"flex-none":        {orderFlex, []decl{{"flex", "none"}}},
	"grow":             {orderFlex, []decl{{"flex-grow", "1"}}},
	"shrink-0":         {orderFlex, []decl{{"flex-shrink", "0"}}},
	"items-start":      {orderFlex, []decl{{"align-items", "flex-start"}}},
	"items-end":        {orderFlex, []decl{{"align-items", "flex-end"}}},
	"items-center":     {orderFlex, []decl{{"align-items", "center"}}},
	"items-baseline":   {orderFlex, []decl{{"align-items", "baseline"}}},
	"items-stretch":    {orderFlex, []decl{{"align-items", "stretch"}}},
	"justify-start":    {orderFlex, []decl{{"justify-content", "flex-start"}}},
	"justify-end":      {orderFlex, []decl{{"justify-content", "flex-end"}}},
	"justify-center":   {orderFlex, []decl{{"justify-content", "center"}}},
	"justify-between":  {orderFlex, []decl{{"justify-content", "space-between"}}},
	"justify-around":   {orderFlex, []decl{{"justify-content", "space-around"}}},
	"justify-evenly":   {orderFlex, []decl{{"justify-content", "space-evenly"}}},

	"text-left":         {orderTypography, []decl{{"text-align", "left"}}},
	"text-center":       {orderTypography, []decl{{"text-align", "center"}}},
	"text-right":        {orderTypography, []decl{{"text-align", "right"}}},
	"text-justify":      {orderTypography, []decl{{"text-align", "justify"}}},
	"italic":            {orderTypography, []decl{{"font-style", "italic"}}},
	"not-italic":        {orderTypography, []decl{{"font-style", "normal"}}},
	"underline":         {orderTypography, []decl{{"text-decoration-line", "underline"}}},
	"line-through":      {orderTypography, []decl{{"text-decoration-line", "line-through"}}},
	"no-underline":      {orderTypography, []decl{{"text-decoration-line", "none"}}},
	"uppercase":         {orderTypography, []decl{{"text-transform", "uppercase"}}},
	"lowercase":         {orderTypography, []decl{{"text-transform", "lowercase"}}},
	"capitalize":        {orderTypography, []decl{{"text-transform", "capitalize"}}},
	"whitespace-nowrap": {orderTypography, []decl{{"white-space", "nowrap"}}},
	"truncate": {orderTypography, []decl{
		{"overflow", "hidden"},
		{"text-overflow", "ellipsis"},
		{"white-space", "nowrap"},
	}},

	"bg-clip-text":    {orderBackground, []decl{{"background-clip", "text"}}},
	"bg-clip-padding": {orderBackground, []decl{{"background-clip", "padding-box"}}},

	"border": {orderBorder, []decl{{"border-width", "1px"}}},

	"cursor-pointer":      {orderInteractivity, []decl{{"cursor", "pointer"}}},
	"cursor-default":      {orderInteractivity, []decl{{"cursor", "default"}}},
	"select-none":         {orderInteractivity, []decl{{"user-select", "none"}}},
	"select-text":         {orderInteractivity, []decl{{"user-select", "text"}}},
	"select-all":          {orderInteractivity, []decl{{"user-select", "all"}}},
	"select-auto":         {orderInteractivity, []decl{{"user-select", "auto"}}},
	"appearance-none":     {orderInteractivity, []decl{{"appearance", "none"}}},
	"pointer-events-none": {orderInteractivity, []decl{{"pointer-events", "none"}}},
	"pointer-events-auto": {orderInteractivity, []decl{{"pointer-events", "auto"}}},

	"transition": {orderTransition, []decl{
		{"transition-property", "color, background-color, border-color, text-decoration-color, fill, stroke, opacity, box-shadow, transform, filter, backdrop-filter"},
		{"transition-timing-function", "cubic-bezier(0.4, 0, 0.2, 1)"},
		{"transition-duration", "150ms"},
	}},
	"transition-none": {orderTransition, []decl{{"transition-property", "none"}}},
}

var spacingProps = map[string][]string{
	"p":     {"padding"},
	"px":    {"padding-left", "padding-right"},
	"py":    {"padding-top", "padding-bottom"},
	"pt":    {"padding-top"},
	"pr":    {"padding-right"},
	"pb":    {"padding-bottom"},
	"pl":    {"padding-left"},
	"m":     {"margin"},
	"mx":    {"margin-left", "margin-right"},
	"my":    {"margin-top", "margin-bottom"},
	"mt":    {"margin-top"},
	"mr":    {"margin-right"},
	"mb":    {"margin-bottom"},
	"ml":    {"margin-left"},
	"gap":   {"gap"},
	"gap-x": {"column-gap"},
	"gap-y": {"row-gap"},
}

var fontSizes = map[string][2]string{
	"xs":   {"0.75rem", "1rem"},
	"sm":   {"0.875rem", "1.25rem"},
	"base": {"1rem", "1.5rem"},
	"lg":   {"1.125rem", "1.75rem"},
	"xl":   {"1.25rem", "1.75rem"},
	"2xl":  {"1.5rem", "2rem"},
	"3xl":  {"1.875rem", "2.25rem"},
	"4xl":  {"2.25rem", "2.5rem"},
	"5xl":  {"3rem", "1"},
	"6xl":  {"3.75rem", "1"},
}

var fontWeights = map[string]string{
	"thin":       "100",
	"extralight": "200",
	"light":      "300",
	"normal":     "400",
	"medium":     "500",
	"semibold":   "600",
	"bold":       "700",
	"extrabold":  "800",
	"black":      "900",
}

var leading = map[string]string{
	"none":    "1",
	"tight":   "1.25",
	"snug":    "1.375",
	"normal":  "1.5",
	"relaxed": "1.625",
	"loose":   "2",
}

var tracking = map[string]string{
	"tighter": "-0.05em",
	"tight":   "-0.025em",
	"normal":  "0em",
	"wide":    "0.025em",
	"wider":   "0.05em",
	"widest":  "0.1em",
}

var radii = map[string]string{
	"none": "0px",
	"sm":   "0.125rem",
	"":     "0.25rem",
	"md":   "0.375rem",
	"lg":   "0.5rem",
	"xl":   "0.75rem",
	"2xl":  "1rem",
	"3xl":  "1.5rem",
	"full": "9999px",
}

var shadows = map[string]string{
	"sm":   "0 1px 2px 0 rgb(0 0 0 / 0.05)",
	"":     "0 1px 3px 0 rgb(0 0 0 / 0.1), 0 1px 2px -1px rgb(0 0 0 / 0.1)",
	"md":   "0 4px 6px -1px rgb(0 0 0 / 0.1), 0 2px 4px -2px rgb(0 0 0 / 0.1)",
	"lg":   "0 10px 15px -3px rgb(0 0 0 / 0.1), 0 4px 6px -4px rgb(0 0 0 / 0.1)",
	"none": "0 0 #0000",
}

var blurs = map[string]string{
	"none": "0",
	"sm":   "4px",
	"":     "8px",
	"md":   "12px",
	"lg":   "16px",
	"xl":   "24px",
}

var maxWidths = map[string]string{
	"none":  "none",
	"sm":    "24rem",
	"md":    "28rem",
	"lg":    "32rem",
	"xl":    "36rem",
	"2xl":   "42rem",
	"3xl":   "48rem",
	"4xl":   "56rem",
	"5xl":   "64rem",
	"6xl":   "72rem",
	"7xl":   "80rem",
	"full":  "100%",
	"prose": "65ch",
}

var fractions = map[string]string{
	"1/2": "50%",
	"1/3": "33.333333%",
	"2/3": "66.666667%",
	"1/4": "25%",
	"3/4": "75%",
}

var colors = map[string]string{
	"white":       "#fff",
	"black":       "#000",
	"transparent": "transparent",
	"current":     "currentColor",
}

var palette = map[string][10]string{
	"gray":   {"#f9fafb", "#f3f4f6", "#e5e7eb", "#d1d5db", "#9ca3af", "#6b7280", "#4b5563", "#374151", "#1f2937", "#111827"},
	"red":    {"#fef2f2", "#fee2e2", "#fecaca", "#fca5a5", "#f87171", "#ef4444", "#dc2626", "#b91c1c", "#991b1b", "#7f1d1d"},
	"yellow": {"#fefce8", "#fef9c3", "#fef08a", "#fde047", "#facc15", "#eab308", "#ca8a04", "#a16207", "#854d0e", "#713f12"},
	"green":  {"#f0fdf4", "#dcfce7", "#bbf7d0", "#86efac", "#4ade80", "#22c55e", "#16a34a", "#15803d", "#166534", "#14532d"},
	"blue":   {"#eff6ff", "#dbeafe", "#bfdbfe", "#93c5fd", "#60a5fa", "#3b82f6", "#2563eb", "#1d4ed8", "#1e40af", "#1e3a8a"},
	"indigo": {"#eef2ff", "#e0e7ff", "#c7d2fe", "#a5b4fc", "#818cf8", "#6366f1", "#4f46e5", "#4338ca", "#3730a3", "#312e81"},
}

var shades = []string{"50", "100", "200", "300", "400", "500", "600", "700", "800", "900"}

// resolveClass turns a class name, including any variant prefixes, into a
// utility. The boolean is false for anything that isn't a known utility.
func resolveClass(class string) (utility, bool) {
	parts := strings.Split(class, ":")
	base := parts[len(parts)-1]

	u := utility{Class: class}
	for _, variant := range parts[:len(parts)-1] {
		if pseudo, ok := pseudoVariants[variant]; ok {
			u.Pseudo = append(u.Pseudo, pseudo)
			continue
		}
		idx := slices.IndexFunc(breakpoints, func(bp breakpoint) bool {
			return bp.Name == variant
		})
		if idx < 0 || u.Media != "" {
			return utility{}, false
		}
		u.Media = fmt.Sprintf("(min-width: %s)", breakpoints[idx].Width)
		u.Weight = idx + 1
	}

	order, decls, ok := resolveBase(base)
	if !ok {
		return utility{}, false
	}
	u.Order = order
	u.Decls = decls
	return u, true
}

func resolveBase(name string) (int, []decl, bool) {
	if s, ok := static[name]; ok {
		return s.order, s.decls, true
	}

	negative := strings.HasPrefix(name, "-")
	if negative {
		name = name[1:]
	}

	// spacing: longest prefix first so "gap-x" wins over "gap"
	if prefix, value, ok := cutPrefix(name, "gap-x", "gap-y", "gap", "px", "py", "pt", "pr", "pb", "pl", "p", "mx", "my", "mt", "mr", "mb", "ml", "m"); ok {
		size, ok := spacing(value)
		if !ok && strings.HasPrefix(prefix, "m") && value == "auto" {
			size, ok = "auto", true
		}
		if !ok || (negative && (!strings.HasPrefix(prefix, "m") || size == "auto")) {
			return 0, nil, false
		}
		if negative && size != "0px" {
			size = "-" + size
		}
		decls := make([]decl, 0, 2)
		for _, prop := range spacingProps[prefix] {
			decls = append(decls, decl{prop, size})
		}
		return orderSpacing, decls, true
	}
	if negative {
		return 0, nil, false
	}

	if prefix, value, ok := cutPrefix(name, "max-w", "min-h", "min-w", "w", "h"); ok {
		size, ok := sizing(prefix, value)
		if !ok {
			return 0, nil, false
		}
		prop := map[string]string{"w": "width", "h": "height", "min-h": "min-height", "min-w": "min-width", "max-w": "max-width"}[prefix]
		return orderSizing, []decl{{prop, size}}, true
	}

	if _, value, ok := cutPrefix(name, "text"); ok {
		if size, ok := fontSizes[value]; ok {
			return orderTypography, []decl{{"font-size", size[0]}, {"line-height", size[1]}}, true
		}
		if color, ok := colorValue(value); ok {
			return orderTypography, []decl{{"color", color}}, true
		}
		return 0, nil, false
	}
	if _, value, ok := cutPrefix(name, "font"); ok {
		if weight, ok := fontWeights[value]; ok {
			return orderTypography, []decl{{"font-weight", weight}}, true
		}
		return 0, nil, false
	}
	if _, value, ok := cutPrefix(name, "leading"); ok {
		if v, ok := leading[value]; ok {
			return orderTypography, []decl{{"line-height", v}}, true
		}
		return 0, nil, false
	}
	if _, value, ok := cutPrefix(name, "tracking"); ok {
		if v, ok := tracking[value]; ok {
			return orderTypography, []decl{{"letter-spacing", v}}, true
		}
		return 0, nil, false
	}

	if _, value, ok := cutPrefix(name, "bg"); ok {
		if color, ok := colorValue(value); ok {
			return orderBackground, []decl{{"background-color", color}}, true
		}
		return 0, nil, false
	}

	if name == "rounded" {
		return orderBorder, []decl{{"border-radius", radii[""]}}, true
	}
	if _, value, ok := cutPrefix(name, "rounded"); ok {
		if v, ok := radii[value]; ok && value != "" {
			return orderBorder, []decl{{"border-radius", v}}, true
		}
		return 0, nil, false
	}
	if _, value, ok := cutPrefix(name, "border"); ok {
		switch value {
		case "0", "2", "4", "8":
			return orderBorder, []decl{{"border-width", value + "px"}}, true
		}
		if color, ok := colorValue(value); ok {
			return orderBorder, []decl{{"border-color", color}}, true
		}
		return 0, nil, false
	}

	if name == "shadow" {
		return orderEffects, []decl{{"box-shadow", shadows[""]}}, true
	}
	if _, value, ok := cutPrefix(name, "shadow"); ok {
		if v, ok := shadows[value]; ok && value != "" {
			return orderEffects, []decl{{"box-shadow", v}}, true
		}
		return 0, nil, false
	}
	if _, value, ok := cutPrefix(name, "opacity"); ok {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 100 || n%5 != 0 {
			return 0, nil, false
		}
		return orderEffects, []decl{{"opacity", strconv.FormatFloat(float64(n)/100, 'f', -1, 64)}}, true
	}
	if _, value, ok := cutPrefix(name, "z"); ok {
		switch value {
		case "0", "10", "20", "30", "40", "50", "auto":
			return orderPosition, []decl{{"z-index", value}}, true
		}
		return 0, nil, false
	}

	if name == "blur" || name == "backdrop-blur" {
		return orderFilters, []decl{blurDecl(name, blurs[""])}, true
	}
	if prefix, value, ok := cutPrefix(name, "backdrop-blur", "blur"); ok {
		if v, ok := blurs[value]; ok && value != "" {
			return orderFilters, []decl{blurDecl(prefix, v)}, true
		}
		return 0, nil, false
	}

	if _, value, ok := cutPrefix(name, "duration"); ok {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			return orderTransition, []decl{{"transition-duration", value + "ms"}}, true
		}
		return 0, nil, false
	}

	return 0, nil, false
}

func blurDecl(prefix, size string) decl {
	prop := "filter"
	if prefix == "backdrop-blur" {
		prop = "backdrop-filter"
	}
	if size == "0" {
		return decl{prop, "blur(0)"}
	}
	return decl{prop, "blur(" + size + ")"}
}

// cutPrefix matches name against "<prefix>-<value>" for the first prefix
// that fits.
func cutPrefix(name string, prefixes ...string) (string, string, bool) {
	for _, prefix := range prefixes {
		if value, ok := strings.CutPrefix(name, prefix+"-"); ok && value != "" {
			return prefix, value, true
		}
	}
	return "", "", false
}

// spacing maps the spacing scale, where each step is 0.25rem.
func spacing(value string) (string, bool) {
	switch value {
	case "0":
		return "0px", true
	case "px":
		return "1px", true
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil || n < 0 || n > 96 || n*2 != float64(int(n*2)) {
		return "", false
	}
	return strconv.FormatFloat(n/4, 'f', -1, 64) + "rem", true
}

func sizing(prefix, value string) (string, bool) {
	if prefix == "max-w" {
		v, ok := maxWidths[value]
		return v, ok
	}
	switch value {
	case "full":
		return "100%", true
	case "auto":
		return "auto", prefix == "w" || prefix == "h"
	case "min":
		return "min-content", true
	case "max":
		return "max-content", true
	case "fit":
		return "fit-content", true
	case "screen":
		if strings.HasSuffix(prefix, "w") {
			return "100vw", true
		}
		return "100vh", true
	}
	if v, ok := fractions[value]; ok && (prefix == "w" || prefix == "h") {
		return v, true
	}
	if prefix == "w" || prefix == "h" {
		return spacing(value)
	}
	if value == "0" {
		return "0px", true
	}
	return "", false
}

func colorValue(value string) (string, bool) {
	if c, ok := colors[value]; ok {
		return c, true
	}
	name, shade, ok := strings.Cut(value, "-")
	if !ok {
		return "", false
	}
	scale, ok := palette[name]
	if !ok {
		return "", false
	}
	idx := slices.Index(shades, shade)
	if idx < 0 {
		return "", false
	}
	return scale[idx], true
}

// escapeClass escapes a class name for use in a selector.
func escapeClass(class string) string {
	var b strings.Builder
	for i, r := range class {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				fmt.Fprintf(&b, "\\3%c ", r)
				continue
			}
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// selector returns the selector for u applied to base.
func (u utility) selector(base string) string {
	return base + strings.Join(u.Pseudo, "")
}

func writeDecls(b *strings.Builder, decls []decl, indent string) {
	for _, d := range decls {
		fmt.Fprintf(b, "%s%s: %s;\n", indent, d.Prop, d.Value)
	}
}

// generate renders utilities for every candidate that resolves, ordered by
// breakpoint, then group, then class name.
func generate(candidates []string) string {
	var utilities []utility
	for _, candidate := range candidates {
		if u, ok := resolveClass(candidate); ok {
			utilities = append(utilities, u)
		}
	}

	slices.SortFunc(utilities, func(a, b utility) int {
		if a.Weight != b.Weight {
			return a.Weight - b.Weight
		}
		if len(a.Pseudo) != len(b.Pseudo) {
			return len(a.Pseudo) - len(b.Pseudo)
		}
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.Class, b.Class)
	})

	var b strings.Builder
	media := ""
	for _, u := range utilities {
		if u.Media != media {
			if media != "" {
				b.WriteString("}\n")
			}
			if u.Media != "" {
				fmt.Fprintf(&b, "@media %s {\n", u.Media)
			}
			media = u.Media
		}
		indent := ""
		if media != "" {
			indent = "  "
		}
		fmt.Fprintf(&b, "%s%s {\n", indent, u.selector("."+escapeClass(u.Class)))
		writeDecls(&b, u.Decls, indent+"  ")
		fmt.Fprintf(&b, "%s}\n", indent)
	}
	if media != "" {
		b.WriteString("}\n")
	}
	return b.String()
}

const preflight = `*, ::before, ::after {
  box-sizing: border-box;
  border-width: 0;
  border-style: solid;
  border-color: #e5e7eb;
}
html {
  line-height: 1.5;
  -webkit-text-size-adjust: 100%;
  font-family: ui-sans-serif, system-ui, sans-serif;
}
body {
  margin: 0;
  line-height: inherit;
}
h1, h2, h3, h4, h5, h6 {
  font-size: inherit;
  font-weight: inherit;
}
a {
  color: inherit;
  text-decoration: inherit;
}
img, svg, video {
  display: block;
  vertical-align: middle;
}
button, input, select, textarea {
  font: inherit;
  color: inherit;
  margin: 0;
  padding: 0;
}
`
