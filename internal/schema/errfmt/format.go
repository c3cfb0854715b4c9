package errfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/yndnr/autoserve/internal/schema"
	"github.com/yndnr/autoserve/internal/schema/validate"
)

// Options controls rendering.
type Options struct {
	// Pretty renders one human-readable block per schema. Otherwise the
	// text is one line per error.
	Pretty bool
	// Source is the raw text of the validated document. When set, pretty
	// blocks include a code frame for each error.
	Source []byte
	// Color enables ANSI styling of pretty blocks.
	Color bool
}

// Item is the machine-readable form of one error.
type Item struct {
	SchemaID     string         `json:"schemaId"`
	InstancePath string         `json:"instancePath"`
	SchemaPath   string         `json:"schemaPath"`
	Keyword      string         `json:"keyword"`
	Params       map[string]any `json:"params"`
	Message      string         `json:"message"`
}

// Group holds the errors that originate from one schema.
type Group struct {
	SchemaID string
	Errors   []validate.ValidationError
}

// Result is a formatted error report.
type Result struct {
	Text   string
	Groups []Group
	Items  []Item
}

// Format groups errs by originating schema, in order of first appearance,
// and renders each group against its own schema.
func Format(errs []validate.ValidationError, reg *schema.Registry, opts Options) Result {
	res := Result{Groups: GroupBySchema(errs)}
	for _, g := range res.Groups {
		for _, e := range g.Errors {
			res.Items = append(res.Items, Item{
				SchemaID:     g.SchemaID,
				InstancePath: e.InstancePath,
				SchemaPath:   e.SchemaPath,
				Keyword:      e.Keyword,
				Params:       e.Params,
				Message:      e.Message,
			})
		}
	}

	if !opts.Pretty {
		var b strings.Builder
		for _, it := range res.Items {
			fmt.Fprintf(&b, "[%s] %s %s\n", it.SchemaID, displayPath(it.InstancePath), plainMessage(it))
		}
		res.Text = b.String()
		return res
	}

	p := newPrinter(opts)
	blocks := make([]string, 0, len(res.Groups))
	for _, g := range res.Groups {
		var doc *schema.Document
		if reg != nil {
			doc, _ = reg.Get(g.SchemaID)
		}
		blocks = append(blocks, p.group(g, doc))
	}
	res.Text = strings.Join(blocks, "\n")
	return res
}

// GroupBySchema splits errs by SchemaID, keeping the order in which schemas
// and errors first appear.
func GroupBySchema(errs []validate.ValidationError) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, e := range errs {
		i, ok := index[e.SchemaID]
		if !ok {
			i = len(groups)
			index[e.SchemaID] = i
			groups = append(groups, Group{SchemaID: e.SchemaID})
		}
		groups[i].Errors = append(groups[i].Errors, e)
	}
	return groups
}

func displayPath(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}

func plainMessage(it Item) string {
	if name, ok := it.Params["additionalProperty"]; ok {
		return fmt.Sprintf("%s: %v", it.Message, name)
	}
	return it.Message
}

type printer struct {
	source  *sourceIndex
	header  lipgloss.Style
	path    lipgloss.Style
	desc    lipgloss.Style
	frame   lipgloss.Style
	hint    lipgloss.Style
	caret   lipgloss.Style
	padding lipgloss.Style
}

func newPrinter(opts Options) *printer {
	r := lipgloss.NewRenderer(io.Discard)
	if opts.Color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &printer{
		source:  indexSource(opts.Source),
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		path:    r.NewStyle().Foreground(lipgloss.Color("14")),
		desc:    r.NewStyle().Faint(true),
		frame:   r.NewStyle().Foreground(lipgloss.Color("8")),
		hint:    r.NewStyle().Foreground(lipgloss.Color("11")),
		caret:   r.NewStyle().Foreground(lipgloss.Color("9")),
		padding: r.NewStyle().PaddingLeft(2),
	}
}

func (p *printer) group(g Group, doc *schema.Document) string {
	noun := "errors"
	if len(g.Errors) == 1 {
		noun = "error"
	}
	title := g.SchemaID
	if doc != nil {
		if t, ok := doc.Raw["title"].(string); ok && t != "" {
			title = fmt.Sprintf("%s (%s)", t, g.SchemaID)
		}
	}

	lines := []string{p.header.Render(fmt.Sprintf("%s: %d %s", title, len(g.Errors), noun))}
	for _, e := range g.Errors {
		lines = append(lines, p.padding.Render(p.entry(e, doc)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (p *printer) entry(e validate.ValidationError, doc *schema.Document) string {
	head := fmt.Sprintf("%s %s", p.path.Render(displayPath(e.InstancePath)), e.Message)
	if name, ok := e.Params["additionalProperty"]; ok {
		head += fmt.Sprintf(": %v", name)
	}
	lines := []string{head}

	if d := describeSchemaPath(doc, e.SchemaPath); d != "" {
		lines = append(lines, p.desc.Render(d))
	}

	extraKey, _ := e.Params["additionalProperty"].(string)
	loc, found := p.source.locate(e.InstancePath, extraKey)
	if found {
		lines = append(lines, p.codeFrame(loc)...)
	}

	if e.Keyword == "enum" {
		allowed, _ := e.Params["allowedValues"].([]any)
		if found && loc.value != "" {
			if s := suggest(loc.value, allowed); s != "" {
				lines = append(lines, p.hint.Render(fmt.Sprintf("Did you mean %q?", s)))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (p *printer) codeFrame(loc location) []string {
	first := loc.line - 1
	if first < 1 {
		first = 1
	}
	last := loc.line + 1
	if last > len(p.source.lines) {
		last = len(p.source.lines)
	}
	width := len(fmt.Sprint(last))

	var out []string
	for n := first; n <= last; n++ {
		marker := "  "
		if n == loc.line {
			marker = "> "
		}
		out = append(out, p.frame.Render(fmt.Sprintf("%s%*d | ", marker, width, n))+p.source.lines[n-1])
		if n == loc.line {
			pad := strings.Repeat(" ", len(marker)+width+3+loc.column-1)
			out = append(out, pad+p.caret.Render("^"))
		}
	}
	return out
}

// describeSchemaPath returns the description of the schema node that owns
// the keyword at schemaPath.
func describeSchemaPath(doc *schema.Document, schemaPath string) string {
	if doc == nil {
		return ""
	}
	ptr := strings.TrimPrefix(schemaPath, "#")
	if i := strings.LastIndexByte(ptr, '/'); i >= 0 {
		ptr = ptr[:i]
	}
	var cur any = doc.Raw
	if ptr != "" {
		for _, tok := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
			m, ok := cur.(map[string]any)
			if !ok {
				return ""
			}
			cur = m[tok]
		}
	}
	m, _ := cur.(map[string]any)
	d, _ := m["description"].(string)
	return d
}
