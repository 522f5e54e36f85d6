package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

var identifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Parse builds a template from markup:
//
//	{{field}}              slot
//	{{media field}}        document attachment
//	{{#if field}}...{{/if}} conditional block, may nest
func Parse(name, src string) (*Template, error) {
	p := &parser{name: name, src: src}
	segs, closed, err := p.parse(0)
	if err != nil {
		return nil, err
	}
	if closed {
		return nil, p.errorf("unexpected {{/if}}")
	}
	return New(name, segs...), nil
}

// MustParse is Parse for templates embedded at build time.
func MustParse(name, src string) *Template {
	t, err := Parse(name, src)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	name string
	src  string
	pos  int
}

func (p *parser) errorf(format string, args ...any) error {
	line := 1 + strings.Count(p.src[:p.pos], "\n")
	return fmt.Errorf("parse template %s: line %d: %s", p.name, line, fmt.Sprintf(format, args...))
}

// parse reads segments until end of input or a closing tag. closed reports
// whether a {{/if}} ended the run.
func (p *parser) parse(depth int) (segs []Segment, closed bool, err error) {
	for p.pos < len(p.src) {
		open := strings.Index(p.src[p.pos:], "{{")
		if open < 0 {
			segs = append(segs, Literal(p.src[p.pos:]))
			p.pos = len(p.src)
			break
		}
		if open > 0 {
			segs = append(segs, Literal(p.src[p.pos:p.pos+open]))
			p.pos += open
		}

		end := strings.Index(p.src[p.pos:], "}}")
		if end < 0 {
			return nil, false, p.errorf("unterminated tag")
		}
		tag := strings.TrimSpace(p.src[p.pos+2 : p.pos+end])
		tagStart := p.pos
		p.pos += end + 2

		fields := strings.Fields(tag)
		switch {
		case tag == "/if":
			if depth == 0 {
				p.pos = tagStart
				return nil, false, p.errorf("unexpected {{/if}}")
			}
			return segs, true, nil
		case len(fields) == 2 && fields[0] == "#if":
			field, err := p.field(fields[1])
			if err != nil {
				return nil, false, err
			}
			body, closed, err := p.parse(depth + 1)
			if err != nil {
				return nil, false, err
			}
			if !closed {
				return nil, false, p.errorf("{{#if %s}} is not closed", field)
			}
			segs = append(segs, When(field, body...))
		case len(fields) == 2 && fields[0] == "media":
			field, err := p.field(fields[1])
			if err != nil {
				return nil, false, err
			}
			segs = append(segs, Media(field))
		case len(fields) == 1:
			field, err := p.field(fields[0])
			if err != nil {
				return nil, false, err
			}
			segs = append(segs, Slot(field))
		default:
			return nil, false, p.errorf("unknown tag {{%s}}", tag)
		}
	}
	return segs, false, nil
}

func (p *parser) field(name string) (string, error) {
	if !identifier.MatchString(name) {
		return "", p.errorf("invalid field name %q", name)
	}
	return name, nil
}
