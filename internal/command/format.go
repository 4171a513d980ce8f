package command

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mesh-intelligence/codemarshall/pkg/types"
)

// render writes v as indented JSON in JSON mode and calls text otherwise.
func (d *Dispatcher) render(v any, text func(p *printer)) error {
	if d.JSON {
		output, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		_, err = fmt.Fprintln(d.Out, string(output))
		return err
	}
	p := &printer{w: d.Out}
	text(p)
	return p.err
}

// printer keeps the first write error so formatters can ignore it.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) linef(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) line(s string) {
	p.linef("%s", s)
}

func (p *printer) snippet(s *types.Snippet) {
	p.linef("ID: %d", s.ID)
	p.linef("Title: %s", s.Title)
	p.linef("Description: %s", s.Description)
	p.linef("Language: %s", s.Language)
	p.linef("Code:\n%s", s.Code)
	p.linef("Collection: %s", s.CollectionName())
	p.linef("User: %s", s.Username())
}

func (p *printer) snippetList(header string, snippets []*types.Snippet) {
	p.line(header)
	for _, s := range snippets {
		p.linef("ID: %d, Title: %s, Language: %s", s.ID, s.Title, s.Language)
	}
}

func (p *printer) collectionList(collections []*types.Collection) {
	p.line("Collections:")
	for _, c := range collections {
		p.linef("ID: %d, Name: %s", c.ID, c.Name)
	}
}

func (p *printer) userList(users []*types.User) {
	p.line("Users:")
	for _, u := range users {
		p.linef("ID: %d, Username: %s", u.ID, u.Username)
	}
}
