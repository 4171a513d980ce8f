// Package command maps a verb and its positional arguments onto one store
// operation and renders the result. Argument shape is checked before the
// store is touched, so a malformed command has no side effects.
package command

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/codemarshall/pkg/apperror"
	"github.com/mesh-intelligence/codemarshall/pkg/types"
)

// Session is the state carried between commands in one session.
type Session struct {
	User        string // owner of snippets created by add
	Collection  string // collection that receives snippets created by add
	Description string // description given to snippets created by add
}

// Dispatcher runs commands against a Store.
type Dispatcher struct {
	Store   types.Store
	Out     io.Writer
	Session Session
	JSON    bool // render results as indented JSON
}

// Spec describes one verb.
type Spec struct {
	Name    string
	Aliases []string
	Usage   string
	Summary string
	Args    int

	// SessionOnly verbs only change Session and have no effect on their own.
	SessionOnly bool

	parse func(c *Call) error
	exec  func(d *Dispatcher, ctx context.Context, c *Call) error
}

// Call is a parsed command whose arguments have passed every shape check.
// Executing it is the first point that touches the store.
type Call struct {
	Spec Spec
	Args []string

	id     int64
	update types.SnippetUpdate
	filter types.SnippetFilter
}

var specs = []Spec{
	{Name: "user", Usage: "user <username>", Summary: "Create a new user and make it the active owner", Args: 1,
		exec: (*Dispatcher).createUser},
	{Name: "use", Usage: "use <username>", Summary: "Make an existing user the active owner", Args: 1, SessionOnly: true,
		exec: (*Dispatcher).useUser},
	{Name: "collection", Usage: "collection <name>", Summary: "Select the collection for new snippets", Args: 1, SessionOnly: true,
		parse: parseCollection, exec: (*Dispatcher).useCollection},
	{Name: "add", Usage: "add <title> <language> <code>", Summary: "Add a new code snippet", Args: 3,
		exec: (*Dispatcher).addSnippet},
	{Name: "view", Usage: "view <snippet_id>", Summary: "View a snippet", Args: 1,
		parse: parseSnippetID, exec: (*Dispatcher).viewSnippet},
	{Name: "update", Usage: "update <snippet_id> <field> <new_value>", Summary: "Update one field of a snippet (title, description, language, code)", Args: 3,
		parse: parseUpdate, exec: (*Dispatcher).updateSnippet},
	{Name: "delete", Usage: "delete <snippet_id>", Summary: "Delete a snippet", Args: 1,
		parse: parseSnippetID, exec: (*Dispatcher).deleteSnippet},
	{Name: "search", Usage: "search <field> <value>", Summary: "Search snippets by language, collection or user", Args: 2,
		parse: parseSearch, exec: (*Dispatcher).searchSnippets},
	{Name: "list", Aliases: []string{"ls"}, Usage: "list <snippets|collections|users>", Summary: "List all snippets, collections or users", Args: 1,
		parse: parseList, exec: (*Dispatcher).list},
}

// Specs returns the verbs in help order.
func Specs() []Spec {
	out := make([]Spec, len(specs))
	copy(out, specs)
	return out
}

// Lookup finds a verb by name or alias, case-insensitively.
func Lookup(verb string) (Spec, bool) {
	verb = strings.ToLower(verb)
	for _, s := range specs {
		if s.Name == verb {
			return s, true
		}
		for _, a := range s.Aliases {
			if a == verb {
				return s, true
			}
		}
	}
	return Spec{}, false
}

// Parse checks the shape of a command without touching the store. args[0]
// is the verb. Every failure is an ErrUsage or ErrValidation error.
func Parse(args []string) (*Call, error) {
	if len(args) == 0 {
		return nil, apperror.Usage("No command given.")
	}
	spec, ok := Lookup(args[0])
	if !ok {
		return nil, apperror.Usage("Unknown command: %s", strings.ToLower(args[0]))
	}
	c := &Call{Spec: spec, Args: args[1:]}
	if len(c.Args) != spec.Args {
		return nil, apperror.Usage("Usage: %s", spec.Usage)
	}
	if spec.parse != nil {
		if err := spec.parse(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Exec runs a parsed command against the store.
func (d *Dispatcher) Exec(ctx context.Context, c *Call) error {
	return c.Spec.exec(d, ctx, c)
}

// Run parses and executes one command. An empty command is a no-op.
func (d *Dispatcher) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	c, err := Parse(args)
	if err != nil {
		return err
	}
	return d.Exec(ctx, c)
}

func (d *Dispatcher) createUser(ctx context.Context, c *Call) error {
	u, err := d.Store.CreateUser(ctx, c.Args[0])
	if err != nil {
		return err
	}
	d.Session.User = u.Username
	return d.render(u, func(p *printer) {
		p.linef("User '%s' created successfully.", u.Username)
	})
}

func (d *Dispatcher) useUser(ctx context.Context, c *Call) error {
	u, err := d.Store.GetUser(ctx, c.Args[0])
	if err != nil {
		return err
	}
	d.Session.User = u.Username
	return d.render(u, func(p *printer) {
		p.linef("Now using user '%s'.", u.Username)
	})
}

func parseCollection(c *Call) error {
	_, err := types.NewCollection(c.Args[0])
	return err
}

func (d *Dispatcher) useCollection(_ context.Context, c *Call) error {
	col := &types.Collection{Name: c.Args[0]}
	d.Session.Collection = col.Name
	return d.render(col, func(p *printer) {
		p.linef("New snippets will be added to collection '%s'.", col.Name)
	})
}

func (d *Dispatcher) addSnippet(ctx context.Context, c *Call) error {
	if d.Session.User == "" {
		return apperror.Usage("No active user. Run 'user <username>' or 'use <username>' first.")
	}
	s, err := d.Store.CreateSnippet(ctx, types.NewSnippetInput{
		Title:          c.Args[0],
		Description:    d.Session.Description,
		Language:       c.Args[1],
		Code:           c.Args[2],
		CollectionName: d.Session.Collection,
		Username:       d.Session.User,
	})
	if err != nil {
		return err
	}
	return d.render(s, func(p *printer) {
		p.linef("Snippet with ID %d created successfully.", s.ID)
	})
}

func parseSnippetID(c *Call) error {
	id, err := parseID(c.Args[0], c.Spec.Usage)
	c.id = id
	return err
}

func (d *Dispatcher) viewSnippet(ctx context.Context, c *Call) error {
	s, err := d.Store.GetSnippet(ctx, c.id)
	if err != nil {
		return err
	}
	return d.render(s, func(p *printer) { p.snippet(s) })
}

// updateFields maps the field argument of update onto SnippetUpdate.
var updateFields = map[string]func(u *types.SnippetUpdate, v *string){
	"title":       func(u *types.SnippetUpdate, v *string) { u.Title = v },
	"description": func(u *types.SnippetUpdate, v *string) { u.Description = v },
	"language":    func(u *types.SnippetUpdate, v *string) { u.Language = v },
	"code":        func(u *types.SnippetUpdate, v *string) { u.Code = v },
}

func parseUpdate(c *Call) error {
	if err := parseSnippetID(c); err != nil {
		return err
	}
	set, ok := updateFields[strings.ToLower(c.Args[1])]
	if !ok {
		return apperror.Usage("Invalid field: %s. Expected one of: title, description, language, code.", c.Args[1])
	}
	value := c.Args[2]
	set(&c.update, &value)
	return nil
}

func (d *Dispatcher) updateSnippet(ctx context.Context, c *Call) error {
	s, err := d.Store.UpdateSnippet(ctx, c.id, c.update)
	if err != nil {
		return err
	}
	return d.render(s, func(p *printer) {
		p.linef("Snippet with ID %d updated successfully.", c.id)
	})
}

func (d *Dispatcher) deleteSnippet(ctx context.Context, c *Call) error {
	if err := d.Store.DeleteSnippet(ctx, c.id); err != nil {
		return err
	}
	return d.render(map[string]int64{"deleted": c.id}, func(p *printer) {
		p.linef("Snippet with ID %d deleted successfully.", c.id)
	})
}

// searchFields maps the field argument of search onto SnippetFilter.
var searchFields = map[string]func(f *types.SnippetFilter, v string){
	"language":   func(f *types.SnippetFilter, v string) { f.Language = v },
	"collection": func(f *types.SnippetFilter, v string) { f.CollectionName = v },
	"user":       func(f *types.SnippetFilter, v string) { f.Username = v },
}

func parseSearch(c *Call) error {
	set, ok := searchFields[strings.ToLower(c.Args[0])]
	if !ok {
		return apperror.Usage("Invalid field: %s. Expected one of: language, collection, user.", c.Args[0])
	}
	set(&c.filter, c.Args[1])
	return nil
}

func (d *Dispatcher) searchSnippets(ctx context.Context, c *Call) error {
	snippets, err := d.Store.SearchSnippets(ctx, c.filter)
	if err != nil {
		return err
	}
	return d.render(snippets, func(p *printer) {
		if len(snippets) == 0 {
			p.line("No snippets found matching the search criteria.")
			return
		}
		p.snippetList("Search Results:", snippets)
	})
}

func parseList(c *Call) error {
	switch strings.ToLower(c.Args[0]) {
	case "snippets", "collections", "users":
		return nil
	default:
		return apperror.Usage("Invalid argument for list command. Usage: list <snippets|collections|users>")
	}
}

func (d *Dispatcher) list(ctx context.Context, c *Call) error {
	switch strings.ToLower(c.Args[0]) {
	case "snippets":
		snippets, err := d.Store.ListSnippets(ctx)
		if err != nil {
			return err
		}
		return d.render(snippets, func(p *printer) {
			if len(snippets) == 0 {
				p.line("No snippets found.")
				return
			}
			p.snippetList("Snippets:", snippets)
		})
	case "collections":
		collections, err := d.Store.ListCollections(ctx)
		if err != nil {
			return err
		}
		return d.render(collections, func(p *printer) {
			if len(collections) == 0 {
				p.line("No collections found.")
				return
			}
			p.collectionList(collections)
		})
	default:
		users, err := d.Store.ListUsers(ctx)
		if err != nil {
			return err
		}
		return d.render(users, func(p *printer) {
			if len(users) == 0 {
				p.line("No users found.")
				return
			}
			p.userList(users)
		})
	}
}

func parseID(raw, usage string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.Usage("Invalid snippet ID: %s. Usage: %s", raw, usage)
	}
	return id, nil
}
