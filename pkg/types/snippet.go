package types

import (
	"github.com/mesh-intelligence/codemarshall/pkg/apperror"
	"github.com/mesh-intelligence/codemarshall/pkg/validate"
)

// Snippet is a stored unit of code. Collection and User are fixed at
// construction; the remaining fields change only through the setters.
type Snippet struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"` // empty means none
	Language    string      `json:"language"`
	Code        string      `json:"code"`
	Collection  *Collection `json:"collection"`
	User        *User       `json:"user"`
}

// SnippetUpdate names the fields to change. Nil fields are left alone.
type SnippetUpdate struct {
	Title       *string
	Description *string
	Language    *string
	Code        *string
}

// Empty reports whether the update would change nothing.
func (u SnippetUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Language == nil && u.Code == nil
}

// NewSnippet returns an unsaved snippet linked to collection and user, or
// the first validation error.
func NewSnippet(title, description, language, code string, collection *Collection, user *User) (*Snippet, error) {
	if collection == nil {
		return nil, apperror.Invalid("collection", "Invalid collection. Expected an instance of Collection.")
	}
	if user == nil {
		return nil, apperror.Invalid("user", "Invalid user. Expected an instance of User.")
	}
	s := &Snippet{Collection: collection, User: user}
	if err := s.Apply(SnippetUpdate{
		Title:       &title,
		Description: &description,
		Language:    &language,
		Code:        &code,
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// SetTitle replaces the title if it passes validation.
func (s *Snippet) SetTitle(title string) error {
	return s.Apply(SnippetUpdate{Title: &title})
}

// SetDescription replaces the description if it passes validation. An empty
// string clears it.
func (s *Snippet) SetDescription(description string) error {
	return s.Apply(SnippetUpdate{Description: &description})
}

// SetLanguage replaces the language if it passes validation.
func (s *Snippet) SetLanguage(language string) error {
	return s.Apply(SnippetUpdate{Language: &language})
}

// SetCode replaces the code if it passes validation.
func (s *Snippet) SetCode(code string) error {
	return s.Apply(SnippetUpdate{Code: &code})
}

// Apply validates every supplied field first and assigns them only if all
// pass, so a rejected update leaves the snippet unchanged.
func (s *Snippet) Apply(u SnippetUpdate) error {
	if u.Title != nil {
		if err := validate.Title(*u.Title); err != nil {
			return err
		}
	}
	if u.Description != nil {
		if err := validate.Description(*u.Description); err != nil {
			return err
		}
	}
	if u.Language != nil {
		if err := validate.Language(*u.Language); err != nil {
			return err
		}
	}
	if u.Code != nil {
		if err := validate.Code(*u.Code); err != nil {
			return err
		}
	}

	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.Language != nil {
		s.Language = *u.Language
	}
	if u.Code != nil {
		s.Code = *u.Code
	}
	return nil
}

// CollectionName returns the name of the owning collection, or "".
func (s *Snippet) CollectionName() string {
	if s.Collection == nil {
		return ""
	}
	return s.Collection.Name
}

// Username returns the owner's username, or "".
func (s *Snippet) Username() string {
	if s.User == nil {
		return ""
	}
	return s.User.Username
}
