package types

import "github.com/mesh-intelligence/codemarshall/pkg/validate"

// Collection groups snippets under a unique name.
type Collection struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NewCollection returns an unsaved collection, or a validation error.
func NewCollection(name string) (*Collection, error) {
	c := &Collection{}
	if err := c.SetName(name); err != nil {
		return nil, err
	}
	return c, nil
}

// SetName replaces the name if it passes validation.
func (c *Collection) SetName(name string) error {
	if err := validate.CollectionName(name); err != nil {
		return err
	}
	c.Name = name
	return nil
}
