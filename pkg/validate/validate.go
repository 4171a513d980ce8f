// Package validate checks raw strings before they reach the entity model or
// the store. Each check is pure and returns nil or an *apperror.Error of kind
// ErrValidation naming the offending field.
package validate

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/mesh-intelligence/codemarshall/pkg/apperror"
)

// Length limits.
const (
	MinUsernameLength       = 3
	MaxUsernameLength       = 20
	MinCollectionNameLength = 3
	MaxCollectionNameLength = 50
	MinTitleLength          = 3
	MaxTitleLength          = 100
	MaxDescriptionLength    = 500
	MaxCodeLength           = 5000
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	labelPattern    = regexp.MustCompile(`^[A-Za-z0-9_\s]+$`)
)

// v is safe for concurrent use once the custom tags are registered.
var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	mustRegister(val, "username", usernamePattern)
	// label covers collection names and languages: word characters and spaces.
	mustRegister(val, "label", labelPattern)
	return val
}

// mustRegister binds tag to pattern. A registration failure is a programming
// error, so it panics at package init rather than silently dropping a rule.
func mustRegister(val *validator.Validate, tag string, pattern *regexp.Regexp) {
	err := val.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("validate: registering %q: %v", tag, err))
	}
}

// rule pairs a validator tag with the message reported when it fails.
type rule struct {
	tag string
	msg string
}

// check runs rules in order and reports the first failure.
func check(field, value string, rules ...rule) error {
	for _, r := range rules {
		if err := v.Var(value, r.tag); err != nil {
			return apperror.Invalid(field, r.msg)
		}
	}
	return nil
}

func lengthRule(label string, min, max int) rule {
	return rule{
		tag: fmt.Sprintf("min=%d,max=%d", min, max),
		msg: fmt.Sprintf("%s must be between %d and %d characters long.", label, min, max),
	}
}

// Username requires 3-20 letters, digits or underscores.
func Username(username string) error {
	return check("username", username,
		rule{"required", "Username cannot be empty."},
		rule{"username", "Username can only contain letters, digits, and underscores."},
		lengthRule("Username", MinUsernameLength, MaxUsernameLength),
	)
}

// CollectionName requires 3-50 letters, digits, underscores or spaces.
func CollectionName(name string) error {
	return check("collection", name,
		rule{"required", "Collection name cannot be empty."},
		rule{"label", "Collection name can only contain letters, digits, underscores, and spaces."},
		lengthRule("Collection name", MinCollectionNameLength, MaxCollectionNameLength),
	)
}

// Title requires 3-100 characters of any kind.
func Title(title string) error {
	return check("title", title,
		rule{"required", "Snippet title cannot be empty."},
		lengthRule("Snippet title", MinTitleLength, MaxTitleLength),
	)
}

// Language requires letters, digits, underscores or spaces.
func Language(language string) error {
	return check("language", language,
		rule{"required", "Snippet language cannot be empty."},
		rule{"label", "Snippet language can only contain letters, digits, underscores, and spaces."},
	)
}

// Code requires a non-empty body of at most MaxCodeLength characters.
func Code(code string) error {
	return check("code", code,
		rule{"required", "Snippet code cannot be empty."},
		rule{
			fmt.Sprintf("max=%d", MaxCodeLength),
			fmt.Sprintf("Snippet code must be at most %d characters long.", MaxCodeLength),
		},
	)
}

// Description is optional; when present it is capped at MaxDescriptionLength.
func Description(description string) error {
	return check("description", description,
		rule{
			fmt.Sprintf("max=%d", MaxDescriptionLength),
			fmt.Sprintf("Snippet description must be at most %d characters long.", MaxDescriptionLength),
		},
	)
}
