package catalog

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/mesh-intelligence/stu/pkg/types"
)

// User-facing validation messages.
const (
	MsgProjectName  = "Project name must be 2-100 characters (letters, numbers, spaces, - or _)."
	MsgProjectLink  = "Project link must be a valid URL (starting with http:// or https://)."
	MsgDescription  = "Description must be less than 500 characters."
	MsgCategory     = "Please select a valid category."
	MsgCategoryName = "Category name must be 2-100 characters."
)

var (
	projectNameRe = regexp.MustCompile(`^[A-Za-z0-9 _\-]+$`)
	httpURLRe     = regexp.MustCompile(`^https?://.+`)
)

// fieldMessages maps a struct namespace to the message shown for any
// failed rule on that field.
var fieldMessages = map[string]struct{ field, msg string }{
	"ProjectInput.Name":        {"name", MsgProjectName},
	"ProjectInput.Link":        {"link", MsgProjectLink},
	"ProjectInput.Description": {"description", MsgDescription},
	"ProjectInput.CategoryID":  {"category_id", MsgCategory},
	"CategoryInput.Name":       {"cat_name", MsgCategoryName},
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("projectname", func(fl validator.FieldLevel) bool {
		return projectNameRe.MatchString(fl.Field().String())
	})
	v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return httpURLRe.MatchString(fl.Field().String())
	})
	return v
}

// check validates in with v and returns the first failure as a
// *types.ValidationError. Fields are checked in declaration order.
func check(v *validator.Validate, in any) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	if m, ok := fieldMessages[first.StructNamespace()]; ok {
		return types.NewValidationError(m.field, m.msg)
	}
	return types.NewValidationError(first.Field(), first.Error())
}
