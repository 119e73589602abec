package domain

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var productNamePattern = regexp.MustCompile(`^[\p{L}\p{N} .\-]+$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the product rules registered.
// The returned instance is safe for concurrent use.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("productname", func(fl validator.FieldLevel) bool {
			return productNamePattern.MatchString(fl.Field().String())
		})
		v.RegisterStructValidation(func(sl validator.StructLevel) {
			p := sl.Current().Interface().(Product)
			if p.Type.Valid() && p.Category != "" && !CategoryAllowed(p.Type, p.Category) {
				sl.ReportError(p.Category, "category", "Category", "category_of_type", string(p.Type))
			}
		}, Product{})
		validate = v
	})
	return validate
}

// ValidName reports whether name is non blank and only holds letters, digits, spaces, dots and hyphens
func ValidName(name string) bool {
	return strings.TrimSpace(name) != "" && productNamePattern.MatchString(name)
}

// Violation is a single failed rule on a product field
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// Validate reports whether the product satisfies every rule
func (p *Product) Validate() bool {
	return len(p.Violations()) == 0
}

// Violations lists the failed rules in field order
func (p *Product) Violations() []Violation {
	err := Validator().Struct(p)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []Violation{{Field: "product", Message: err.Error()}}
	}
	out := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, Violation{Field: fe.Field(), Message: violationMessage(fe)})
	}
	return out
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "productname":
		return "may only contain letters, digits, spaces, dots and hyphens"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "cannot be negative"
	case "category_of_type":
		return "is not a category of type " + fe.Param()
	default:
		return "is invalid"
	}
}

// JoinViolations renders violations as a single comma separated message
func JoinViolations(vs []Violation) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, ", ")
}
