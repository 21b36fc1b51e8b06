package types

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// validatorInstance reports field errors by their JSON names.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// SearchRequest is the body of POST /search/rapper.
// TimeoutSeconds nil means wait for the agent indefinitely.
type SearchRequest struct {
	RapperName     string `json:"rapper_name" validate:"required,min=1,max=50"`
	TimeoutSeconds *int   `json:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
}

// Normalize trims the performer name before validation.
func (r *SearchRequest) Normalize() {
	r.RapperName = strings.TrimSpace(r.RapperName)
}

// Validate validates the SearchRequest using the validator.
func (r *SearchRequest) Validate() error {
	return validatorInstance().Struct(r)
}
