package http

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/garyjia/permits-on-the-go/internal/domain/permit"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// registerValidators adds the custom binding tags to gin's validator
func registerValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		if err := v.RegisterValidation("permit_status", validatePermitStatus); err != nil {
			registerErr = fmt.Errorf("register permit_status validator: %w", err)
		}
	})
	return registerErr
}

// validatePermitStatus accepts the name of any known permit status
func validatePermitStatus(fl validator.FieldLevel) bool {
	return permit.Status(fl.Field().String()).IsValid()
}
