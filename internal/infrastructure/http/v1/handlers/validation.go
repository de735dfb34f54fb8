package handlers

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"freshledger/internal/core/types"
)

var registerOnce sync.Once

// RegisterValidators adds the domain binding rules to gin's validator:
//
//	unit  the value is "kg" or "unit"
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("unit", func(fl validator.FieldLevel) bool {
			return types.Unit(fl.Field().String()).Valid()
		})
	})
}
