// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"chatlink/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("channel_id", validateChannelID)
		_ = v.RegisterValidation("range_preset", validateRangePreset)
		_ = v.RegisterValidation("message_kind", validateMessageKind)
		_ = v.RegisterValidation("plan", validatePlan)
	}
}

func validateChannelID(fl validator.FieldLevel) bool {
	return models.ChannelID(fl.Field().String()).Valid()
}

func validateRangePreset(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "7d", "30d", "this_month", "lifetime":
		return true
	}
	return false
}

func validateMessageKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "inbound", "outbound":
		return true
	}
	return false
}

func validatePlan(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "free", "pro", "team":
		return true
	}
	return false
}
