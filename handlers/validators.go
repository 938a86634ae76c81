package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"edufees/models"
	"edufees/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	frequencyTag     = "frequency"
	paymentMethodTag = "paymentmethod"
)

var registerOnce sync.Once

// RegisterValidators installs the ledger's custom binding tags on gin's validator.
func RegisterValidators() {
	registerOnce.Do(registerValidators)
}

func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	// Use JSON tag names in errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation(frequencyTag, frequencyValidation)
	_ = v.RegisterValidation(paymentMethodTag, paymentMethodValidation)
}

func frequencyValidation(fl validator.FieldLevel) bool {
	_, err := models.ParseFrequency(fl.Field().String())
	return err == nil
}

func paymentMethodValidation(fl validator.FieldLevel) bool {
	_, err := models.ParsePaymentMethod(fl.Field().String())
	return err == nil
}

// bindJSON binds the body into dst and answers 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		c.JSON(http.StatusBadRequest, utils.ErrorResponse{
			Message: "invalid request body",
			Details: fe.Namespace() + " failed on " + fe.Tag(),
			Code:    "invalid_" + fe.Tag(),
			Kind:    string(utils.KindValidation),
			Field:   fe.Field(),
		})
		return false
	}
	c.JSON(http.StatusBadRequest, utils.ErrorResponse{
		Message: "invalid request body",
		Details: err.Error(),
		Code:    "invalid_body",
		Kind:    string(utils.KindValidation),
	})
	return false
}
