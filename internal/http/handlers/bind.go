package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	fieldErrorType = "field"
	bodyLocation   = "body"
)

var registerJSONNames sync.Once

// useJSONFieldNames makes validator report fields by their json tag, so error
// paths match what the client sent.
func useJSONFieldNames() {
	registerJSONNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(sf reflect.StructField) string {
			name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return sf.Name
			default:
				return name
			}
		})
	})
}

// BindJSON binds and validates the body. On failure it has already written
// the error envelope and the handler must return.
func BindJSON(ctx *gin.Context, out any) bool {
	useJSONFieldNames()

	err := ctx.ShouldBindJSON(out)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "request body is too large")
		return false
	}

	RespondErrors(ctx, http.StatusBadRequest, bindErrorItems(err))
	return false
}

func bindErrorItems(err error) []middlewares.ErrorItem {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		items := make([]middlewares.ErrorItem, 0, len(invalid))
		for _, fe := range invalid {
			items = append(items, fieldItem(fieldPath(fe), validationMessage(fe.Tag(), fe.Param())))
		}
		return items
	}

	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return []middlewares.ErrorItem{bodyItem("request body is not valid JSON")}
	}

	var mismatch *json.UnmarshalTypeError
	if errors.As(err, &mismatch) && mismatch.Field != "" {
		return []middlewares.ErrorItem{fieldItem(mismatch.Field, "must be of type "+mismatch.Type.String())}
	}

	// empty body, custom unmarshalers such as otp.Code, and anything else
	return []middlewares.ErrorItem{bodyItem("invalid request body")}
}

func fieldItem(path, msg string) middlewares.ErrorItem {
	return middlewares.ErrorItem{Type: fieldErrorType, Msg: msg, Path: path, Location: bodyLocation}
}

func bodyItem(msg string) middlewares.ErrorItem {
	return middlewares.ErrorItem{Type: middlewares.ErrorType(http.StatusBadRequest), Msg: msg, Location: bodyLocation}
}

// fieldPath drops the root struct name from the namespace:
// "CreateTenantRequest.address" becomes "address".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok && rest != "" {
		return rest
	}
	return fe.Field()
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "eqfield":
		return "must match " + lowerFirst(param)
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
