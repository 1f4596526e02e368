package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/temcen/shelfrec/internal/validation"
)

const maxIdentifierLength = 64

// ValidationMiddleware checks request bodies against JSON schemas and
// query/path parameters against the identifier rules.
type ValidationMiddleware struct {
	validator *validation.SchemaValidator
}

func NewValidationMiddleware(validator *validation.SchemaValidator) *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validator,
	}
}

func (vm *ValidationMiddleware) ValidateChatRequest() gin.HandlerFunc {
	return vm.validateRequestBody(validation.ChatRequestSchema, true)
}

// ValidateReloadRequest accepts an empty body as an empty reload request.
func (vm *ValidationMiddleware) ValidateReloadRequest() gin.HandlerFunc {
	return vm.validateRequestBody(validation.ReloadRequestSchema, false)
}

func (vm *ValidationMiddleware) validateRequestBody(schemaName string, bodyRequired bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodDelete {
			c.Next()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			vm.sendValidationError(c, "BODY_READ_ERROR", "Failed to read request body", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		// Restore request body for downstream handlers
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		if len(bytes.TrimSpace(bodyBytes)) == 0 {
			if bodyRequired {
				vm.sendValidationError(c, "EMPTY_BODY", "Request body is required", nil)
				return
			}
			c.Next()
			return
		}

		var jsonData interface{}
		if err := json.Unmarshal(bodyBytes, &jsonData); err != nil {
			vm.sendValidationError(c, "INVALID_JSON", "Request body must be valid JSON", map[string]interface{}{
				"parseError": err.Error(),
			})
			return
		}

		result := vm.validator.ValidateJSONString(schemaName, string(bodyBytes))
		if !result.Valid {
			apiError := result.ToAPIError()
			if errorObj, ok := apiError["error"].(map[string]interface{}); ok {
				errorObj["timestamp"] = time.Now().UTC().Format(time.RFC3339)
				errorObj["requestId"] = c.GetString(RequestIDKey)
				errorObj["path"] = c.Request.URL.Path
				errorObj["method"] = c.Request.Method
			}

			c.JSON(http.StatusBadRequest, apiError)
			c.Abort()
			return
		}

		c.Set("validatedBody", jsonData)
		c.Next()
	}
}

// ValidateQueryParams checks count, user_id, item_id and the itemId path parameter.
func (vm *ValidationMiddleware) ValidateQueryParams() gin.HandlerFunc {
	return func(c *gin.Context) {
		errors := make([]validation.ValidationError, 0)

		if count := c.Query("count"); count != "" {
			if !vm.isValidPositiveInt(count, 1, 100) {
				errors = append(errors, validation.ValidationError{
					Field:   "count",
					Message: "Count must be an integer between 1 and 100",
					Code:    "INVALID_QUERY_PARAM",
					Value:   count,
				})
			}
		}

		for _, field := range []string{"user_id", "item_id"} {
			if value, ok := c.GetQuery(field); ok && !vm.isValidIdentifier(value) {
				errors = append(errors, validation.ValidationError{
					Field:   field,
					Message: fmt.Sprintf("%s must be 1-%d alphanumeric characters, hyphens or underscores", field, maxIdentifierLength),
					Code:    "INVALID_QUERY_PARAM",
					Value:   value,
				})
			}
		}

		if itemID := c.Param("itemId"); itemID != "" {
			if !vm.isValidIdentifier(itemID) {
				errors = append(errors, validation.ValidationError{
					Field:   "itemId",
					Message: "Item ID must contain only alphanumeric characters, hyphens, and underscores",
					Code:    "INVALID_PATH_PARAM",
					Value:   itemID,
				})
			}
		}

		if len(errors) > 0 {
			vm.sendValidationErrors(c, errors)
			return
		}

		c.Next()
	}
}

// ValidateHeaders requires a JSON Content-Type on requests that carry a body.
func (vm *ValidationMiddleware) ValidateHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		errors := make([]validation.ValidationError, 0)

		if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
			contentType := c.GetHeader("Content-Type")
			if contentType == "" {
				errors = append(errors, validation.ValidationError{
					Field:   "Content-Type",
					Message: "Content-Type header is required",
					Code:    "MISSING_HEADER",
				})
			} else if !strings.Contains(contentType, "application/json") {
				errors = append(errors, validation.ValidationError{
					Field:   "Content-Type",
					Message: "Content-Type must be application/json",
					Code:    "INVALID_HEADER",
					Value:   contentType,
				})
			}
		}

		if len(errors) > 0 {
			vm.sendValidationErrors(c, errors)
			return
		}

		c.Next()
	}
}

func (vm *ValidationMiddleware) isValidPositiveInt(value string, min, max int) bool {
	num, err := strconv.Atoi(value)
	if err != nil {
		return false
	}
	return num >= min && num <= max
}

func (vm *ValidationMiddleware) isValidIdentifier(value string) bool {
	if len(value) == 0 || len(value) > maxIdentifierLength {
		return false
	}
	for _, char := range value {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '-' || char == '_') {
			return false
		}
	}
	return true
}

// Error response helpers
func (vm *ValidationMiddleware) sendValidationError(c *gin.Context, code, message string, details map[string]interface{}) {
	errorResponse := map[string]interface{}{
		"error": map[string]interface{}{
			"code":      code,
			"message":   message,
			"details":   details,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": c.GetString(RequestIDKey),
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
		},
	}

	c.JSON(http.StatusBadRequest, errorResponse)
	c.Abort()
}

func (vm *ValidationMiddleware) sendValidationErrors(c *gin.Context, errors []validation.ValidationError) {
	errorDetails := make(map[string]interface{})
	errorDetails["validationErrors"] = errors

	// Group errors by field for easier client handling
	fieldErrors := make(map[string][]string)
	for _, err := range errors {
		if err.Field != "" {
			fieldErrors[err.Field] = append(fieldErrors[err.Field], err.Message)
		}
	}

	if len(fieldErrors) > 0 {
		errorDetails["fieldErrors"] = fieldErrors
	}

	errorResponse := map[string]interface{}{
		"error": map[string]interface{}{
			"code":      "VALIDATION_ERROR",
			"message":   "Request validation failed",
			"details":   errorDetails,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": c.GetString(RequestIDKey),
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
		},
	}

	c.JSON(http.StatusBadRequest, errorResponse)
	c.Abort()
}
