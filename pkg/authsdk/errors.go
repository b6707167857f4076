package authsdk

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// APIError is a non-200 response from the auth service.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("authsdk: %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("authsdk: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// parseErrorResponse decodes the {error, error_description} body when there
// is one, and otherwise reports the status alone.
func parseErrorResponse(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unexpected_status"
		apiErr.Description = ""
	}
	return apiErr
}
