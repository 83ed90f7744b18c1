package youtube

import (
	"net/http"
	"strings"

	"cageclock/internal/services"
)

var quotaMarkers = []string{"quota", "exceeded", "dailylimitexceeded", "quotaexceeded"}

// classify maps an upstream failure onto the error taxonomy. A 403 whose
// message or reason mentions quota is a quota error; any other 401/403 is an
// auth error; everything else is an upstream error.
func classify(status int, apiErr *apiError, body []byte) *services.Error {
	code := status
	message := ""
	if apiErr != nil {
		if apiErr.Code != 0 {
			code = apiErr.Code
		}
		message = strings.TrimSpace(apiErr.Message)
	}
	if code == 0 || code < 300 {
		code = http.StatusInternalServerError
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
		if len(message) > 200 || message == "" {
			message = "Unknown error occurred"
		}
	}

	switch {
	case code == http.StatusForbidden && isQuotaMessage(message, apiErr):
		return services.New(services.KindQuota, code, message)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return services.New(services.KindAuth, code, message)
	default:
		return services.New(services.KindUpstream, code, message)
	}
}

func isQuotaMessage(message string, apiErr *apiError) bool {
	candidates := []string{strings.ToLower(message)}
	if apiErr != nil {
		for _, detail := range apiErr.Errors {
			candidates = append(candidates, strings.ToLower(detail.Reason), strings.ToLower(detail.Message))
		}
	}
	for _, text := range candidates {
		for _, marker := range quotaMarkers {
			if strings.Contains(text, marker) {
				return true
			}
		}
	}
	return false
}
