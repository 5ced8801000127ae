package openai

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/resumeqa/internal/domain"
)

var rateLimitCodes = map[string]struct{}{
	"rate_limit_exceeded": {},
	"insufficient_quota":  {},
	"resource_exhausted":  {},
}

// classifyError maps SDK and transport failures onto domain error kinds.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if isRateLimitCode(apiErr.Type) || isRateLimitCode(codeString(apiErr.Code)) {
			return domain.NewRateLimitedError(op, err)
		}
		return classifyStatus(op, apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(op, reqErr.HTTPStatusCode, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.NewTransientError(op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.NewTransientError(op, err)
	}

	return domain.NewProviderError(op, err)
}

func classifyStatus(op string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return domain.NewRateLimitedError(op, err)
	case status == http.StatusRequestTimeout, status >= 500:
		return domain.NewTransientError(op, err)
	default:
		return domain.NewProviderError(op, err)
	}
}

func isRateLimitCode(code string) bool {
	_, ok := rateLimitCodes[strings.ToLower(code)]
	return ok
}

func codeString(code any) string {
	s, _ := code.(string)
	return s
}
