package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
		client    bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true, client: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required", client: true},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found", client: true},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", client: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true, client: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded", client: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
		if meta.ClientFacing != tt.client {
			t.Fatalf("code %s expected client facing %v got %v", tt.code, tt.client, meta.ClientFacing)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection reset")
	wrapped := Wrap(CodeDependency, cause, "load cart")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if !strings.Contains(wrapped.Error(), "connection reset") {
		t.Fatalf("expected cause in error string, got %q", wrapped.Error())
	}
	if Wrap(CodeNotFound, nil, "cart not found").Unwrap() != nil {
		t.Fatalf("wrap of nil should not carry a cause")
	}
}

func TestAsAndIsCodeThroughFmtWrapping(t *testing.T) {
	typed := New(CodeNotFound, "participant not found in cart").WithDetails(map[string]any{"cart_id": "c1"})
	err := fmt.Errorf("remove: %w", typed)

	got := As(err)
	if got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if got.Details() == nil {
		t.Fatalf("details should be preserved")
	}
	if !IsCode(err, CodeNotFound) || IsCode(err, CodeConflict) {
		t.Fatalf("IsCode mismatch")
	}
	if As(nil) != nil || IsCode(nil, CodeNotFound) {
		t.Fatalf("nil handling broken")
	}
}
