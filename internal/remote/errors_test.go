package remote

import (
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassifyMapsGRPCCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     codes.Code
		expected error
	}{
		{name: "permission denied", code: codes.PermissionDenied, expected: ErrPermissionDenied},
		{name: "not found", code: codes.NotFound, expected: ErrNotFound},
		{name: "unavailable", code: codes.Unavailable, expected: ErrUnavailable},
		{name: "deadline exceeded maps to unavailable", code: codes.DeadlineExceeded, expected: ErrUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := status.Error(tc.code, "remote said no")
			classified := classify("delete clients document x", raw)
			if !errors.Is(classified, tc.expected) {
				t.Fatalf("classify(%v) = %v, want %v", tc.code, classified, tc.expected)
			}
		})
	}
}

func TestClassifyPassesThroughUnknownErrors(t *testing.T) {
	raw := errors.New("socket closed")
	classified := classify("list clients documents", raw)
	if !errors.Is(classified, raw) {
		t.Fatalf("expected the original error to be wrapped, got %v", classified)
	}
	if errors.Is(classified, ErrPermissionDenied) || errors.Is(classified, ErrNotFound) || errors.Is(classified, ErrUnavailable) {
		t.Fatalf("unknown errors must not match a taxonomy class")
	}
}

func TestClassifyNil(t *testing.T) {
	if classify("noop", nil) != nil {
		t.Fatalf("nil error must classify to nil")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{}).Validate(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := (Config{ProjectID: "p"}).Validate(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected missing credentials to fail, got %v", err)
	}
	if err := (Config{ProjectID: "p", CredentialsPath: "key.json"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
