package validation

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestVerifyChain(t *testing.T) {
	ca := newTestCA(t)
	leaf := base64.StdEncoding.EncodeToString(ca.leaf.Raw)
	bundle := []string{
		base64.StdEncoding.EncodeToString(ca.root.Raw),
		base64.StdEncoding.EncodeToString(ca.intermediate.Raw),
	}
	during := ca.notBefore.Add(time.Hour)

	check.NoError(t, verifyChain(leaf, bundle, during, ca.roots()))

	// Leaf expired
	check.Error(t, verifyChain(leaf, bundle, ca.notBefore.Add(4*time.Hour), ca.roots()))

	// Intermediate missing from the bundle
	check.Error(t, verifyChain(leaf, bundle[:1], during, ca.roots()))

	// Chain does not lead to the AWS root
	err := ValidateCertificateChain(leaf, bundle, during)
	check.Error(t, err)
	check.True(t, strings.Contains(err.Error(), "certificate chain validation failed"))
}

func TestValidateCertificateChain_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		cert   string
		bundle []string
	}{
		{"cert not base64", "!!!", nil},
		{"cert not der", base64.StdEncoding.EncodeToString([]byte("test-certificate-data")), nil},
		{"bundle not der", "", []string{base64.StdEncoding.EncodeToString([]byte("test-ca-cert"))}},
	}

	ca := newTestCA(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert := tt.cert
			if cert == "" {
				cert = base64.StdEncoding.EncodeToString(ca.leaf.Raw)
			}
			check.Error(t, ValidateCertificateChain(cert, tt.bundle, time.Now()))
		})
	}
}
