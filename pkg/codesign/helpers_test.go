package codesign

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.mozilla.org/pkcs7"
	"howett.net/plist"
)

const testUUID = "1A2B3C4D-5E6F-4A1B-8C2D-3E4F5A6B7C8D"

// newTestCertificate creates a self-signed certificate shaped like an Apple developer certificate
func newTestCertificate(t *testing.T) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:         "Apple Distribution: Example Corp (TEAM123456)",
			OrganizationalUnit: []string{"TEAM123456"},
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(24 * time.Hour),
		KeyUsage:  x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("Failed to parse certificate: %v", err)
	}
	return cert, key
}

// buildMobileProvision wraps profile in a CMS envelope like Apple's .mobileprovision files
func buildMobileProvision(t *testing.T, profile *ProvisioningProfile) []byte {
	t.Helper()

	cert, key := newTestCertificate(t)
	if profile.DeveloperCertificates == nil {
		profile.DeveloperCertificates = [][]byte{cert.Raw}
	}

	payload, err := plist.MarshalIndent(profile, plist.XMLFormat, "\t")
	if err != nil {
		t.Fatalf("Failed to marshal profile: %v", err)
	}

	signedData, err := pkcs7.NewSignedData(payload)
	if err != nil {
		t.Fatalf("Failed to create signed data: %v", err)
	}
	if err := signedData.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		t.Fatalf("Failed to add signer: %v", err)
	}
	der, err := signedData.Finish()
	if err != nil {
		t.Fatalf("Failed to finish signed data: %v", err)
	}
	return der
}

func testProfile() *ProvisioningProfile {
	return &ProvisioningProfile{
		Name:           "Example Ad Hoc",
		TeamName:       "Example Corp",
		TeamIdentifier: []string{"TEAM123456"},
		AppIDName:      "Example",
		Entitlements: map[string]interface{}{
			"application-identifier": "TEAM123456.com.example.app",
			"get-task-allow":         false,
		},
		ProvisionedDevices: []string{"00008030-001A2B3C4D5E6F70"},
		CreationDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpirationDate:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UUID:               testUUID,
		Platform:           []string{"iOS"},
	}
}

// writeFile writes data to path, creating parent directories
func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}
