package utils

import "testing"

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"alice@example.com", false},
		{"a.b+c@sub.domain.org", false},
		{"not-an-email", true},
		{"@example.com", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCurrencyCode(t *testing.T) {
	tests := []struct {
		code    string
		wantErr bool
	}{
		{"USD", false},
		{"EUR", false},
		{"usd", true},
		{"USDX", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := ValidateCurrencyCode(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCurrencyCode(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(42.50); err != nil {
		t.Errorf("ValidateAmount(42.50) = %v, want nil", err)
	}
	if err := ValidateAmount(0); err == nil {
		t.Error("ValidateAmount(0) = nil, want error")
	}
	if err := ValidateAmount(-1); err == nil {
		t.Error("ValidateAmount(-1) = nil, want error")
	}
}

func TestValidatePercentage(t *testing.T) {
	for _, pct := range []int{0, 50, 100} {
		if err := ValidatePercentage(pct); err != nil {
			t.Errorf("ValidatePercentage(%d) = %v, want nil", pct, err)
		}
	}
	for _, pct := range []int{-1, 101} {
		if err := ValidatePercentage(pct); err == nil {
			t.Errorf("ValidatePercentage(%d) = nil, want error", pct)
		}
	}
}
