package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("TAX_RATE", "")

	cfg := Load()
	if cfg.Port != "8000" {
		t.Fatalf("expected default port 8000, got %s", cfg.Port)
	}
	if !cfg.TaxRate.IsZero() {
		t.Fatalf("expected zero default tax rate, got %s", cfg.TaxRate)
	}
}

func TestLoadTaxRate(t *testing.T) {
	t.Setenv("TAX_RATE", "0.11")
	cfg := Load()
	if cfg.TaxRate.String() != "0.11" {
		t.Fatalf("expected tax rate 0.11, got %s", cfg.TaxRate)
	}
}

func TestLoadTaxRateRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"-0.1", "1", "2.5", "abc"} {
		t.Setenv("TAX_RATE", raw)
		cfg := Load()
		if !cfg.TaxRate.IsZero() {
			t.Fatalf("expected invalid TAX_RATE %q to fall back to zero, got %s", raw, cfg.TaxRate)
		}
	}
}
