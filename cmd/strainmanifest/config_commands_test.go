package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, "PRJEB1")

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Accessions: 1")
	requireContains(t, out, "Taxon: 4932")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateWithoutAccessions(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Not ready to run")
}

func TestConfigInitProjectFileIsPickedUp(t *testing.T) {
	setupCLITestEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	if _, _, err := runCLI(t, []string{"config", "init", "--project"}, ""); err != nil {
		t.Fatalf("config init --project: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "strainmanifest.toml")); err != nil {
		t.Fatalf("expected project config: %v", err)
	}

	// Without --config the project file wins over the user config written by
	// the test environment, which lists no accessions.
	out, _, err := runCLI(t, []string{"config", "validate"}, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, filepath.Join(dir, "strainmanifest.toml"))
	requireContains(t, out, "Accessions: 1")
}
