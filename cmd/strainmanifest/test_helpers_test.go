package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"strainmanifest/internal/testsupport"
)

const fixtureHeader = "run_accession\ttax_id\tstrain\n"

type cliTestEnv struct {
	portal     *testsupport.Portal
	configPath string
	resultsDir string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, accessions ...string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("ENA_PORTAL_URL", "")
	t.Setenv("STRAINMANIFEST_RESULTS_DIR", "")

	portal := testsupport.NewPortal(t)
	portal.Set("PRJEB1", fixtureHeader+
		"ERR1\t4932\tS1\n"+
		"ERR2\t4932\tS1\n"+
		"ERR3\t562\tS9\n")
	portal.Set("PRJEB2", fixtureHeader+
		"ERR4\t4932\tS2\n"+
		"ERR1\t4932\tS1\n")

	env := &cliTestEnv{
		portal:     portal,
		configPath: filepath.Join(homeDir, ".config", "strainmanifest", "config.toml"),
		resultsDir: filepath.Join(base, "results", "table"),
		baseDir:    base,
	}
	writeTestConfig(t, env, accessions)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv, accessions []string) {
	t.Helper()
	quoted := make([]string, 0, len(accessions))
	for _, a := range accessions {
		quoted = append(quoted, fmt.Sprintf("%q", a))
	}
	content := fmt.Sprintf(
		"[pipeline]\naccessions = [%s]\ntax_id = 4932\nresults_dir = %q\nmin_free_mib = 0\n\n[fetch]\nbase_url = %q\nworkers = 2\n",
		strings.Join(quoted, ", "),
		env.resultsDir,
		env.portal.Endpoint(),
	)
	testsupport.WriteFile(t, env.configPath, content)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
