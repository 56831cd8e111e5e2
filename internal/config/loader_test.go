package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadResolvesWorkdirAndEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "work"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(dir, "work", ".env"), strings.Join([]string{
		"# service credentials",
		"export DB_HOST=localhost",
		`DB_NAME="jobs"`,
		"DB_PORT=5432 # default",
	}, "\n"))
	writeFile(t, filepath.Join(dir, "job.yaml"), strings.Join([]string{
		"version: \"1\"",
		"job:",
		"  name: worker",
		"  command: [\"/bin/sh\", \"-c\", \"env\"]",
		"  workdir: work",
		"  envFromFile: .env",
		"  env:",
		"    DB_HOST: override",
		"  path:",
		"    - /opt/tools/bin",
		"  timeout: 30s",
		"  grace: 2s",
		"  tty:",
		"    rows: 24",
		"    cols: 80",
		"metrics:",
		"  listen: 127.0.0.1:7663",
	}, "\n"))

	doc, err := Load(filepath.Join(dir, "job.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got, want := doc.Job.ResolvedWorkdir, filepath.Join(dir, "work"); got != want {
		t.Fatalf("resolved workdir %q, expected %q", got, want)
	}
	if got := doc.Job.Env["DB_HOST"]; got != "override" {
		t.Fatalf("inline env did not win: DB_HOST=%q", got)
	}
	if got := doc.Job.Env["DB_NAME"]; got != "jobs" {
		t.Fatalf("quoted env value: DB_NAME=%q", got)
	}
	if got := doc.Job.Env["DB_PORT"]; got != "5432" {
		t.Fatalf("trailing comment not stripped: DB_PORT=%q", got)
	}
	if len(doc.Job.Path) != 1 || doc.Job.Path[0] != "/opt/tools/bin" {
		t.Fatalf("unexpected path entries %v", doc.Job.Path)
	}
	if got := doc.Job.Timeout.Duration; got != 30*time.Second {
		t.Fatalf("timeout %v, expected 30s", got)
	}
	if !doc.Job.Grace.IsSet() {
		t.Fatalf("grace should be marked explicit")
	}
	if doc.Job.TTY == nil || doc.Job.TTY.Rows != 24 || doc.Job.TTY.Cols != 80 {
		t.Fatalf("unexpected tty spec %+v", doc.Job.TTY)
	}
	if doc.Metrics == nil || doc.Metrics.Listen != "127.0.0.1:7663" {
		t.Fatalf("unexpected metrics spec %+v", doc.Metrics)
	}
}

func TestLoadExpandsEnvironmentReferences(t *testing.T) {
	t.Setenv("LOADER_TEST_REGION", "eu-west-1")

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "job.yaml"), strings.Join([]string{
		"job:",
		"  command: [\"/bin/true\"]",
		"  env:",
		"    REGION: ${LOADER_TEST_REGION}",
	}, "\n"))

	doc, err := Load(filepath.Join(dir, "job.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := doc.Job.Env["REGION"]; got != "eu-west-1" {
		t.Fatalf("env reference not expanded: REGION=%q", got)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "job.yaml"), strings.Join([]string{
		"job:",
		"  command: [\"/bin/true\"]",
		"  restart: always",
	}, "\n"))

	if _, err := Load(filepath.Join(dir, "job.yaml")); err == nil {
		t.Fatalf("expected decode error for unknown field")
	}
}

func TestLoadRejectsMissingCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "job.yaml"), "job:\n  name: empty\n")

	_, err := Load(filepath.Join(dir, "job.yaml"))
	if err == nil || !strings.Contains(err.Error(), "job.command") {
		t.Fatalf("expected job.command validation error, got %v", err)
	}
}

func TestLoadRejectsNegativeGrace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "job.yaml"), strings.Join([]string{
		"job:",
		"  command: [\"/bin/true\"]",
		"  grace: -1s",
	}, "\n"))

	_, err := Load(filepath.Join(dir, "job.yaml"))
	if err == nil || !strings.Contains(err.Error(), "job.grace") {
		t.Fatalf("expected job.grace validation error, got %v", err)
	}
}

func TestLoadRejectsBadListenAddress(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "job.yaml"), strings.Join([]string{
		"job:",
		"  command: [\"/bin/true\"]",
		"metrics:",
		"  listen: not-an-address",
	}, "\n"))

	_, err := Load(filepath.Join(dir, "job.yaml"))
	if err == nil || !strings.Contains(err.Error(), "metrics.listen") {
		t.Fatalf("expected metrics.listen validation error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "job.yaml"), strings.Join([]string{
		"version: \"2\"",
		"job:",
		"  command: [\"/bin/true\"]",
	}, "\n"))

	_, err := Load(filepath.Join(dir, "job.yaml"))
	if err == nil || !strings.Contains(err.Error(), "version") {
		t.Fatalf("expected version validation error, got %v", err)
	}
}

func TestLoadMalformedEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "NOT A VALID LINE\n")
	writeFile(t, filepath.Join(dir, "job.yaml"), strings.Join([]string{
		"job:",
		"  command: [\"/bin/true\"]",
		"  envFromFile: .env",
	}, "\n"))

	_, err := Load(filepath.Join(dir, "job.yaml"))
	if err == nil || !strings.Contains(err.Error(), "invalid line") {
		t.Fatalf("expected env file parse error, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	named := &JobSpec{Name: "api", Command: []string{"/usr/bin/server"}}
	if got := named.DisplayName(); got != "api" {
		t.Fatalf("display name %q, expected %q", got, "api")
	}
	unnamed := &JobSpec{Command: []string{"/usr/bin/server", "--port", "80"}}
	if got := unnamed.DisplayName(); got != "server" {
		t.Fatalf("display name %q, expected %q", got, "server")
	}
	var nilJob *JobSpec
	if got := nilJob.DisplayName(); got != "" {
		t.Fatalf("nil job display name %q, expected empty", got)
	}
}
