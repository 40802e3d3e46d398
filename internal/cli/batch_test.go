package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeBatchSource(t *testing.T, root string, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir source dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("module.exports = {}\n"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}
}

func TestBatch_DryRun_PlansWithoutSpawning(t *testing.T) {
	installFakeBabel(t, "#!/bin/sh\ntouch \"$(dirname \"$0\")/spawned\"\n")

	src := t.TempDir()
	writeBatchSource(t, src, "app.js")
	writeBatchSource(t, src, "lib/util.js")
	writeBatchSource(t, src, "lib/readme.md")
	writeBatchSource(t, src, "node_modules/dep/index.js")
	outDir := filepath.Join(t.TempDir(), "dist")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	exitCode := Execute([]string{"batch", "--src", src, "--out-dir", outDir, "--dry-run"}, &stdout, &stderr)
	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d, stderr=%s", exitCode, stderr.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON output, got err: %v", err)
	}
	if payload["command"] != "batch" {
		t.Fatalf("unexpected command value: %v", payload["command"])
	}
	if payload["dryRun"] != true {
		t.Fatalf("expected dryRun=true, got %v", payload["dryRun"])
	}
	summary, ok := payload["summary"].(map[string]any)
	if !ok {
		t.Fatalf("missing summary payload: %#v", payload)
	}
	if summary["planned"] != float64(2) {
		t.Fatalf("expected planned=2, got %v", summary["planned"])
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatalf("expected no output directory on dry run, stat err=%v", err)
	}
}

func TestBatch_TranspilesTreeIntoMirroredOutput(t *testing.T) {
	installFakeBabel(t, "#!/bin/sh\ncp \"$1\" \"$3\"\n")

	src := t.TempDir()
	writeBatchSource(t, src, "app.js")
	writeBatchSource(t, src, "lib/util.js")
	outDir := filepath.Join(t.TempDir(), "dist")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	exitCode := Execute([]string{"batch", "--src", src, "--out-dir", outDir, "--workers", "1"}, &stdout, &stderr)
	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d, stderr=%s", exitCode, stderr.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON output, got err: %v", err)
	}
	summary, ok := payload["summary"].(map[string]any)
	if !ok {
		t.Fatalf("missing summary payload: %#v", payload)
	}
	if summary["succeeded"] != float64(2) || summary["failed"] != float64(0) {
		t.Fatalf("unexpected summary: %#v", summary)
	}

	for _, rel := range []string{"app.js", "lib/util.js"} {
		if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel))); err != nil {
			t.Fatalf("expected mirrored output %s: %v", rel, err)
		}
	}
}

func TestBatch_FailuresReturnExitCode3(t *testing.T) {
	installFakeBabel(t, "#!/bin/sh\nexit 1\n")

	src := t.TempDir()
	writeBatchSource(t, src, "a.js")
	writeBatchSource(t, src, "b.js")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	exitCode := Execute([]string{"batch", "--src", src, "--out-dir", filepath.Join(t.TempDir(), "dist"), "--workers", "1"}, &stdout, &stderr)
	if exitCode != 3 {
		t.Fatalf("expected exit code 3, got %d, stderr=%s", exitCode, stderr.String())
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected empty stderr, got %s", stderr.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON output, got err: %v", err)
	}
	summary, ok := payload["summary"].(map[string]any)
	if !ok {
		t.Fatalf("missing summary payload: %#v", payload)
	}
	if summary["failed"] != float64(2) {
		t.Fatalf("expected failed=2, got %v", summary["failed"])
	}
	failures, ok := payload["failures"].([]any)
	if !ok || len(failures) != 2 {
		t.Fatalf("unexpected failures payload: %#v", payload["failures"])
	}
}

func TestBatch_MissingOutDir_IsUsageError(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute([]string{"batch"}, &stdout, &stderr)
	if exitCode != 2 {
		t.Fatalf("expected exit code 2, got %d", exitCode)
	}

	var payload map[string]any
	if err := json.Unmarshal(stderr.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON error output, got err: %v, stderr=%s", err, stderr.String())
	}
	errVal, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("missing error object: %v", payload)
	}
	message, _ := errVal["message"].(string)
	if !strings.Contains(message, "--out-dir") {
		t.Fatalf("expected out-dir message, got %q", message)
	}
}

func TestBatch_InvalidWorkers_IsUsageError(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute([]string{"batch", "--out-dir", "dist", "--workers", "0"}, &stdout, &stderr)
	if exitCode != 2 {
		t.Fatalf("expected exit code 2, got %d", exitCode)
	}
}

func TestBatch_InvalidIncludeGlob_IsUsageError(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute([]string{"batch", "--out-dir", "dist", "--include", "["}, &stdout, &stderr)
	if exitCode != 2 {
		t.Fatalf("expected exit code 2, got %d", exitCode)
	}

	var payload map[string]any
	if err := json.Unmarshal(stderr.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON error output, got err: %v, stderr=%s", err, stderr.String())
	}
	errVal, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("missing error object: %v", payload)
	}
	message, _ := errVal["message"].(string)
	if !strings.Contains(message, "invalid value for --include") {
		t.Fatalf("expected include validation message, got %q", message)
	}
}

func TestBatch_MissingSourceDir_ReturnsRuntimeError(t *testing.T) {
	installFakeBabel(t, "#!/bin/sh\nexit 0\n")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	exitCode := Execute([]string{"batch", "--src", missing, "--out-dir", "dist"}, &stdout, &stderr)
	if exitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", exitCode)
	}

	var payload map[string]any
	if err := json.Unmarshal(stderr.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON error output, got err: %v, stderr=%s", err, stderr.String())
	}
	errVal, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("missing error object: %v", payload)
	}
	if errVal["code"] != "runtime_error" {
		t.Fatalf("unexpected error code: %v", errVal["code"])
	}
}
