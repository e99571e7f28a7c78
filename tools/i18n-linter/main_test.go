// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFlattenYAML(t *testing.T) {
	keys := keySet{}
	flattenYAML("", map[string]any{
		"run":   map[string]any{"done": "x", "nested": map[string]any{"deep": "y"}},
		"plain": "z",
	}, keys)
	want := []string{"plain", "run.done", "run.nested.deep"}
	if got := keys.sorted(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
}

func TestFindUsedKeys(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.go"), `package a
func f(kind string) {
	_ = i18n.T("run.done", 1)
	_ = i18n.T("run.no_ops")
	_ = i18n.T("error." + kind)
}`)
	writeFile(t, filepath.Join(dir, "a_test.go"), `package a
func g() { _ = i18n.T("test.only") }`)
	writeFile(t, filepath.Join(dir, "tools", "x.go"), `package x
func h() { _ = i18n.T("tool.key") }`)

	u, err := findUsedKeys(dir)
	if err != nil {
		t.Fatalf("findUsedKeys: %v", err)
	}
	if got, want := u.Keys.sorted(), []string{"run.done", "run.no_ops"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	if !u.covers("error.StorageError") {
		t.Fatal("dynamic prefix should cover error.StorageError")
	}
	if u.covers("history.empty") {
		t.Fatal("history.empty is not used")
	}
}

func TestLint(t *testing.T) {
	dir := t.TempDir()
	locales := filepath.Join(dir, "locales")
	writeFile(t, filepath.Join(dir, "main.go"), `package main
func f(kind string) {
	_ = i18n.T("run.done")
	_ = i18n.T("run.gone")
	_ = i18n.T("error." + kind)
}`)
	writeFile(t, filepath.Join(locales, "en.yaml"), "run:\n  done: d\n  unused: u\nerror:\n  StorageError: s\n")
	writeFile(t, filepath.Join(locales, "de.yaml"), "run:\n  done: d\n  stale: s\n")

	rep, err := lint(dir, locales)
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if want := []string{"run.gone"}; !reflect.DeepEqual(rep.Undefined, want) {
		t.Errorf("undefined = %v, want %v", rep.Undefined, want)
	}
	if want := []string{"run.unused"}; !reflect.DeepEqual(rep.Orphaned, want) {
		t.Errorf("orphaned = %v, want %v", rep.Orphaned, want)
	}
	if want := []string{"error.StorageError", "run.unused"}; !reflect.DeepEqual(rep.Missing["de.yaml"], want) {
		t.Errorf("missing = %v, want %v", rep.Missing["de.yaml"], want)
	}
	if want := []string{"run.stale"}; !reflect.DeepEqual(rep.Extra["de.yaml"], want) {
		t.Errorf("extra = %v, want %v", rep.Extra["de.yaml"], want)
	}
	if !rep.failed() {
		t.Error("report should fail")
	}

	var buf bytes.Buffer
	rep.print(&buf)
	if !strings.Contains(buf.String(), "missing in de.yaml: 2") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestLintRepositoryLocales(t *testing.T) {
	root := filepath.Join("..", "..")
	rep, err := lint(root, filepath.Join(root, localesDir))
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if rep.failed() {
		var buf bytes.Buffer
		rep.print(&buf)
		t.Fatalf("locale files are inconsistent:\n%s", buf.String())
	}
}
