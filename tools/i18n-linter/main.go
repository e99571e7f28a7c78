// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the locale files against the message IDs used in the
// Go sources. It reports IDs used in code but missing from the primary
// locale, IDs missing from or extra in the other locales, and IDs nothing
// uses. Only missing IDs fail the run.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
)

// keySet is a set of flattened message IDs.
type keySet map[string]struct{}

func (s keySet) sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// usage collects the message IDs referenced from source. Prefixes holds
// IDs built at runtime, e.g. i18n.T("error." + kind).
type usage struct {
	Keys     keySet
	Prefixes keySet
}

func (u usage) covers(key string) bool {
	if _, ok := u.Keys[key]; ok {
		return true
	}
	for p := range u.Prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// report is the outcome of one lint run.
type report struct {
	Undefined []string            // used in code, absent from the primary locale
	Orphaned  []string            // in the primary locale, never used
	Missing   map[string][]string // per locale file, absent compared to primary
	Extra     map[string][]string // per locale file, not in primary
}

func (r report) failed() bool {
	if len(r.Undefined) > 0 {
		return true
	}
	for _, keys := range r.Missing {
		if len(keys) > 0 {
			return true
		}
	}
	return false
}

func main() {
	rep, err := lint(".", localesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "i18n-linter: %v\n", err)
		os.Exit(2)
	}
	rep.print(os.Stdout)
	if rep.failed() {
		os.Exit(1)
	}
}

func lint(root, locales string) (report, error) {
	used, err := findUsedKeys(root)
	if err != nil {
		return report{}, fmt.Errorf("scan sources: %w", err)
	}
	primary, err := loadKeysFromLocale(filepath.Join(locales, primaryLocale))
	if err != nil {
		return report{}, fmt.Errorf("load %s: %w", primaryLocale, err)
	}
	files, err := filepath.Glob(filepath.Join(locales, "*.yaml"))
	if err != nil {
		return report{}, err
	}

	rep := report{Missing: map[string][]string{}, Extra: map[string][]string{}}
	for _, k := range used.Keys.sorted() {
		if _, ok := primary[k]; !ok {
			rep.Undefined = append(rep.Undefined, k)
		}
	}
	for _, k := range primary.sorted() {
		if !used.covers(k) {
			rep.Orphaned = append(rep.Orphaned, k)
		}
	}

	for _, file := range files {
		name := filepath.Base(file)
		if name == primaryLocale {
			continue
		}
		keys, err := loadKeysFromLocale(file)
		if err != nil {
			return report{}, fmt.Errorf("load %s: %w", name, err)
		}
		for _, k := range primary.sorted() {
			if _, ok := keys[k]; !ok {
				rep.Missing[name] = append(rep.Missing[name], k)
			}
		}
		for _, k := range keys.sorted() {
			if _, ok := primary[k]; !ok {
				rep.Extra[name] = append(rep.Extra[name], k)
			}
		}
	}
	return rep, nil
}

func (r report) print(w io.Writer) {
	section := func(title string, keys []string) {
		_, _ = fmt.Fprintf(w, "%s: %d\n", title, len(keys))
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "  - %s\n", k)
		}
	}
	section("undefined", r.Undefined)
	section("orphaned", r.Orphaned)
	for _, name := range sortedNames(r.Missing) {
		section("missing in "+name, r.Missing[name])
	}
	for _, name := range sortedNames(r.Extra) {
		section("extra in "+name, r.Extra[name])
	}
}

func sortedNames(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var (
	literalCall = regexp.MustCompile(`i18n\.T\("([^"]+)"\s*[,)]`)
	prefixCall  = regexp.MustCompile(`i18n\.T\("([^"]+)"\s*\+`)
)

// findUsedKeys scans the non-test .go files under root for i18n.T calls.
// The tools and _examples trees are skipped.
func findUsedKeys(root string) (usage, error) {
	u := usage{Keys: keySet{}, Prefixes: keySet{}}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && (info.Name() == "tools" || strings.HasPrefix(info.Name(), "_") || strings.HasPrefix(info.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, m := range literalCall.FindAllStringSubmatch(string(content), -1) {
			u.Keys[m[1]] = struct{}{}
		}
		for _, m := range prefixCall.FindAllStringSubmatch(string(content), -1) {
			u.Prefixes[m[1]] = struct{}{}
		}
		return nil
	})
	return u, err
}

// loadKeysFromLocale reads a YAML locale and returns its flattened IDs.
func loadKeysFromLocale(path string) (keySet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := keySet{}
	flattenYAML("", data, keys)
	return keys, nil
}

func flattenYAML(prefix string, node any, keys keySet) {
	switch v := node.(type) {
	case map[string]any:
		for k, val := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenYAML(next, val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}
