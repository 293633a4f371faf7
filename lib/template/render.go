// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
)

// ErrNotFound is returned (wrapped) by Render when the template file
// does not exist under the store root.
var ErrNotFound = errors.New("template not found")

// Store loads and renders JSONC document templates from a root
// directory. The zero value is not usable; construct with NewStore.
type Store struct {
	root string
}

// NewStore creates a template store rooted at dir. Returns an error
// if dir does not exist or is not a directory.
func NewStore(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("template store root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template store root %s is not a directory", dir)
	}
	return &Store{root: dir}, nil
}

// variablePattern matches ${NAME} references. Only the braced form is
// recognized; a bare $NAME passes through untouched.
var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Render loads the template at path (relative to the store root),
// substitutes ${NAME} placeholders from substitutions, strips JSONC
// comments and trailing commas, and returns the validated JSON
// document.
//
// Substituted values are JSON-string-escaped, so user input containing
// quotes or newlines cannot break out of the string it is inserted
// into. Returns an error listing every referenced placeholder that has
// no value in substitutions.
func (s *Store) Render(path string, substitutions map[string]string) (json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading template %s: %w", path, err)
	}

	expanded, err := expand(string(data), substitutions)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}

	stripped := jsonc.ToJSON([]byte(expanded))

	// Round-trip through json.Unmarshal so a malformed template (or a
	// substitution that produced invalid JSON) is caught here, not at
	// the Slack or Azure DevOps API boundary.
	var document any
	if err := json.Unmarshal(stripped, &document); err != nil {
		return nil, fmt.Errorf("template %s is not valid JSON after substitution: %w", path, err)
	}

	return json.RawMessage(stripped), nil
}

// expand replaces ${NAME} references with JSON-string-escaped values.
// Returns an error naming all unresolved references so template
// authoring mistakes fail fast.
func expand(input string, substitutions map[string]string) (string, error) {
	var unresolved []string

	result := variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[2 : len(match)-1]
		value, exists := substitutions[name]
		if !exists {
			unresolved = append(unresolved, name)
			return match
		}
		return escapeJSONString(value)
	})

	if len(unresolved) > 0 {
		sort.Strings(unresolved)
		return "", fmt.Errorf("unresolved template variables: %s", strings.Join(unresolved, ", "))
	}
	return result, nil
}

// escapeJSONString returns the value escaped for inclusion inside a
// JSON string literal (without the surrounding quotes).
func escapeJSONString(value string) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		// json.Marshal of a string cannot fail; keep the compiler and
		// the reader honest anyway.
		return value
	}
	return string(encoded[1 : len(encoded)-1])
}
