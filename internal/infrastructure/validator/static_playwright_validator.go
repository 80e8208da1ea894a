package validator

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/metrics"
)

var (
	playwrightImport = regexp.MustCompile(`from\s+['"]@playwright/test['"]`)
	testCall         = regexp.MustCompile(`\btest(\.describe|\.only|\.skip)?\s*\(`)
	specName         = regexp.MustCompile(`^[\w.-]+\.(spec|test)\.(ts|js)$`)
	hardcodedSecret  = regexp.MustCompile(`(?i)(api[_-]?key|secret|token|password)\s*[:=]\s*['"][^'"]{8,}['"]`)
)

// PlaywrightValidator runs cheap static checks on generated spec files. It
// does not type-check TypeScript.
type PlaywrightValidator struct{}

var _ repository.TestFileValidator = (*PlaywrightValidator)(nil)

func NewPlaywrightValidator() *PlaywrightValidator {
	return &PlaywrightValidator{}
}

func (v *PlaywrightValidator) Name() string {
	return "static_playwright"
}

// Validate returns at most one error per file and marks the offending files.
func (v *PlaywrightValidator) Validate(files []*entity.TestFile) []*entity.ValidationError {
	var errs []*entity.ValidationError
	for _, file := range files {
		file.HasError = false
		file.ErrorMsg = nil

		if verr := v.validateFile(file); verr != nil {
			file.HasError = true
			file.ErrorMsg = verr
			errs = append(errs, verr)
		}
	}

	result := "pass"
	if len(errs) > 0 {
		result = "fail"
	}
	metrics.IncValidationRun(v.Name(), result)
	return errs
}

func (v *PlaywrightValidator) validateFile(file *entity.TestFile) *entity.ValidationError {
	fail := func(line int, format string, args ...interface{}) *entity.ValidationError {
		return &entity.ValidationError{File: file.Name, Message: fmt.Sprintf(format, args...), Line: line}
	}

	if !specName.MatchString(path.Base(file.Name)) {
		return fail(0, "file name %q is not a spec file", file.Name)
	}
	if strings.TrimSpace(file.Content) == "" {
		return fail(0, "file is empty")
	}
	if !playwrightImport.MatchString(file.Content) {
		return fail(1, "missing import from '@playwright/test'")
	}
	if !testCall.MatchString(file.Content) {
		return fail(0, "no test() call found")
	}
	if line, ok := unbalanced(file.Content); !ok {
		return fail(line, "unbalanced brackets")
	}
	if loc := hardcodedSecret.FindStringIndex(file.Content); loc != nil {
		return fail(lineOf(file.Content, loc[0]), "potential hardcoded secret")
	}
	return nil
}

// unbalanced does a bracket match that skips string literals and line comments.
// It returns the line of the first mismatch.
func unbalanced(src string) (int, bool) {
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	var stack []rune
	line := 1
	var quote rune
	escaped := false
	inComment := false

	runes := []rune(src)
	for i, r := range runes {
		if r == '\n' {
			line++
			inComment = false
			if quote != '`' {
				quote = 0
			}
			continue
		}
		if inComment {
			continue
		}
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"', '`':
			quote = r
		case '/':
			if i+1 < len(runes) && runes[i+1] == '/' {
				inComment = true
			}
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return line, false
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return line, false
	}
	return 0, true
}

func lineOf(src string, offset int) int {
	return strings.Count(src[:offset], "\n") + 1
}
