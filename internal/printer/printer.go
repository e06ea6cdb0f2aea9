package printer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dyluth/gamedata/pkg/datastore"
	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Out receives command output. ErrOut receives errors, warnings and progress
// steps so that Out stays pipeable. Tests replace both.
var (
	Out    io.Writer = os.Stdout
	ErrOut io.Writer = os.Stderr
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(Out, msg)
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Fprintf(Out, format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(ErrOut, msg)
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Fprintf(ErrOut, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints a formatted error with title, explanation and suggestions to
// ErrOut and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext prints a formatted error with context details to ErrOut
// and returns a simple error for Cobra. Context keys are printed sorted.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(ErrOut, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(ErrOut, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for key := range context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(ErrOut, "\n")
		for _, key := range keys {
			fmt.Fprintf(ErrOut, "  %s: %s\n", key, context[key])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(ErrOut, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(ErrOut, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(ErrOut, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(ErrOut, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// StoreError renders a data store failure, using the error's code for the
// title and its metadata as context. Errors without a code are printed under
// fallbackTitle.
func StoreError(fallbackTitle string, err error) error {
	var storeErr *datastore.Error
	if !errors.As(err, &storeErr) {
		return Error(fallbackTitle, err.Error(), nil)
	}

	title := fmt.Sprintf("%s: %s", fallbackTitle, storeErr.Code)
	return ErrorWithContext(title, storeErr.Message, storeErr.Metadata, suggestionsFor(storeErr.Code))
}

func suggestionsFor(code datastore.Code) []string {
	switch code {
	case datastore.CodeNamespaceNotFound:
		return []string{"Create the namespace first, or add it to the namespaces section of gamedata.yml"}
	case datastore.CodeInvalidConversion:
		return []string{"Write a value convertible to the property's existing type, or remove the property first"}
	case datastore.CodeReserved:
		return []string{"Scripts cannot modify namespaces owned by the engine; pick a type and namespace without a reserved prefix"}
	case datastore.CodeNotOnRestrictedStore:
		return []string{"This operation is only available to trusted code"}
	default:
		return nil
	}
}
