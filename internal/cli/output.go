package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// writeJSON renders v as two-space-indented JSON followed by a newline,
// the shape every --json command emits.
func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func printJSON(v any) error {
	return writeJSON(os.Stdout, v)
}
