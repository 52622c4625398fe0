package namespaces

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/syssam/lookgen/compiler/load"
)

// Header marks the namespaces document as machine-written.
const Header = "# Code generated by lookgen. DO NOT EDIT.\n"

// WriteDocument serializes the resolved namespace mapping as the
// namespaces.yaml document. Map keys serialize in sorted order, so identical
// inputs produce identical bytes.
func WriteDocument(w io.Writer, resolved load.CustomNamespaces) error {
	if _, err := io.WriteString(w, Header); err != nil {
		return fmt.Errorf("namespaces: writing document: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(resolved); err != nil {
		return fmt.Errorf("namespaces: encoding document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("namespaces: encoding document: %w", err)
	}
	return nil
}
