// Package smi provides a structural reading of SMIv1/SMIv2 MIB module text.
//
// The parser extracts the module skeleton needed for dependency resolution
// and document generation: module headers, IMPORTS, top-level definitions
// with their kinds and raw OID assignments, and MODULE-IDENTITY metadata.
// It deliberately does not validate the full SMI grammar; type syntax,
// constraints and DEFVAL clauses are skipped over, not interpreted.
package smi

import "slices"

// DefKind classifies a top-level definition.
type DefKind int

const (
	KindUnknown DefKind = iota
	KindNode              // OBJECT IDENTIFIER value assignment
	KindObjectType        // OBJECT-TYPE
	KindIdentity          // MODULE-IDENTITY
	KindObjectIdentity    // OBJECT-IDENTITY
	KindNotification      // NOTIFICATION-TYPE
	KindTrap              // TRAP-TYPE (SMIv1)
	KindCompliance        // MODULE-COMPLIANCE
	KindObjectGroup       // OBJECT-GROUP
	KindNotificationGroup // NOTIFICATION-GROUP
	KindCapabilities      // AGENT-CAPABILITIES
	KindTextualConvention // Name ::= TEXTUAL-CONVENTION ...
	KindTypeAssignment    // Name ::= <syntax>
)

var defKindNames = map[DefKind]string{
	KindUnknown:           "unknown",
	KindNode:              "node",
	KindObjectType:        "object-type",
	KindIdentity:          "module-identity",
	KindObjectIdentity:    "object-identity",
	KindNotification:      "notification",
	KindTrap:              "trap",
	KindCompliance:        "compliance",
	KindObjectGroup:       "object-group",
	KindNotificationGroup: "notification-group",
	KindCapabilities:      "capabilities",
	KindTextualConvention: "textual-convention",
	KindTypeAssignment:    "type",
}

func (k DefKind) String() string {
	if s, ok := defKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Import is a single imported symbol, flattened from the grouped
// IMPORTS syntax (one entry per symbol).
type Import struct {
	Module string
	Symbol string
}

// Revision is one REVISION clause of a MODULE-IDENTITY.
type Revision struct {
	Date        string
	Description string
}

// Identity carries the MODULE-IDENTITY metadata of an SMIv2 module.
type Identity struct {
	Name         string
	LastUpdated  string
	Organization string
	Revisions    []Revision
}

// Definition is one top-level definition inside a module.
type Definition struct {
	Name string
	Kind DefKind
	Line int

	// OID holds the raw arc components of the trailing value assignment,
	// e.g. ["ifMIBObjects", "1"]. Empty for type assignments. For
	// TRAP-TYPE the components are the ENTERPRISE value and the trap number.
	OID []string
}

// ModuleAST is the structural skeleton of one parsed MIB module.
// A single text blob may yield several ModuleASTs.
type ModuleAST struct {
	Name        string
	Line        int
	Imports     []Import
	Definitions []Definition
	Identity    *Identity
}

// ImportedModules returns the distinct module names this module imports,
// in first-seen order.
func (m *ModuleAST) ImportedModules() []string {
	var names []string
	for _, imp := range m.Imports {
		if !slices.Contains(names, imp.Module) {
			names = append(names, imp.Module)
		}
	}
	return names
}

// Definition returns the named top-level definition, or nil.
func (m *ModuleAST) Definition(name string) *Definition {
	for i := range m.Definitions {
		if m.Definitions[i].Name == name {
			return &m.Definitions[i]
		}
	}
	return nil
}
