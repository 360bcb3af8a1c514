// Package tools defines the tool catalog: typed tool definitions, a
// name-keyed registry with deterministic listing, and JSON-schema argument
// validation shared by the Tool Dispatcher and Agent Runner.
package tools

import "encoding/json"

// Ident is a tool identifier (e.g. "fs_replace", or an agent's own id such
// as "researcher" when a sub-agent is invoked as a tool).
type Ident string

// String implements fmt.Stringer.
func (i Ident) String() string { return string(i) }

// JSONSchema is an opaque JSON-schema document, kept undecoded until
// validation time so registration never depends on a particular schema
// library's in-memory representation.
type JSONSchema = json.RawMessage
