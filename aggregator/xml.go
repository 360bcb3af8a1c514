package aggregator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/tools"
)

const (
	xmlOpenPrefix = `<tool_call name="`
	xmlClose      = `</tool_call>`
)

// ExtractToolCalls scans content for inline `<tool_call name="...">...
// </tool_call>` blocks emitted by models that cannot produce structured
// tool-call fragments (spec §4.4, §8 S5), decoding each body as the call's
// JSON arguments.
//
// This is a bespoke scanner rather than a call to encoding/xml: the
// surrounding prose is not well-formed XML (unescaped angle brackets,
// unbalanced tags outside the tool_call markers), so a generic document
// parser would reject input the original's hand-rolled scan accepts —
// matching original_source/crates/forge_domain/src/orch.rs's
// ToolCallFull::try_from_xml, referenced from collect_messages.
func ExtractToolCalls(content string) ([]convo.ToolCallFull, error) {
	var calls []convo.ToolCallFull
	rest := content

	for {
		openIdx := strings.Index(rest, xmlOpenPrefix)
		if openIdx < 0 {
			break
		}
		afterPrefix := rest[openIdx+len(xmlOpenPrefix):]

		nameEnd := strings.IndexByte(afterPrefix, '"')
		if nameEnd < 0 {
			break
		}
		name := afterPrefix[:nameEnd]

		afterName := afterPrefix[nameEnd+1:]
		tagEnd := strings.IndexByte(afterName, '>')
		if tagEnd < 0 {
			break
		}
		body := afterName[tagEnd+1:]

		closeIdx := strings.Index(body, xmlClose)
		if closeIdx < 0 {
			break
		}
		argsText := strings.TrimSpace(body[:closeIdx])

		if !json.Valid([]byte(argsText)) {
			return nil, fmt.Errorf("inline tool_call %q has non-JSON arguments: %s", name, argsText)
		}

		calls = append(calls, convo.ToolCallFull{
			Name:      tools.Ident(name),
			Arguments: []byte(argsText),
		})

		rest = body[closeIdx+len(xmlClose):]
	}

	return calls, nil
}
