package tools

import (
	"context"
	"encoding/json"

	"github.com/flowctl/agentruntime/edit"
	"github.com/flowctl/agentruntime/toolerrors"
)

// FSReplaceName is the registered name of the Structured Edit Tool (C2),
// matching the original's FSReplace tool (original_source/crates/forge_tool/
// src/fs/fs_replace.rs).
const FSReplaceName Ident = "fs_replace"

var fsReplaceSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string", "description": "File path relative to the current working directory"},
		"diff": {"type": "string", "description": "SEARCH/REPLACE blocks defining changes"}
	},
	"required": ["path", "diff"]
}`)

type fsReplaceArgs struct {
	Path string `json:"path"`
	Diff string `json:"diff"`
}

type fsReplaceResult struct {
	Path          string `json:"path"`
	Content       string `json:"content"`
	SyntaxChecker string `json:"syntax_checker,omitempty"`
}

// FSReplaceTool builds the Structured Edit Tool (spec §4.2), bound to
// allowed (typically the Filesystem Walker's ignore rules, per the
// MODULE ADDITIONS hidden-file/hidden-path guard). A nil allowed permits
// edits anywhere the process can write.
func FSReplaceTool(allowed func(string) bool) Tool {
	return Tool{
		Definition: Definition{
			Name:        FSReplaceName,
			Description: "Applies SEARCH/REPLACE diff blocks to a file with exact-then-fuzzy matching and atomic persistence.",
			InputSchema: fsReplaceSchema,
		},
		Executor: func(_ context.Context, raw json.RawMessage) (json.RawMessage, error) {
			var args fsReplaceArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, toolerrors.NewWithCause("decode fs_replace arguments", err)
			}
			result, err := edit.Apply(args.Path, args.Diff, allowed)
			if err != nil {
				return nil, toolerrors.FromError(err)
			}
			return json.Marshal(fsReplaceResult{
				Path:          result.Path,
				Content:       result.Content,
				SyntaxChecker: result.SyntaxChecker,
			})
		},
	}
}
