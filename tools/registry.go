package tools

import (
	"context"
	"encoding/json"
	"time"
)

// Name identifies a tool in the fixed catalog.
type Name string

const (
	NameShellExecute Name = "shell-execute"
	NameReadFile     Name = "read-file"
	NameWriteFile    Name = "write-file"
	NameListFiles    Name = "list-files"
	NameSearchFiles  Name = "search-files"
)

// Valid reports whether n is part of the catalog.
func (n Name) Valid() bool {
	switch n {
	case NameShellExecute, NameReadFile, NameWriteFile, NameListFiles, NameSearchFiles:
		return true
	}
	return false
}

// Budget selects which configured timeout bounds a tool.
type Budget int

const (
	BudgetFile Budget = iota
	BudgetShell
	BudgetSearch
)

// Timeouts holds the wall-clock limit for each Budget.
type Timeouts struct {
	Shell  time.Duration
	File   time.Duration
	Search time.Duration
}

// DefaultTimeouts returns the stock limits.
func DefaultTimeouts() Timeouts {
	return Timeouts{Shell: 30 * time.Second, File: 10 * time.Second, Search: 10 * time.Second}
}

func (t Timeouts) For(b Budget) time.Duration {
	switch b {
	case BudgetShell:
		return t.Shell
	case BudgetSearch:
		return t.Search
	default:
		return t.File
	}
}

// Spec is what the model sees for one tool.
type Spec struct {
	Name        Name
	Description string
	InputSchema InputSchema
}

// ToolDefinition pairs a Spec with its handler.
type ToolDefinition struct {
	Name        Name
	Description string
	InputSchema InputSchema
	Budget      Budget
	Function    func(ctx context.Context, input json.RawMessage) (string, error)
}

func (d ToolDefinition) Spec() Spec {
	return Spec{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema}
}

// Registry returns all tool definitions in catalog order.
func Registry() []ToolDefinition {
	return []ToolDefinition{
		ShellExecuteDefinition,
		ReadFileDefinition,
		WriteFileDefinition,
		ListFilesDefinition,
		SearchFilesDefinition,
	}
}

// Catalog returns the specs advertised with every transport call.
func Catalog() []Spec {
	defs := Registry()
	out := make([]Spec, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Spec())
	}
	return out
}
