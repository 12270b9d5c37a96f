// Package tools defines the fixed tool catalog and the dispatcher that runs it.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, deadline class, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Tools: shell-execute, read-file, write-file, list-files, search-files.
//   - Dispatcher: runs one call under its deadline and always returns text;
//     failures come back as "Error: ..." results, never as Go errors or panics.
package tools
