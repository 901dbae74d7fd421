// Package schema describes the shape of action params.
//
// Handlers register a Schema next to their kind; the executor checks resolved
// params against it before invoking the handler, so a misconfigured node fails
// with a readable message instead of a type assertion panic.
//
//	schema.Schema{
//	    "url":     schema.String(),
//	    "method":  schema.Optional(schema.OneOf("GET", "POST", "PUT", "PATCH", "DELETE")),
//	    "headers": schema.Optional(schema.Map()),
//	}
//
// Schemas marshal to JSON as a map of field names to type names, which is what
// the kinds endpoint of the HTTP server publishes.
package schema
