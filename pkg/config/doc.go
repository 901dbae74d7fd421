/*
Package config loads the declarative documents the engine consumes: action
graphs, execution contexts, form configurations and the service configuration
file. Every loader accepts JSON or YAML, chosen by file extension.

ValidateGraph statically checks an action graph and reports every problem it
finds instead of stopping at the first one.
*/
package config
