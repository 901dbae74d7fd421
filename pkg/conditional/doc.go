// Package conditional decides field visibility and keeps computed fields in
// sync with the values they depend on.
package conditional
