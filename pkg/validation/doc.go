// Package validation evaluates form field rules.
//
// Rules run in declaration order and the first failure wins, except that a
// required rule always runs first: an empty value skips every other rule.
// Custom, async and cross-field rules either carry a Go function or reference
// a validator registered by name in a Validators set, which is how JSON form
// configuration reaches Go code.
package validation
