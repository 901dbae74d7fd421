/*
Package form implements the dynamic form state engine.

A Store holds the values, errors and touched flags of one rendered form. A
Controller owns a Store and composes it with the validation and conditional
engines: value changes recompute computed fields, refresh visibility, and
trigger validation according to the form's validation mode. A Registry lets
action handlers (submitForm, validateForm, resetForm) address mounted forms by ID.

Controllers are safe for concurrent use. Async validation runs outside the
controller lock and each field carries a generation counter, so a result that
arrives after the field changed again is discarded rather than applied.
*/
package form
