/*
Package dsl provides a fluent Go builder for action graphs.

It produces the same domain.ActionNode trees the backend emits as JSON, which
is handy for Go-authored pages and for tests:

	save := dsl.Sequence("save",
		dsl.Action("validate", "validateForm").With("formId", "signup"),
		dsl.Action("post", "apiCall").
			With("url", "/api/users").
			With("method", "POST").
			With("body", "{{formData}}").
			Retry(3, 500, domain.BackoffExponential),
	).
		Loading().
		OnSuccess(dsl.Action("", "navigate").With("to", "/welcome")).
		OnError(dsl.Action("", "showToast").With("level", "error").With("message", "{{trigger.error.message}}"))

	node := save.Build()

Nodes built with an empty ID get a generated one.
*/
package dsl
