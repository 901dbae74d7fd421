/*
Package openportal is the client-side action and form engine of a low-code portal.

Pages are described as JSON or YAML. Widgets trigger declarative action graphs
(navigate, call an API, set state, show a toast, submit a form) and forms are
driven by declarative validation rules, visibility conditions and computed
fields. This package wires the pieces together behind one Engine.

# Concept

An action graph is a tree of ActionNodes. Leaf nodes are dispatched to handlers
looked up by kind in a registry; the structural kinds (sequence, parallel,
conditional, forEach) are interpreted by the runner. Every node may carry a
condition, a timeout, a retry policy and onSuccess/onError chains. Handlers
never mutate state: they return state patches, which the runner applies in
order to produce the final context of the Execution.

Side effects go through capability interfaces (see pkg/ports): the host
provides the HTTP client, navigator, toaster and the other services, and the
engine treats them as shared singletons.

# Usage

	eng, err := openportal.New(
		openportal.WithServices(domain.Services{HTTP: client, Toast: toaster}),
	)
	if err != nil {
		log.Fatal(err)
	}

	graph := dsl.Sequence("load-orders",
		dsl.Action("load", domain.KindAPICall).With("url", "/api/orders").With("target", "orders"),
		dsl.Action("done", domain.KindShowToast).With("message", "Orders loaded"),
	).Build()

	exec, err := eng.Run(ctx, &graph, domain.NewExecutionContext())
	if err != nil {
		log.Fatal(err) // malformed graph
	}
	fmt.Println(exec.Result.Status, exec.Context.PageState["orders"])

Forms are created through the engine so that submitForm, validateForm and
resetForm actions can address them by ID:

	ctrl, release, err := eng.NewForm(cfg)
	defer release()
	ctrl.SetValue("email", "ana@example.com")
	values, err := ctrl.Submit(ctx)

# Packages

  - pkg/domain: nodes, results, error kinds, execution context and state patches.
  - pkg/expr and pkg/template: the safe expression language and {{ }} templates.
  - pkg/actions: the built-in handlers.
  - pkg/validation, pkg/conditional, pkg/form: the form state engine.
  - pkg/config: JSON/YAML loading and static graph validation.
  - pkg/adapters: HTTP, Redis and in-memory implementations of the ports.
*/
package openportal
