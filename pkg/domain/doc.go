/*
Package domain contains the core models of the OpenPortal action and form engine.

It defines the declarative action graph (ActionNode), the immutable execution
snapshot handed to every step (ExecutionContext), the discriminated outcome of
a step (ActionResult) and the state patches handlers use to describe changes.
The package is kept free of I/O; external collaborators are reached through the
capability interfaces in package ports, bundled in Services.

# Key Entities

  - ActionNode: one declarative unit of work, including chaining and execution policy.
  - ExecutionContext: read-only snapshot of page/form/route/user state plus the trigger.
  - ActionResult: success, error (with an ErrorKind) or skipped.
  - StatePatch: a functional description of a state change applied between steps.
  - LifecycleHooks: observability callbacks fired by the graph runner.
*/
package domain
