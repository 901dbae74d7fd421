/*
Package actions provides the built-in leaf handlers.

Every handler receives params already resolved against the execution context.
Handlers reach the outside world only through the service handles carried by
the context (domain.Services); a missing service fails the action with
domain.ErrServiceUnavailable instead of panicking.

State handlers never mutate the context. They return a domain.StatePatch that
the graph runner applies before the next step:

	setState    {"total": 1}                       -> set pageState.total
	setState    {"scope": "formData", "values": {...}}
	mergeState  {"filters": {"status": "open"}}     -> deep merge into pageState
	resetState  {"keys": ["filters"]}               -> remove keys (all when empty)

String values of setState/mergeState that are pure arithmetic ("3 + 1") are
evaluated to numbers, which lets templates accumulate:

	{"total": "{{pageState.total}} + {{trigger.item}}"}
*/
package actions
