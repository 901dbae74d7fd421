package openportal_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/openportal"
	"github.com/aretw0/openportal/pkg/adapters/memory"
	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/dsl"
)

// ExampleEngine_Run runs a small graph against canned backend responses.
func ExampleEngine_Run() {
	stub := memory.NewHTTPStub().
		Handle("GET", "/api/cart", memory.Route{Body: map[string]any{"items": 3}})

	eng, err := openportal.New(openportal.WithServices(domain.Services{HTTP: stub}))
	if err != nil {
		log.Fatal(err)
	}

	graph := dsl.Sequence("checkout",
		dsl.Action("load", domain.KindAPICall).With("url", "/api/cart").With("target", "cart"),
		dsl.Conditional("gate").
			Branch("pageState.cart.items > 0", dsl.SetState("ready", map[string]any{"canPay": true})).
			Default(dsl.SetState("empty", map[string]any{"canPay": false})),
	).Build()

	exec, err := eng.Run(context.Background(), &graph, domain.NewExecutionContext())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(exec.Result.Status)
	fmt.Println(exec.Context.PageState["canPay"])
	// Output:
	// success
	// true
}

// ExampleEngine_Run_onError shows an error chain reading the failure.
func ExampleEngine_Run_onError() {
	stub := memory.NewHTTPStub().
		Handle("POST", "/api/pay", memory.Route{Status: 402, Body: map[string]any{"message": "card declined"}})
	eng, err := openportal.New(openportal.WithServices(domain.Services{HTTP: stub}))
	if err != nil {
		log.Fatal(err)
	}

	node := dsl.Action("pay", domain.KindAPICall).
		With("method", "POST").
		With("url", "/api/pay").
		OnError(dsl.SetState("remember", map[string]any{"lastError": "{{trigger.error.kind}}"})).
		Build()

	exec, err := eng.Run(context.Background(), &node, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(exec.Context.PageState["lastError"])
	// Output:
	// HttpError
}
