package fixedwindow_test

import (
	"context"
	"fmt"
	"time"

	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
	"github.com/vnykmshr/gatelimit/pkg/ratelimit/fixedwindow"
	"github.com/vnykmshr/gatelimit/pkg/store"
)

// Example demonstrates a quota of three requests per minute
func Example() {
	limiter, err := fixedwindow.New(store.NewMemoryStore(), 3, time.Minute)
	if err != nil {
		panic(fmt.Sprintf("Failed to create limiter: %v", err))
	}

	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		res, err := limiter.Incoming(ctx, "api-key-42", true)
		switch {
		case gferrors.IsRejected(err):
			fmt.Printf("request %d: rejected\n", i)
		case err != nil:
			panic(err)
		default:
			fmt.Printf("request %d: %d remaining\n", i, res.Remaining)
		}
	}

	// Output:
	// request 1: 2 remaining
	// request 2: 1 remaining
	// request 3: 0 remaining
	// request 4: rejected
}

// Example_uncommit returns quota for a request that was never served
func Example_uncommit() {
	limiter, err := fixedwindow.New(store.NewMemoryStore(), 10, time.Hour)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	res, _ := limiter.Incoming(ctx, "client", true)
	fmt.Println("after request:", res.Remaining)

	res, _ = limiter.Uncommit(ctx, "client")
	fmt.Println("after uncommit:", res.Remaining)

	// Output:
	// after request: 9
	// after uncommit: 10
}
