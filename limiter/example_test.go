/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter_test

import (
	"context"
	"fmt"
	"time"

	"github.com/acronis/go-admission/limiter"
)

type ingestOp struct {
	payload []byte
}

func (op ingestOp) PayloadSize() int64 {
	return int64(len(op.payload))
}

func Example() {
	rps := limiter.MustNewRequestRateLimiter("rps", limiter.Rate{Count: 2, Duration: time.Second},
		limiter.RejectOverlimit[ingestOp]("rps"))
	bps := limiter.MustNewByteRateLimiter("bps", limiter.Rate{Count: 1024, Duration: time.Second},
		limiter.RejectOverlimit[ingestOp]("bps"))
	gate := limiter.NewChain[ingestOp](rps, bps)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := gate.Apply(ctx, ingestOp{payload: []byte("hello")}); err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Println("admitted")
	}

	// Output:
	// admitted
	// admitted
	// over capacity for "rps" budget
}
