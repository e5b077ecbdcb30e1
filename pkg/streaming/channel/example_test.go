package channel_test

import (
	"context"
	"fmt"

	"github.com/vnykmshr/gofabric/pkg/fabric"
	"github.com/vnykmshr/gofabric/pkg/streaming/channel"
)

// Example demonstrates basic buffered channel usage.
func Example() {
	ch := channel.New[int](3)
	ctx := context.Background()

	ch.Send(ctx, 1)
	ch.Send(ctx, 2)
	ch.Send(ctx, 3)

	fmt.Printf("Channel length: %d\n", ch.Len())

	val1, _ := ch.Recv(ctx)
	val2, _ := ch.Recv(ctx)

	fmt.Printf("Received: %d, %d\n", val1, val2)
	fmt.Printf("Remaining length: %d\n", ch.Len())

	// Output:
	// Channel length: 3
	// Received: 1, 2
	// Remaining length: 1
}

// Example_tasks demonstrates a producer and consumer running as fabric tasks.
func Example_tasks() {
	f := fabric.MustNew(fabric.Config{WorkerCount: 2})
	defer f.Shutdown()

	ch := channel.New[string](0)
	done := make(chan struct{})

	f.Go(context.Background(), func(ctx context.Context) {
		for _, w := range []string{"ping", "pong"} {
			ch.Send(ctx, w)
		}
		ch.Close()
	})
	f.Go(context.Background(), func(ctx context.Context) {
		for w := range ch.All(ctx) {
			fmt.Println(w)
		}
		close(done)
	})

	<-done

	// Output:
	// ping
	// pong
}
