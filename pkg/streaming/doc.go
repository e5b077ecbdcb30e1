/*
Package streaming holds the data-passing primitives of the fabric.

  - channel: bounded FIFO channel whose blocking operations park the
    calling task instead of the worker running it

Basic usage:

	ch := channel.New[int](16)

	f.Go(ctx, func(ctx context.Context) {
		for i := 0; i < 100; i++ {
			ch.Send(ctx, i)
		}
		ch.Close()
	})

	f.Go(ctx, func(ctx context.Context) {
		for v := range ch.All(ctx) {
			consume(v)
		}
	})
*/
package streaming
