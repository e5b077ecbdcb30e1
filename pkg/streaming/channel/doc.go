/*
Package channel provides bounded CSP channels whose blocking operations park
fabric tasks instead of blocking workers.

A Channel behaves like a Go channel with an explicit lifecycle. Inside a
fabric task, a Send on a full channel or a Recv on an empty one suspends the
task and frees its worker for other work; the partner operation makes the
task runnable again. Outside a task the same calls block the calling
goroutine, so producers and consumers can live on either side.

Creating Channels:

	ch := channel.New[int](16)     // buffered
	rv := channel.New[string](0) // rendezvous

	ch := channel.NewWithConfig[Job](channel.Config{
		Capacity: 64,
		Name:     "jobs",
		Metrics:  metrics.DefaultRegistry,
	})

Sending and Receiving:

The ctx passed to Send and Recv identifies the caller. Inside a task, pass
the task's own context:

	f.Go(ctx, func(ctx context.Context) {
		for v := range ch.All(ctx) {
			process(v)
		}
	})

	f.Go(ctx, func(ctx context.Context) {
		for _, v := range values {
			ch.Send(ctx, v)
		}
		ch.Close()
	})

Recv returns ok=false once the channel is closed and drained. TryRecv and
TrySend never wait. SendTimeout and RecvTimeout report a Status of OK,
Closed or Timeout; a timed-out send never delivers its value.

Ordering:

Values are received in the order they were sent. Parked senders and parked
receivers are each served in arrival order. With capacity zero a Send
completes only when a receiver has taken the value.

Lifecycle:

Close stops further sends. Buffered values stay receivable, parked
receivers get ok=false and parked senders panic. Free closes and destroys
the channel; every later operation panics. Sending on a closed channel or
using a freed one is a programming error and panics with an
errors.MisuseError, which the fabric never recovers.

Statistics:

	stats := ch.Stats()
	fmt.Printf("sent=%d received=%d blocked sends=%d\n",
		stats.SendCount, stats.ReceiveCount, stats.BlockedSends)
*/
package channel
