/*
Package scheduling groups the primitives that decide when fabric tasks run.

  - waitgroup: counting completion barrier that parks waiting tasks
  - compute: splits a 3-D index grid into tiles and runs one task per tile
  - timer: submits tasks at a time, after a delay, at an interval or on a
    cron schedule, plus task-parking Sleep and retry with backoff

Wait Group:

	var wg waitgroup.WaitGroup
	for _, item := range items {
		wg.Go(ctx, f, func(ctx context.Context) { process(item) })
	}
	wg.Wait(ctx) // parks when ctx belongs to a task

Compute Dispatch:

	err := compute.Dispatch(ctx, f, [3]int{1024, 1024, 1}, [3]int{64, 64, 1},
		func(ctx context.Context, id, size [3]int) {
			// id is the tile origin, size its clamped extent
		})

Timed Submission:

	sched, _ := timer.New(timer.Config{Fabric: f})
	sched.ScheduleRepeating("flush", flushTask, time.Minute)
	sched.ScheduleCron("report", "0 0 9 * * MON-FRI", reportTask)
	sched.Start()
	defer sched.Stop()
*/
package scheduling
