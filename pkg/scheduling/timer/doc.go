// Package timer submits tasks into a fabric on a schedule.
//
// A Scheduler keeps a table of jobs and checks it every TickInterval. Due jobs
// are submitted to the configured fabric and run there as ordinary tasks, so
// they can use channels and waitgroups like any other task.
//
//	s, err := timer.New(timer.Config{Fabric: f})
//	if err != nil {
//		return err
//	}
//	s.Start()
//	defer s.Stop()
//
//	s.ScheduleAfter("warmup", task, time.Second)
//	s.ScheduleRepeating("flush", flush, 10*time.Second)
//	s.ScheduleCron("report", "0 */5 * * * *", report)
//
// Cron expressions carry a leading seconds field and accept descriptors such
// as "@hourly". Passing an empty id generates one.
//
// RetryTask wraps a task with exponential backoff between attempts. Sleep
// parks a task for a duration without holding its worker.
package timer
