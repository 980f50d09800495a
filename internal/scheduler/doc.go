// Package scheduler coordinates light update runs across devices.
//
// Two scarce resources are managed here, and nowhere else:
//
//   - The admission limit: at most ParallelUpdates lights may be inside a
//     run (connecting, sending or keeping alive) at once. Requests beyond
//     the limit wait in a FIFO queue. Idle lights observe Contended and
//     end their run, so queued lights never starve behind keep-alive.
//   - The connection slot pool: the process-wide budget of simultaneous
//     BLE connections, including stale (open but idle) ones. Lights
//     acquire a slot before connecting and idle lights yield their slot
//     when others are waiting.
//
// RequestRun is idempotent: a light that is already queued or running is
// not enqueued twice, and a light never has two concurrent runs. A light
// that receives new intent while its run completes is requeued at the
// tail, so a chattering light cannot starve lights already waiting.
//
// Both structures are guarded by plain mutexes around every
// check-and-update; the lights' connection handles are never touched
// here.
package scheduler
