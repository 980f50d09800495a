// Package light implements the per-fixture state machine driving Govee
// BLE lights.
//
// Each physical light is represented by one Light. Callers mutate desired
// state through SetIntent, which marks the affected attributes dirty and
// asks the scheduler to run the light. The scheduler invokes Run, which
// owns the light's connection for the duration of a cycle:
//
//	Idle → Queued → Connecting → Sending → KeepAlive → Disconnecting → Idle
//
// # Dirty Flags
//
// A dirty flag means the desired value has not been confirmed sent since
// it last changed. Flags drain one per protocol exchange, in fixed
// priority order (power, then brightness, then colour), so two rapid
// writes never race on the control characteristic. Confirmed state is
// only updated after a successful write.
//
// # Failure Semantics
//
// Transient link failures (connect, write) are absorbed inside Run with
// jittered backoff up to a configured ceiling; past the ceiling the light
// reports an unavailable status and returns to idle, to be retried on the
// next intent change. Payload validation errors are programming errors
// and escape Run immediately. Neither is ever raised from SetIntent.
//
// # Concurrency
//
// SetIntent is safe to call at any time, including while a run is in
// flight; new intent is picked up by the current iteration or wakes the
// machine out of its keep-alive sleep. The connection handle is owned
// exclusively by Run and never shared. Cross-device coordination (slot
// budget, admission) lives in the scheduler package.
package light
