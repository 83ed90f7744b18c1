// Package focus runs the focus/break state machine.
//
// The Machine is owned by the daemon and is the only holder of the nudge
// ticker and the break timer. Its durable state (isEnabled, focusTopic,
// breakMode, breakEndTime) lives in the kvstore; the machine observes
// isEnabled changes so writes from other clients drive the same
// transitions. Restore reconciles timers with persisted state after a
// restart: an expired break is ended, a pending break is rescheduled for
// its remaining time and an enabled focus session resumes nudging.
package focus
