// Package schedule manages daily activation windows for output devices.
//
// A schedule lives in two places: the structured store records the
// operator's intent, and the scheduler node in the realtime store is what
// the cabinet firmware actually executes. SyncService pushes a window to
// both and flips the device to Auto once both stores agree.
//
// Scheduler node IDs follow the schedule_<deviceID> convention when a
// device is scheduled for the first time.
package schedule
