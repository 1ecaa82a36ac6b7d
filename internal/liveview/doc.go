// Package liveview projects the selected area's sensors and pumps into
// render-ready rows kept current from the realtime store.
//
// The projection merges live payloads onto structured metadata, with live
// fields taking precedence, and fans out row updates to watchers. Selecting
// a new area tears down every prior subscription first so listeners are
// never leaked across area switches.
package liveview
