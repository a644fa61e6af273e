// Package preflight provides readiness checks for the sidecar and the
// filesystem paths a leafcam session writes to.
//
// "leafcam check" renders every result; "leafcam run" logs them and refuses
// to start when a required check fails.
package preflight
