// Command leafcam runs plant-disease severity trials from a terminal: it opens
// a session against the leafcamd camera and inference sidecar, drives the
// capture, review, and classification workflow, and reports accuracy over
// recorded sessions.
package main
