// Package reembed regenerates embeddings for stored chunks. Its main job
// is draining the backlog of chunks stored without vectors after an
// embedding outage; it can also re-embed the whole corpus after a model
// change.
package reembed
