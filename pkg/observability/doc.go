/*
Package observability provides tools for monitoring the arbor engine.

It turns engine lifecycle hooks into Prometheus metrics and structured log
records, and lets several hook sets observe the same engine.
*/
package observability
