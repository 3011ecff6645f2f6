/*
Package observability turns engine lifecycle events into Prometheus metrics
and structured log lines.

Metrics live on a private registry so several engines in one process do not
collide. They can be served over HTTP (watch mode) or written to a textfile
for the node exporter after a one-shot build.
*/
package observability
