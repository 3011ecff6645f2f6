/*
Package ports defines the driven ports (interfaces) of the zres engine.

These interfaces decouple the pass engine from the infrastructure it
coordinates through, so a build can run alone on a laptop or share a tool
cache with other hosts.

# Key Interfaces

  - RunLocker: serializes build runs that share a target or cache root.
*/
package ports
