/*
Package domain contains the core types shared by every part of the zres resource pipeline.

It defines what a request is, how a resolved tool is described, what a deferred
final task carries and how a build run is reported. This package is kept free of
I/O, so the engine, the locator and the adapters can all depend on it.

# Key Entities

  - Request: A file whose name ends in one or more ".zr-<tool>" suffixes.
  - ToolTarget: The result of resolving a tool name in one of the search tiers.
  - FinalTask: An invocation deferred to the final pass via "on-final".
  - Report: The outcome of a build run (passes, warnings, failure).
*/
package domain
