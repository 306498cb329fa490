// Package main hosts the panscan CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation, merges
// --set overrides, and hands the immutable result to the pipeline. Commands
// stay thin: detection, probing, and history all live in internal packages
// and are only surfaced here.
package main
