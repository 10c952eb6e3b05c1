// Package main hosts the Vigil CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into baseline
// generation, verification runs, annotation maintenance, watch-task control,
// and configuration scaffolding. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
