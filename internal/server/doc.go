// Package server implements the MCP (Model Context Protocol) server for the
// sign finder.
//
// This package provides a JSON-RPC 2.0 server that exposes the finder
// pipeline through the MCP protocol, so an MCP client can locate signs in
// photographs and inspect each stage of the detection.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - finder_locate: Full pipeline, from image to rectangle and orientation
//   - finder_candidates: Every extracted candidate with screen and scores
//   - finder_reconstruct: Roles, rectangle and orientation from three points
//   - finder_binarize: One ensemble bitmap as PNG
//   - finder_config: The effective configuration
//
// The image tools accept per-call overrides (methods, perspective_tolerant,
// proximity_merge_radius, confidence_threshold) layered over the
// configuration the server was started with.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across multiple tool calls, avoiding redundant disk I/O.
// The cache persists for the lifetime of the server process.
//
// # Error Handling
//
// A sign that cannot be located is not an error: finder_locate and
// finder_reconstruct report insufficient_detections or degenerate_geometry in
// their status field. Tool execution errors (unreadable image, bad options)
// are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Logging
//
// stdout carries the protocol, so all logging goes through zerolog to the
// writer the command installs (stderr).
//
// # Usage
//
//	srv := server.New(config.Default())
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal().Err(err).Msg("server stopped")
//	}
package server
