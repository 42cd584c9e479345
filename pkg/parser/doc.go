// Package parser turns raw generator output into renderable content plus at
// most three choices.
//
// Parse is a total function: it never returns an error and never panics.
// Generators are asked to end their prose with marker lines:
//
//	[Option 1] Follow the lantern light
//	[Option 2] Wait for the stranger to speak
//	[Option 3] Run back to the village
//
// The original `[选项1]` spelling is recognized as well. Result.Confident
// reports whether any marker was found; when none is, the node's authored
// choices are kept.
package parser
