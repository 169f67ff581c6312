// Package internal holds identifier generation helpers shared by the
// authcore root package and its stores. Nothing here is part of the
// public API.
package internal
