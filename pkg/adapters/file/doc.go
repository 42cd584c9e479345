// Package file provides filesystem adapters: an atomic key/value ContentStore
// and a GraphSource over a directory of JSON story resources.
package file
