// Package textutil provides text normalization helpers shared by naming
// and metadata handling.
package textutil
