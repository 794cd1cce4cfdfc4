// Package io frames LC-3 memory images as flat files of big-endian 16-bit
// words, with no header or trailer.
package io
