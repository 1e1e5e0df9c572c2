// Package hashcheck validates the download hashes declared in role variable
// files against the artifacts actually served at their URLs.
package hashcheck
