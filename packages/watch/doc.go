// Package watch reports when .http files appear, disappear or are renamed
// under a directory tree.
package watch
