// Package assets decides which narrative beats of a script receive an
// expensive generated visual versus a cheap stock one.
package assets
