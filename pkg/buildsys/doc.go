// Package buildsys implements a minimal task runner for the extension build.
// Tasks are plain Go values with dependencies, parallel children and optional
// input/output patterns used to skip work that is already up to date. External
// tools run through mvdan.cc/sh so command lines behave the same on every
// platform.
package buildsys
