// Command depbuild builds the native libraries of a workspace for one
// platform, architecture and build type.
package main

import "github.com/goplus/depbuild/cmd/depbuild/internal"

func main() {
	internal.Execute()
}
