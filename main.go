package main

import "github.com/Prak-hash/vscode-codeql/extbuild/cmd"

func main() {
	cmd.Execute()
}
