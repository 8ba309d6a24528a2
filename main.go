package main

import "github.com/sujankapadia/claude-code-utils/cmd"

func main() {
	cmd.Execute()
}
