package main

import "github.com/josephlewis42/npshell/cmd"

func main() {
	cmd.Execute()
}
