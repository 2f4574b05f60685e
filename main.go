package main

import "github.com/shawkym/chatpane/cmd"

func main() {
	cmd.Execute()
}
