package main

import "github.com/exg1o/telegram-bots-hub/cmd"

func main() {
	cmd.Execute()
}
