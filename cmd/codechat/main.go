package main

import "github.com/diogo/codechat/internal/commands"

func main() {
	commands.Execute()
}
