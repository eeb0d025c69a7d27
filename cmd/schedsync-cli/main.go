package main

import "schedsync-backend/cmd/schedsync-cli/commands"

func main() {
	commands.Execute()
}
