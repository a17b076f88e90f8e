package main

import "kanban-api/cmd"

func main() {
	cmd.Execute()
}
