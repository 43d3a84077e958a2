package main

import "github.com/adrianmross/geo-tree/internal/cmd"

func main() {
	cmd.Execute()
}
