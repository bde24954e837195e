package main

import "github.com/savente93/snakedown/cmd"

func main() {
	cmd.Execute()
}
