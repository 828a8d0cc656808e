package main

import cmd "github.com/rohmanhakim/render-fetch/internal/cli"

func main() {
	cmd.Execute()
}
